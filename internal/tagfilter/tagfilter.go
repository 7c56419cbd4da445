// Package tagfilter implements the tag expression grammar used by
// `chithi run --tags` and project tag rules: either the literal "none"
// (matches untagged items) or a comma-separated list of required
// ("tag") and forbidden ("!tag" / "/tag") terms.
package tagfilter

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/stratastor/logger"

	"github.com/ifazk/chithi/internal/errors"
)

var (
	logOnce sync.Once
	log     logger.Logger
)

func tagLogger() logger.Logger {
	logOnce.Do(func() {
		l, err := logger.NewTag(logger.Config{LogLevel: "info"}, "tagfilter")
		if err != nil {
			panic(fmt.Sprintf("failed to create logger: %v", err))
		}
		log = l
	})
	return log
}

var reserved = []string{"any", "all", "and", "or", "not", "|", "||", "&", "&&"}

// Filter is a parsed tag expression.
type Filter struct {
	untagged bool
	include  []string
	exclude  []string
}

// Parse parses a tag expression. "none" (after trimming whitespace)
// yields the Untagged filter; anything else is split on ',' into
// include ("tag") and exclude ("!tag" or "/tag") terms.
func Parse(value string) (Filter, error) {
	value = strings.TrimSpace(value)
	if value == "none" {
		return Filter{untagged: true}, nil
	}

	var include, exclude []string
	for _, tag := range strings.Split(value, ",") {
		if strings.HasPrefix(tag, "!") || strings.HasPrefix(tag, "/") {
			tag = tag[1:]
			if err := checkTag(tag); err != nil {
				return Filter{}, err
			}
			exclude = append(exclude, tag)
		} else {
			if err := checkTag(tag); err != nil {
				return Filter{}, err
			}
			include = append(include, tag)
		}
	}
	return Filter{include: include, exclude: exclude}, nil
}

func checkTag(tag string) error {
	if tag == "" {
		return errors.New(errors.TagFilterInvalidTag, "found empty string tag in project")
	}
	if tag == "none" {
		tagLogger().Warn("'none' matches untagged items; combining it with other tags is not meaningful", "tag", tag)
	}
	if slices.Contains(reserved, tag) {
		return errors.New(errors.TagFilterInvalidTag, "use of a reserved word as a search tag '"+tag+"'")
	}
	for _, c := range tag {
		if c == '(' || c == ')' || c == '"' || c == '\'' || unicode.IsSpace(c) {
			return errors.New(errors.TagFilterInvalidTag, "invalid tag \""+tag+"\"")
		}
	}
	return nil
}

// Matches reports whether itemTags satisfies the filter: for Untagged,
// true iff itemTags is empty; otherwise true iff every include term is
// present and no exclude term is present.
func (f Filter) Matches(itemTags map[string]struct{}) bool {
	if f.untagged {
		return len(itemTags) == 0
	}
	for _, t := range f.include {
		if _, ok := itemTags[t]; !ok {
			return false
		}
	}
	for _, t := range f.exclude {
		if _, ok := itemTags[t]; ok {
			return false
		}
	}
	return true
}
