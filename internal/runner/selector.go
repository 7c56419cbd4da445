package runner

import (
	"strconv"
	"strings"

	"github.com/ifazk/chithi/internal/errors"
)

// Selector is a parsed "[task[.job]]" CLI positional argument.
type Selector struct {
	Task string // "" means no task selected
	Job  *int   // nil means the whole task
}

// ParseSelector splits "task" or "task.jobnum" per §4.7's three selection
// modes; an empty string selects no task.
func ParseSelector(s string) (Selector, error) {
	if s == "" {
		return Selector{}, nil
	}
	task, jobStr, hasJob := strings.Cut(s, ".")
	if !hasJob {
		return Selector{Task: task}, nil
	}
	n, err := strconv.Atoi(jobStr)
	if err != nil {
		return Selector{}, errors.New(errors.ProjectValidationFailed, "invalid job number in selector \""+s+"\"")
	}
	return Selector{Task: task, Job: &n}, nil
}
