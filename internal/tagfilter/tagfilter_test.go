package tagfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagSet(tags ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return m
}

func TestParseScenarioS4(t *testing.T) {
	f, err := Parse("a,!b")
	require.NoError(t, err)
	assert.True(t, f.Matches(tagSet("a")))
	assert.False(t, f.Matches(tagSet("a", "b")))
	assert.False(t, f.Matches(tagSet()))

	none, err := Parse("none")
	require.NoError(t, err)
	assert.True(t, none.Matches(tagSet()))
	assert.False(t, none.Matches(tagSet("x")))
}

func TestParseSlashExclude(t *testing.T) {
	f, err := Parse("/b")
	require.NoError(t, err)
	assert.True(t, f.Matches(tagSet("a")))
	assert.False(t, f.Matches(tagSet("b")))
}

func TestParseRejectsEmptyTag(t *testing.T) {
	_, err := Parse("a,,b")
	assert.Error(t, err)
}

func TestParseRejectsReservedWord(t *testing.T) {
	for _, w := range []string{"any", "all", "and", "or", "not", "|", "||", "&", "&&"} {
		_, err := Parse(w)
		assert.Error(t, err, w)
	}
}

func TestParseRejectsWhitespaceAndQuotes(t *testing.T) {
	_, err := Parse("bad tag")
	assert.Error(t, err)
	_, err = Parse(`"quoted"`)
	assert.Error(t, err)
	_, err = Parse("(parens)")
	assert.Error(t, err)
}

func TestParseAllowsNoneAsOrdinaryTagWithWarning(t *testing.T) {
	f, err := Parse("none,other")
	require.NoError(t, err)
	assert.True(t, f.Matches(tagSet("none", "other")))
}
