package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectorEmpty(t *testing.T) {
	sel, err := ParseSelector("")
	require.NoError(t, err)
	assert.Equal(t, Selector{}, sel)
	assert.Nil(t, sel.Job)
}

func TestParseSelectorTaskOnly(t *testing.T) {
	sel, err := ParseSelector("backups")
	require.NoError(t, err)
	assert.Equal(t, "backups", sel.Task)
	assert.Nil(t, sel.Job)
}

func TestParseSelectorTaskAndJob(t *testing.T) {
	sel, err := ParseSelector("backups.2")
	require.NoError(t, err)
	assert.Equal(t, "backups", sel.Task)
	require.NotNil(t, sel.Job)
	assert.Equal(t, 2, *sel.Job)
}

func TestParseSelectorRejectsNonNumericJob(t *testing.T) {
	_, err := ParseSelector("backups.x")
	assert.Error(t, err)
}

func TestParseSelectorAllowsNegativeJobSyntactically(t *testing.T) {
	// range-checking happens at the call site against the task's job
	// count, not here.
	sel, err := ParseSelector("backups.-1")
	require.NoError(t, err)
	require.NotNil(t, sel.Job)
	assert.Equal(t, -1, *sel.Job)
}
