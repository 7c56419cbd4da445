package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestNormalizeCommandFallback(t *testing.T) {
	raw := rawProject{
		Command: []string{"echo", "project"},
		Tasks: map[string]rawTask{
			"t": {
				Jobs: []rawJob{{}},
			},
		},
	}
	proj, err := normalize(raw, "p")
	require.NoError(t, err)
	task := proj.Tasks["t"]
	require.Len(t, task.Jobs, 1)
	assert.Equal(t, []string{"echo", "project"}, task.Jobs[0].Command)
}

func TestNormalizeMissingCommandErrors(t *testing.T) {
	raw := rawProject{
		Tasks: map[string]rawTask{
			"t": {Jobs: []rawJob{{}}},
		},
	}
	_, err := normalize(raw, "p")
	assert.Error(t, err)
}

func TestNormalizeSyncJobRequiresSourceTarget(t *testing.T) {
	raw := rawProject{
		Tasks: map[string]rawTask{
			"t": {
				Jobs: []rawJob{{Command: []string{"chithi", "sync"}}},
			},
		},
	}
	_, err := normalize(raw, "p")
	assert.Error(t, err)

	raw.Tasks["t"] = rawTask{
		Jobs: []rawJob{{Command: []string{"chithi", "sync"}, Source: strptr("a"), Target: strptr("b")}},
	}
	_, err = normalize(raw, "p")
	assert.NoError(t, err)
}

func TestNormalizeChithiRunSyncDoesNotRequireSourceTarget(t *testing.T) {
	raw := rawProject{
		Tasks: map[string]rawTask{
			"t": {
				Jobs: []rawJob{{Command: []string{"chithi", "run", "sync"}}},
			},
		},
	}
	_, err := normalize(raw, "p")
	assert.NoError(t, err)
}

func TestNormalizeDisabledPropagation(t *testing.T) {
	raw := rawProject{
		Disabled: true,
		Tasks: map[string]rawTask{
			"t": {Jobs: []rawJob{{Command: []string{"echo"}}}},
		},
	}
	proj, err := normalize(raw, "p")
	require.NoError(t, err)
	task := proj.Tasks["t"]
	assert.True(t, task.Disabled)
	assert.True(t, task.Jobs[0].Disabled)
}

func TestNormalizeSequentialMultiJobTagsRejected(t *testing.T) {
	raw := rawProject{
		Tasks: map[string]rawTask{
			"t": {
				Jobs: []rawJob{
					{Command: []string{"echo"}, Tags: []string{"x"}},
					{Command: []string{"echo"}},
				},
			},
		},
	}
	_, err := normalize(raw, "p")
	assert.Error(t, err)
}

func TestNormalizeParallelOnSuccessTagsRejected(t *testing.T) {
	raw := rawProject{
		Tasks: map[string]rawTask{
			"t": {
				Parallel:  true,
				OnSuccess: []string{"echo", "done"},
				Jobs: []rawJob{
					{Command: []string{"echo"}, Tags: []string{"x"}},
				},
			},
		},
	}
	_, err := normalize(raw, "p")
	assert.Error(t, err)
}

func TestNormalizeLoneJobTagLift(t *testing.T) {
	raw := rawProject{
		Tasks: map[string]rawTask{
			"t": {
				Jobs: []rawJob{
					{Command: []string{"echo"}, Tags: []string{"x", "y"}},
				},
			},
		},
	}
	proj, err := normalize(raw, "p")
	require.NoError(t, err)
	task := proj.Tasks["t"]
	assert.Equal(t, map[string]struct{}{"x": {}, "y": {}}, task.Tags)
}

func TestNormalizeInvalidTagRejected(t *testing.T) {
	for _, tag := range []string{"", "!x", "/x", "none", "any", "bad tag", `"q"`} {
		raw := rawProject{
			Tasks: map[string]rawTask{
				"t": {Jobs: []rawJob{{Command: []string{"echo"}, Tags: []string{tag}}}},
			},
		}
		_, err := normalize(raw, "p")
		assert.Error(t, err, tag)
	}
}

func TestLocDisplayLabel(t *testing.T) {
	l := NewLoc("p")
	assert.Equal(t, "", l.DisplayLabel())
	l = l.ExtendTask("t")
	assert.Equal(t, "t", l.DisplayLabel())
	l = l.ExtendJob(3)
	assert.Equal(t, "t.3", l.DisplayLabel())
}

func TestRunConfigRestartDelayScenarioS6(t *testing.T) {
	jitter := uint16(5)
	rc := RunConfig{RestartDelaySecs: []uint16{10, 20}, MaxRestartJitter: &jitter}
	assert.Equal(t, uint16(15), *rc.RestartDelay(0))
	assert.Equal(t, uint16(25), *rc.RestartDelay(1))
	assert.Equal(t, uint16(25), *rc.RestartDelay(2))
}

func TestEnabledTasksOrJobs(t *testing.T) {
	raw := rawProject{
		Tasks: map[string]rawTask{
			"seq": {Jobs: []rawJob{{Command: []string{"echo"}}, {Command: []string{"echo"}}}},
			"par": {Parallel: true, Jobs: []rawJob{
				{Command: []string{"echo"}},
				{Command: []string{"echo"}, Disabled: true},
			}},
		},
	}
	proj, err := normalize(raw, "p")
	require.NoError(t, err)
	locs := proj.EnabledTasksOrJobs()
	assert.Len(t, locs, 2) // "seq" task-scoped + 1 enabled "par" job
}
