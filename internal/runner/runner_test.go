package runner

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifazk/chithi/internal/constants"
	"github.com/ifazk/chithi/internal/project"
	"github.com/ifazk/chithi/internal/tagfilter"
)

func tagSet(tags ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return m
}

func testProject() *project.NormalizedProject {
	return &project.NormalizedProject{
		Name: "backups",
		Tasks: map[string]project.NormalizedTask{
			"nightly": {
				Parallel: true,
				Jobs: []project.NormalizedJob{
					{Command: []string{"true"}, Tags: tagSet("fast")},
					{Command: []string{"true"}, Disabled: true, Tags: tagSet("slow")},
					{Command: []string{"true"}, Tags: tagSet("slow")},
				},
			},
		},
	}
}

func TestPidFilePath(t *testing.T) {
	r := New(testProject(), Options{})
	loc := project.NewLoc("backups").ExtendTask("nightly").ExtendJob(2)
	got := r.pidFilePath(loc)
	assert.Equal(t, filepath.Join(constants.PidFileDir, "backups", "nightly.2.pid"), got)
}

func TestAcquirePidLockNoopWhenDisabled(t *testing.T) {
	r := New(testProject(), Options{CreatePidFiles: false})
	loc := project.NewLoc("backups").ExtendTask("nightly")
	lock, err := r.acquirePidLock(loc)
	require.NoError(t, err)
	assert.Nil(t, lock)
	assert.NoError(t, lock.Release())
}

func TestAcquirePidLockWritesFile(t *testing.T) {
	// pidFilePath is rooted at constants.PidFileDir, which this process
	// may not be able to write to; skip rather than fail in that case.
	r := New(testProject(), Options{CreatePidFiles: true})
	loc := project.NewLoc("backups").ExtendTask("nightly").ExtendJob(0)
	lock, err := r.acquirePidLock(loc)
	if err != nil {
		t.Skipf("cannot write under %s in this environment: %v", constants.PidFileDir, err)
	}
	require.NotNil(t, lock)
	assert.NoError(t, lock.Release())
}

func TestFilterJobLocsSkipsDisabledAndUnmatchedTags(t *testing.T) {
	proj := testProject()
	r := New(proj, Options{Tags: mustParseFilter(t, "slow")})
	task := proj.Tasks["nightly"]
	taskLoc := project.NewLoc("backups").ExtendTask("nightly")

	locs := r.filterJobLocs(task, taskLoc)
	require.Len(t, locs, 1)
	assert.Equal(t, "nightly.2", locs[0].DisplayLabel())
}

func TestFilterJobLocsDefaultMatchesAllEnabled(t *testing.T) {
	proj := testProject()
	r := New(proj, Options{})
	task := proj.Tasks["nightly"]
	taskLoc := project.NewLoc("backups").ExtendTask("nightly")

	locs := r.filterJobLocs(task, taskLoc)
	require.Len(t, locs, 2)
	assert.Equal(t, "nightly.0", locs[0].DisplayLabel())
	assert.Equal(t, "nightly.2", locs[1].DisplayLabel())
}

func mustParseFilter(t *testing.T, expr string) tagfilter.Filter {
	t.Helper()
	f, err := tagfilter.Parse(expr)
	require.NoError(t, err)
	return f
}

func TestResolveSelfExecInsertsRunSubcommandForTestBinary(t *testing.T) {
	// The test binary's own name never ends in "-run", so this exercises
	// the umbrella-fallback branch deterministically.
	_, prefix := resolveSelfExec()
	assert.Equal(t, []string{"run"}, prefix)
}
