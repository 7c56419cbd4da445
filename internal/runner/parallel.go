package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ifazk/chithi/internal/errors"
	"github.com/ifazk/chithi/internal/project"
)

// parallelUnit is one parallel task's enabled, tag-matching jobs,
// spawned and reaped together.
type parallelUnit struct {
	label   string
	task    project.NormalizedTask
	jobLocs []project.Loc
}

// childEntry tracks one in-flight spawned process: either a real job
// (loc set) or a task's on-success hook (loc nil, per §4.7's "no Loc
// attribution").
type childEntry struct {
	cmd  *exec.Cmd
	loc  *project.Loc
	task string
}

// resolveSelfExec picks the argv prefix used to re-invoke chithi for a
// single task/job: the current executable when it is a dedicated "-run"
// binary, the current executable with an inserted "run" subcommand when
// it is the umbrella "chithi" binary, and otherwise the name "chithi"
// with an inserted "run" subcommand.
func resolveSelfExec() (path string, prefix []string) {
	exe, err := os.Executable()
	if err != nil {
		return "chithi", []string{"run"}
	}
	base := filepath.Base(exe)
	switch {
	case strings.HasSuffix(base, "-run"):
		return exe, nil
	case base == "chithi":
		return exe, []string{"run"}
	}
	return "chithi", []string{"run"}
}

func (r *Runner) spawnSelf(loc project.Loc) (*exec.Cmd, error) {
	path, prefix := resolveSelfExec()
	args := append(append([]string{}, prefix...), "--project", r.proj.Name)
	if r.opts.CreatePidFiles {
		args = append(args, "--create-pid-files")
	}
	args = append(args, loc.DisplayLabel())

	cmd := exec.Command(path, args...)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.CommandExecution)
	}
	return cmd, nil
}

func (r *Runner) spawnOnSuccessAsync(argv []string) (*exec.Cmd, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.CommandExecution)
	}
	return cmd, nil
}

// runParallelUnits spawns every unit's enabled jobs, then reaps them
// via waitid(P_ALL, WEXITED|WNOWAIT), accounting each task's pending
// in-flight count and firing its on-success hook (itself entered into
// the same reaping map) once that count reaches zero without a
// non-zero exit.
func (r *Runner) runParallelUnits(ctx context.Context, units []parallelUnit) error {
	handles := make(map[int]*childEntry)
	pending := make(map[string]int)
	byLabel := make(map[string]parallelUnit, len(units))

	for _, u := range units {
		byLabel[u.label] = u
		if len(u.task.OnSuccess) > 0 {
			pending[u.label] = 0
		}
	}

	for _, u := range units {
		for _, jobLoc := range u.jobLocs {
			jobLoc := jobLoc
			lock, err := r.acquirePidLock(jobLoc)
			if err != nil {
				return err
			}
			// The child re-acquires its own job-level pid lock inside
			// the spawned process; this process's handle on the same
			// file must close before the child runs, or the lock would
			// self-contend.
			lock.Release()
			cmd, err := r.spawnSelf(jobLoc)
			if err != nil {
				return err
			}
			handles[cmd.Process.Pid] = &childEntry{cmd: cmd, loc: &jobLoc, task: u.label}
			if _, tracked := pending[u.label]; tracked {
				pending[u.label]++
			}
		}
	}

	var failedTasks []string
	for len(handles) > 0 {
		pid, err := waitAnyChild()
		if err != nil {
			return err
		}
		entry, ok := handles[pid]
		if !ok {
			return errors.New(errors.RunnerUnknownChild, fmt.Sprintf("reaped unknown child pid %d", pid))
		}
		delete(handles, pid)
		waitErr := entry.cmd.Wait()

		if entry.loc == nil {
			if waitErr != nil {
				r.log.Warn("on-success hook failed", "task", entry.task, "err", waitErr.Error())
			}
			continue
		}

		if waitErr != nil {
			r.log.Error("parallel job exited non-zero", "loc", entry.loc.String(), "err", waitErr.Error())
			failedTasks = append(failedTasks, entry.task)
			delete(pending, entry.task)
			continue
		}

		count, tracked := pending[entry.task]
		if !tracked {
			continue
		}
		count--
		pending[entry.task] = count
		if count == 0 {
			delete(pending, entry.task)
			hookCmd, err := r.spawnOnSuccessAsync(byLabel[entry.task].task.OnSuccess)
			if err != nil {
				r.log.Warn("failed to spawn on-success hook", "task", entry.task, "err", err.Error())
				continue
			}
			handles[hookCmd.Process.Pid] = &childEntry{cmd: hookCmd, loc: nil, task: entry.task}
		}
	}

	if len(failedTasks) > 0 {
		return errors.New(errors.RunnerTaskFailed, "failed tasks: "+strings.Join(failedTasks, ", "))
	}
	return nil
}
