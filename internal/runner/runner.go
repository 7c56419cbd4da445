// Package runner implements the supervisor that executes a project's
// tasks and jobs: sequential execution with restart/delay policy in
// this process, and parallel execution by spawning the binary itself
// once per job and reaping children via waitid.
package runner

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/stratastor/logger"
	"golang.org/x/sys/unix"

	"github.com/ifazk/chithi/internal/constants"
	"github.com/ifazk/chithi/internal/errors"
	"github.com/ifazk/chithi/internal/pidlock"
	"github.com/ifazk/chithi/internal/project"
	"github.com/ifazk/chithi/internal/tagfilter"
)

// Options configures one `run` invocation.
type Options struct {
	NoRunConfig    bool
	CreatePidFiles bool
	Tags           tagfilter.Filter
}

// Runner executes a NormalizedProject's tasks/jobs per Options.
type Runner struct {
	proj *project.NormalizedProject
	opts Options
	log  logger.Logger
}

// New builds a Runner for proj.
func New(proj *project.NormalizedProject, opts Options) *Runner {
	l, err := logger.NewTag(logger.Config{LogLevel: "info"}, "runner")
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return &Runner{proj: proj, opts: opts, log: l}
}

// Run dispatches the three selection modes of §4.7.
func (r *Runner) Run(ctx context.Context, sel Selector) error {
	if sel.Task == "" {
		return r.runNoTask(ctx)
	}

	task, ok := r.proj.Tasks[sel.Task]
	if !ok {
		return errors.New(errors.ProjectValidationFailed, "unknown task \""+sel.Task+"\"")
	}
	taskLoc := r.proj.GetLoc().ExtendTask(sel.Task)

	if sel.Job != nil {
		if *sel.Job < 0 || *sel.Job >= len(task.Jobs) {
			return errors.New(errors.ProjectValidationFailed, "job index out of range for task \""+sel.Task+"\"")
		}
		jobLoc := taskLoc.ExtendJob(*sel.Job)
		return r.runSingleJob(jobLoc, task.Jobs[*sel.Job])
	}

	if task.Parallel {
		locs := r.filterJobLocs(task, taskLoc)
		if len(locs) == 0 {
			return nil
		}
		return r.runParallelUnits(ctx, []parallelUnit{{label: taskLoc.DisplayLabel(), task: task, jobLocs: locs}})
	}
	return r.runSequentialTask(ctx, taskLoc, task)
}

// runNoTask implements the "no task selected" mode: sequential tasks run
// one after another in this process; every selected parallel task's
// enabled jobs are spawned together and reaped as one batch.
func (r *Runner) runNoTask(ctx context.Context) error {
	names := make([]string, 0, len(r.proj.Tasks))
	for name := range r.proj.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	var units []parallelUnit
	for _, name := range names {
		task := r.proj.Tasks[name]
		if task.Disabled {
			continue
		}
		taskLoc := r.proj.GetLoc().ExtendTask(name)

		if task.Parallel {
			locs := r.filterJobLocs(task, taskLoc)
			if len(locs) == 0 {
				continue
			}
			units = append(units, parallelUnit{label: taskLoc.DisplayLabel(), task: task, jobLocs: locs})
			continue
		}

		if !r.opts.Tags.Matches(task.Tags) {
			continue
		}
		if err := r.runSequentialTask(ctx, taskLoc, task); err != nil {
			return err
		}
	}

	if len(units) == 0 {
		return nil
	}
	return r.runParallelUnits(ctx, units)
}

// filterJobLocs narrows task's enabled job Locs down to the ones whose
// tags match the runner's filter.
func (r *Runner) filterJobLocs(task project.NormalizedTask, taskLoc project.Loc) []project.Loc {
	var locs []project.Loc
	for _, loc := range task.EnabledJobs(taskLoc) {
		if !r.opts.Tags.Matches(task.Jobs[*loc.JobNum].Tags) {
			continue
		}
		locs = append(locs, loc)
	}
	return locs
}

// sleepRandom sleeps a uniform random integer number of seconds in
// [0, n).
func sleepRandom(n uint16) {
	if n == 0 {
		return
	}
	secs := rand.Intn(int(n))
	if secs > 0 {
		time.Sleep(time.Duration(secs) * time.Second)
	}
}

func (r *Runner) pidFilePath(loc project.Loc) string {
	return filepath.Join(constants.PidFileDir, r.proj.Name, loc.DisplayLabel()+".pid")
}

func (r *Runner) acquirePidLock(loc project.Loc) (*pidlock.Lock, error) {
	if !r.opts.CreatePidFiles {
		return nil, nil
	}
	return pidlock.Acquire(r.pidFilePath(loc))
}

// runSingleJob runs exactly one job (the Task.Job selection mode),
// under a job-scoped pid lock when requested.
func (r *Runner) runSingleJob(jobLoc project.Loc, job project.NormalizedJob) error {
	lock, err := r.acquirePidLock(jobLoc)
	if err != nil {
		return err
	}
	defer lock.Release()
	return r.runJobWithRestarts(jobLoc, job)
}

// runSequentialTask runs task's jobs in declaration order in this
// process, under a task-scoped pid lock, honoring the initial delay and
// restart policy unless --no-run-config was passed.
func (r *Runner) runSequentialTask(ctx context.Context, taskLoc project.Loc, task project.NormalizedTask) error {
	if task.Disabled {
		return nil
	}
	if !r.opts.Tags.Matches(task.Tags) {
		return nil
	}

	lock, err := r.acquirePidLock(taskLoc)
	if err != nil {
		return err
	}
	defer lock.Release()

	if !r.opts.NoRunConfig {
		if d := r.proj.RunConfig.MaxInitialDelaySecs; d != nil {
			sleepRandom(*d)
		}
	}

	for idx, job := range task.Jobs {
		if job.Disabled {
			continue
		}
		jobLoc := taskLoc.ExtendJob(idx)
		if err := r.runJobWithRestarts(jobLoc, job); err != nil {
			return err
		}
	}
	return nil
}

// runJobWithRestarts runs job's command, retrying per the run-config
// restart policy, and fires its own on-success hook synchronously on a
// zero exit.
func (r *Runner) runJobWithRestarts(jobLoc project.Loc, job project.NormalizedJob) error {
	if job.Disabled {
		return nil
	}

	maxRestarts := 0
	if !r.opts.NoRunConfig && r.proj.RunConfig.MaxRestartCount != nil {
		maxRestarts = int(*r.proj.RunConfig.MaxRestartCount)
	}

	argv := job.Argv()
	for attempt := 0; ; attempt++ {
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdin = nil
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		runErr := cmd.Run()
		if runErr == nil {
			r.runOnSuccessSync(jobLoc, job.OnSuccess)
			return nil
		}

		r.log.Error("job exited non-zero", "loc", jobLoc.String(), "err", runErr.Error())
		if r.opts.NoRunConfig || attempt >= maxRestarts {
			return errors.New(errors.RunnerRestartsExhausted, jobLoc.String()+" exhausted its restart count")
		}
		if delay := r.proj.RunConfig.RestartDelay(attempt); delay != nil {
			sleepRandom(*delay)
		}
	}
}

// runOnSuccessSync runs a job's own on-success hook synchronously;
// failures are logged and swallowed per §7.
func (r *Runner) runOnSuccessSync(loc project.Loc, argv []string) {
	if len(argv) == 0 {
		return
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		r.log.Warn("on-success hook failed", "loc", loc.String(), "err", err.Error())
	}
}

// waitAnyChild blocks until any child process is exited-but-unreaped,
// peeking its pid via waitid(P_ALL, WEXITED|WNOWAIT) without consuming
// its zombie — the caller still owns harvesting it via cmd.Wait().
func waitAnyChild() (int, error) {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_ALL, 0, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, errors.Wrap(err, errors.CommandExecution)
		}
		return int(info.Pid), nil
	}
}
