package project

// GetLoc returns the project-scoped Loc.
func (p *NormalizedProject) GetLoc() Loc {
	return NewLoc(p.Name)
}

// EnabledTasksOrJobs lists the units of the "no task selected" mode of
// §4.7, without tag filtering and in no particular order: sequential
// tasks contribute a single task-scoped Loc, parallel tasks contribute
// one job-scoped Loc per enabled job, and disabled tasks are skipped
// entirely. The runner walks the tasks itself and does not call it.
func (p *NormalizedProject) EnabledTasksOrJobs() []Loc {
	projLoc := p.GetLoc()
	var locs []Loc
	for taskName, task := range p.Tasks {
		if task.Disabled {
			continue
		}
		taskLoc := projLoc.ExtendTask(taskName)
		if task.Parallel {
			locs = append(locs, task.EnabledJobs(taskLoc)...)
		} else {
			locs = append(locs, taskLoc)
		}
	}
	return locs
}

// EnabledJobs returns the job-scoped Locs of this task's enabled jobs,
// in declaration order.
func (t *NormalizedTask) EnabledJobs(taskLoc Loc) []Loc {
	var locs []Loc
	for idx, job := range t.Jobs {
		if job.Disabled {
			continue
		}
		locs = append(locs, taskLoc.ExtendJob(idx))
	}
	return locs
}

// Argv returns the job's full command vector: its command, followed by
// source and target when present.
func (j NormalizedJob) Argv() []string {
	argv := append([]string{}, j.Command...)
	if j.Source != nil {
		argv = append(argv, *j.Source)
	}
	if j.Target != nil {
		argv = append(argv, *j.Target)
	}
	return argv
}
