package project

import "sort"

// Listing is one row of `chithi list`'s output: a task-scoped row for a
// sequential task (or a lone-job task, whose job details are surfaced
// directly), or a job-scoped row for each job of a parallel task
// (disabled jobs included, marked as such, unless skipDisabled is set).
type Listing struct {
	Loc      Loc
	Disabled bool
	Source   *string
	Target   *string
	Command  []string
}

// Listings builds the listing rows for every task in the project, in
// name order; skipDisabled drops disabled tasks/jobs entirely rather
// than marking them.
func (p *NormalizedProject) Listings(skipDisabled bool) []Listing {
	return p.listingsFor(p.sortedTaskNames(), skipDisabled)
}

// TaskListings builds the listing rows for a single named task.
func (p *NormalizedProject) TaskListings(taskName string, skipDisabled bool) ([]Listing, bool) {
	if _, ok := p.Tasks[taskName]; !ok {
		return nil, false
	}
	return p.listingsFor([]string{taskName}, skipDisabled), true
}

func (p *NormalizedProject) sortedTaskNames() []string {
	names := make([]string, 0, len(p.Tasks))
	for name := range p.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *NormalizedProject) listingsFor(names []string, skipDisabled bool) []Listing {
	projLoc := NewLoc(p.Name)
	var out []Listing
	for _, name := range names {
		task := p.Tasks[name]
		if skipDisabled && task.Disabled {
			continue
		}
		taskLoc := projLoc.ExtendTask(name)

		if task.Parallel {
			for idx, job := range task.Jobs {
				if skipDisabled && job.Disabled {
					continue
				}
				out = append(out, Listing{
					Loc:      taskLoc.ExtendJob(idx),
					Disabled: job.Disabled,
					Source:   job.Source,
					Target:   job.Target,
					Command:  job.Command,
				})
			}
			continue
		}

		listing := Listing{Loc: taskLoc, Disabled: task.Disabled}
		if len(task.Jobs) == 1 {
			job := task.Jobs[0]
			listing.Disabled = job.Disabled
			listing.Source = job.Source
			listing.Target = job.Target
			listing.Command = job.Command
		}
		out = append(out, listing)
	}
	return out
}
