// Package project loads and normalizes a chithi project configuration:
// the declarative tree of tasks and jobs read from
// /etc/chithi/<name>.toml.
package project

import "fmt"

// Loc identifies a point in a project's task/job tree, purely for
// logging and pid-file naming — never semantically load-bearing beyond
// that.
type Loc struct {
	ProjName string
	TaskName *string
	JobNum   *int
}

// NewLoc builds a project-scoped Loc.
func NewLoc(projName string) Loc {
	return Loc{ProjName: projName}
}

// ExtendTask returns a copy of l scoped to taskName.
func (l Loc) ExtendTask(taskName string) Loc {
	l.TaskName = &taskName
	return l
}

// ExtendJob returns a copy of l scoped to jobNum.
func (l Loc) ExtendJob(jobNum int) Loc {
	l.JobNum = &jobNum
	return l
}

// DisplayLabel renders the compact form used for pid-file names and CLI
// task selectors: "task.jobnum", "task", or "" at project scope.
func (l Loc) DisplayLabel() string {
	switch {
	case l.TaskName != nil && l.JobNum != nil:
		return fmt.Sprintf("%s.%d", *l.TaskName, *l.JobNum)
	case l.TaskName != nil:
		return *l.TaskName
	default:
		return ""
	}
}

// String renders the verbose log form, e.g. "task t job 3 in project p".
func (l Loc) String() string {
	var s string
	if l.TaskName != nil {
		s += fmt.Sprintf("task %s ", *l.TaskName)
	}
	if l.JobNum != nil {
		s += fmt.Sprintf("job %d ", *l.JobNum)
	}
	if l.TaskName != nil || l.JobNum != nil {
		s += "in "
	}
	return s + fmt.Sprintf("project %s", l.ProjName)
}
