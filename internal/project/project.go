package project

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"

	"github.com/ifazk/chithi/internal/constants"
	"github.com/ifazk/chithi/internal/errors"
)

// ProjectDir is where project configuration files live.
const ProjectDir = constants.ConfigDir

// rawJob/rawTask/rawRunConfig/rawProject mirror the TOML shape exactly,
// before defaulting and validation.
type rawJob struct {
	Command   []string `toml:"command"`
	Disabled  bool     `toml:"disabled"`
	Source    *string  `toml:"source"`
	Target    *string  `toml:"target"`
	Tags      []string `toml:"tags"`
	OnSuccess []string `toml:"on-success"`
}

type rawTask struct {
	Command   []string `toml:"command"`
	Disabled  bool     `toml:"disabled"`
	Parallel  bool     `toml:"parallel"`
	Tags      []string `toml:"tags"`
	OnSuccess []string `toml:"on-success"`
	Jobs      []rawJob `toml:"job"`
}

type rawRunConfig struct {
	MaxInitialDelaySecs *uint16  `toml:"max-initial-delay-secs"`
	MaxRestartCount     *uint8   `toml:"max-restarts"`
	RestartDelaySecs    []uint16 `toml:"restart-delay-secs"`
	MaxRestartJitter    *uint16  `toml:"max-restart-jitter"`
}

type rawProject struct {
	Command  []string           `toml:"command"`
	Disabled bool               `toml:"disabled"`
	Run      *rawRunConfig      `toml:"run"`
	Tasks    map[string]rawTask `toml:"task"`
}

// RunConfig is the normalized restart/delay policy for sequential job
// execution.
type RunConfig struct {
	MaxInitialDelaySecs *uint16
	MaxRestartCount     *uint8
	RestartDelaySecs    []uint16
	MaxRestartJitter    *uint16
}

// RestartDelay implements testable property 6: the delay for restart
// attempt i is restart_delay_secs[min(i, len-1)] plus jitter when both
// are set, whichever is set when only one is, or nil when neither is.
func (rc RunConfig) RestartDelay(attemptIndex int) *uint16 {
	var delay *uint16
	if n := len(rc.RestartDelaySecs); n > 0 {
		idx := attemptIndex
		if idx >= n {
			idx = n - 1
		}
		d := rc.RestartDelaySecs[idx]
		delay = &d
	}
	switch {
	case delay != nil && rc.MaxRestartJitter != nil:
		sum := *delay + *rc.MaxRestartJitter
		return &sum
	case delay != nil:
		return delay
	default:
		return rc.MaxRestartJitter
	}
}

// NormalizedJob is a fully defaulted, validated job ready to execute.
type NormalizedJob struct {
	Command   []string
	Disabled  bool
	Source    *string
	Target    *string
	Tags      map[string]struct{}
	OnSuccess []string
}

// NormalizedTask is a fully defaulted, validated task.
type NormalizedTask struct {
	Disabled  bool
	Parallel  bool
	Tags      map[string]struct{}
	OnSuccess []string
	Jobs      []NormalizedJob
}

// NormalizedProject is the fully defaulted, validated project tree.
type NormalizedProject struct {
	Name      string
	Disabled  bool
	RunConfig RunConfig
	Tasks     map[string]NormalizedTask
}

// Load reads and normalizes /etc/chithi/<name>.toml.
func Load(name string) (*NormalizedProject, error) {
	path := filepath.Join(ProjectDir, name+".toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ProjectFileNotFound, path+" not found")
		}
		return nil, errors.Wrap(err, errors.ProjectFileNotFound)
	}

	var raw rawProject
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.New(errors.ProjectDecodeFailed, "could not parse project toml "+path+": "+err.Error())
	}

	return normalize(raw, name)
}

func normalize(raw rawProject, name string) (*NormalizedProject, error) {
	projLoc := NewLoc(name)
	if err := checkCommandMaybe(raw.Command, projLoc); err != nil {
		return nil, err
	}

	tasks := make(map[string]NormalizedTask, len(raw.Tasks))
	for taskName, task := range raw.Tasks {
		taskLoc := projLoc.ExtendTask(taskName)
		if err := checkCommandMaybe(task.Command, taskLoc); err != nil {
			return nil, err
		}

		taskCommand := task.Command
		if taskCommand == nil {
			taskCommand = raw.Command
		}
		taskDisabled := task.Disabled || raw.Disabled

		taskTags, err := validateTags(task.Tags, taskLoc)
		if err != nil {
			return nil, err
		}

		jobs := make([]NormalizedJob, 0, len(task.Jobs))
		for jobNum, job := range task.Jobs {
			jobLoc := taskLoc.ExtendJob(jobNum)
			if err := checkCommandMaybe(job.Command, jobLoc); err != nil {
				return nil, err
			}
			jobCommand := job.Command
			if jobCommand == nil {
				jobCommand = taskCommand
			}
			if len(jobCommand) == 0 {
				return nil, errors.New(errors.ProjectValidationFailed,
					"command not set for "+jobLoc.String()+", please set a command at the job, task, or project level")
			}

			hasSourceTarget := job.Source != nil && job.Target != nil
			if err := checkSyncJob(jobCommand, jobLoc, hasSourceTarget); err != nil {
				return nil, err
			}

			jobTags, err := validateTags(job.Tags, jobLoc)
			if err != nil {
				return nil, err
			}

			jobs = append(jobs, NormalizedJob{
				Command:   jobCommand,
				Disabled:  job.Disabled || taskDisabled,
				Source:    job.Source,
				Target:    job.Target,
				Tags:      jobTags,
				OnSuccess: job.OnSuccess,
			})
		}

		if err := checkTaskTagRules(task.Parallel, task.OnSuccess, jobs, taskLoc); err != nil {
			return nil, err
		}
		// invariant (vi): a lone, untagged task inherits its only job's tags.
		if len(jobs) == 1 && len(taskTags) == 0 {
			taskTags = jobs[0].Tags
		}

		tasks[taskName] = NormalizedTask{
			Disabled:  taskDisabled,
			Parallel:  task.Parallel,
			Tags:      taskTags,
			OnSuccess: task.OnSuccess,
			Jobs:      jobs,
		}
	}

	var runConfig RunConfig
	if raw.Run != nil {
		runConfig = RunConfig{
			MaxInitialDelaySecs: raw.Run.MaxInitialDelaySecs,
			MaxRestartCount:     raw.Run.MaxRestartCount,
			RestartDelaySecs:    raw.Run.RestartDelaySecs,
			MaxRestartJitter:    raw.Run.MaxRestartJitter,
		}
	}

	return &NormalizedProject{
		Name:      name,
		Disabled:  raw.Disabled,
		RunConfig: runConfig,
		Tasks:     tasks,
	}, nil
}

func checkCommandMaybe(command []string, loc Loc) error {
	if command == nil {
		return nil
	}
	return checkCommand(command, loc)
}

// checkCommand enforces invariant (i)'s non-emptiness at every level it
// is declared, plus the "chithi alone needs a subcommand" sanity check.
func checkCommand(command []string, loc Loc) error {
	if len(command) == 0 {
		return errors.New(errors.ProjectValidationFailed,
			"invalid 0 length command for "+loc.String()+", please set a command with at least the command name")
	}
	if command[0] == "chithi" && len(command) < 2 {
		return errors.New(errors.ProjectValidationFailed,
			"invalid chithi command found with no args for "+loc.String()+", please set a chithi subcommand")
	}
	return nil
}

// checkSyncJob implements invariant (ii): only a command whose first two
// tokens are literally "chithi" "sync" requires source and target.
func checkSyncJob(command []string, loc Loc, hasSourceTarget bool) error {
	if len(command) >= 2 && command[0] == "chithi" && command[1] == "sync" && !hasSourceTarget {
		return errors.New(errors.ProjectValidationFailed,
			"chithi sync command found for "+loc.String()+", but job did not have source and target")
	}
	return nil
}

var reservedTags = []string{"none", "any", "all", "and", "or", "not", "|", "||", "&", "&&"}

// validateTags implements invariant (iii) and converts the declared tag
// list into a set.
func validateTags(tags []string, loc Loc) (map[string]struct{}, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if err := validateTagName(tag, loc); err != nil {
			return nil, err
		}
		set[tag] = struct{}{}
	}
	return set, nil
}

func validateTagName(tag string, loc Loc) error {
	if tag == "" {
		return errors.New(errors.ProjectValidationFailed, "empty tag for "+loc.String())
	}
	if strings.HasPrefix(tag, "/") || strings.HasPrefix(tag, "!") {
		return errors.New(errors.ProjectValidationFailed, "tag \""+tag+"\" for "+loc.String()+" must not start with '/' or '!'")
	}
	if strings.ContainsAny(tag, ",()\"'") {
		return errors.New(errors.ProjectValidationFailed, "tag \""+tag+"\" for "+loc.String()+" contains a reserved character")
	}
	for _, c := range tag {
		if unicode.IsSpace(c) {
			return errors.New(errors.ProjectValidationFailed, "tag \""+tag+"\" for "+loc.String()+" contains whitespace")
		}
	}
	for _, r := range reservedTags {
		if tag == r {
			return errors.New(errors.ProjectValidationFailed, "tag \""+tag+"\" for "+loc.String()+" is a reserved word")
		}
	}
	return nil
}

// checkTaskTagRules implements invariants (iv) and (v).
func checkTaskTagRules(parallel bool, onSuccess []string, jobs []NormalizedJob, taskLoc Loc) error {
	if !parallel && len(jobs) > 1 {
		for i, j := range jobs {
			if len(j.Tags) > 0 {
				return errors.New(errors.ProjectValidationFailed,
					taskLoc.ExtendJob(i).String()+" is in a sequential task with more than one job and must not carry tags")
			}
		}
	}
	if parallel && len(onSuccess) > 0 {
		for i, j := range jobs {
			if len(j.Tags) > 0 {
				return errors.New(errors.ProjectValidationFailed,
					taskLoc.ExtendJob(i).String()+" is in a parallel task with an on-success hook and must not carry tags")
			}
		}
	}
	return nil
}
