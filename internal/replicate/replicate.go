// Package replicate implements the replication planner/executor: given
// a source and target dataset, it discovers the child-dataset tree,
// orders it topologically, diffs snapshots, and streams each dataset's
// `zfs send` output into the paired `zfs receive`, optionally bridging
// across two remote hosts.
package replicate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/stratastor/logger"

	"github.com/ifazk/chithi/internal/cmdexec"
	"github.com/ifazk/chithi/internal/dataset"
	"github.com/ifazk/chithi/internal/errors"
	"github.com/ifazk/chithi/internal/sendrecv"
	"github.com/ifazk/chithi/internal/target"
)

// optionalTools are probed via check_exists but never fail the run: a
// missing tool is only logged. The transfer pipeline does not use any of
// them, whether present or not.
var optionalTools = []string{"mbuffer", "pv", "lzop", "zstd"}

// sendAllowed/recvAllowed are the `zfs send`/`zfs receive` single-letter
// flags chithi recognizes out of an arbitrary --send-opts/--recv-opts
// string; anything else in the user's string is silently dropped by
// sendrecv.FilterAllowed.
const (
	sendAllowed = "RLenpvc"
	recvAllowed = "Fuvsen"
)

// Options configures one replication run.
type Options struct {
	Recursive     bool
	CloneHandling bool
	SourceSudo    bool
	TargetSudo    bool
	SendOpts      string
	RecvOpts      string
	Debug         bool
	// KeepSnapshots, when > 0, prunes all but the newest KeepSnapshots
	// snapshots per dataset on target after a successful transfer.
	KeepSnapshots int
}

// Planner orchestrates a single source→target replication.
type Planner struct {
	Source   *target.Target
	Target   *target.Target
	SourceFs dataset.Fs
	TargetFs dataset.Fs
	Opts     Options

	runner *cmdexec.Runner
	log    logger.Logger
	runID  string
}

// New builds a Planner for a single replication invocation.
func New(source, tgt *target.Target, sourceFs, targetFs dataset.Fs, opts Options) *Planner {
	l, err := logger.NewTag(logger.Config{LogLevel: "info"}, "replicate")
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return &Planner{
		Source: source, Target: tgt,
		SourceFs: sourceFs, TargetFs: targetFs,
		Opts:   opts,
		runner: cmdexec.NewRunner(),
		log:    l,
		runID:  uuid.NewString(),
	}
}

// Run executes the full replication per spec §4.4: acquire control,
// verify tools, discover, order, and transfer. SSH master control is
// torn down on every exit path.
func (p *Planner) Run(ctx context.Context) error {
	if err := p.Source.MakeControl(); err != nil {
		return err
	}
	defer p.Source.DestroyControl()
	if err := p.Target.MakeControl(); err != nil {
		return err
	}
	defer p.Target.DestroyControl()

	if err := p.checkRequiredTools(); err != nil {
		return err
	}
	p.probeOptionalTools()

	children, err := p.discoverChildren(ctx)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		p.log.Debug("no child datasets discovered", "source", p.SourceFs.String(), "run", p.runID)
		return nil
	}

	sorted, mustExist := p.SourceFs.TopologicalSort(children)
	if len(sorted) != len(children) {
		return errors.New(errors.DatasetParseFailed, "topological sort did not cover every discovered dataset")
	}

	if err := p.ensureMustExist(ctx, mustExist); err != nil {
		return err
	}

	for _, idx := range sorted {
		child := children[idx]
		targetChild, err := p.TargetFs.ChildFromSource(p.SourceFs, child, p.Opts.CloneHandling)
		if err != nil {
			return errors.Wrap(err, errors.DatasetParseFailed)
		}
		if err := p.transferOne(ctx, child, targetChild); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) checkRequiredTools() error {
	for _, t := range []struct {
		tgt  *target.Target
		sudo bool
	}{{p.Source, p.Opts.SourceSudo}, {p.Target, p.Opts.TargetSudo}} {
		c := cmdexec.New(t.tgt, t.sudo, "zfs")
		if err := c.CheckExists(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) probeOptionalTools() {
	for _, t := range []*target.Target{p.Source, p.Target} {
		for _, tool := range optionalTools {
			c := cmdexec.New(t, false, tool)
			if err := c.CheckExists(); err != nil {
				p.log.Debug("optional tool not available, degrading silently", "tool", tool, "target", t.PrettyStr())
			}
		}
	}
}

// discoverChildren runs `zfs list -Hrp -t filesystem,volume -o
// name,origin` rooted at the source dataset and parses each
// `name<TAB>origin` line into a dataset.Fs: name is validated with
// dataset.ParseDatasetName and origin, when present, with
// dataset.SnapshotNameCheck, before either is trusted.
func (p *Planner) discoverChildren(ctx context.Context) ([]dataset.Fs, error) {
	c := cmdexec.New(p.Source, p.Opts.SourceSudo, "zfs",
		"list", "-Hrp", "-t", "filesystem,volume", "-o", "name,origin", p.SourceFs.Path)
	out, err := c.CaptureStdout(ctx)
	if err != nil {
		return nil, err
	}

	var children []dataset.Fs
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		name := fields[0]
		origin := "-"
		if len(fields) == 2 {
			origin = fields[1]
		}
		if _, err := dataset.ParseDatasetName(name); err != nil {
			return nil, err
		}
		if origin != "-" {
			if err := dataset.SnapshotNameCheck(origin); err != nil {
				return nil, err
			}
		}
		children = append(children, p.SourceFs.NewChild(name, origin))
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })
	return children, nil
}

// ensureMustExist creates, empty, every ancestor dataset that the
// topological sort flagged as required but not itself selected for
// transfer.
func (p *Planner) ensureMustExist(ctx context.Context, mustExist map[string]struct{}) error {
	paths := make([]string, 0, len(mustExist))
	for path := range mustExist {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, sourcePath := range paths {
		suffix, ok := p.SourceFs.StripParentFrom(sourcePath)
		if !ok {
			continue
		}
		targetPath := p.TargetFs.Path
		if suffix != "" {
			targetPath += "/" + suffix
		}
		c := cmdexec.New(p.Target, p.Opts.TargetSudo, "zfs", "create", "-p", targetPath)
		if err := p.runner.RunStatus(ctx, c, p.Opts.Debug); err != nil {
			return err
		}
	}
	return nil
}

// listSnapshots returns the snapshot names (suffix after '@', oldest
// first) of dataset on t.
func (p *Planner) listSnapshots(ctx context.Context, t *target.Target, sudo bool, ds string) ([]string, error) {
	c := cmdexec.New(t, sudo, "zfs",
		"list", "-Hrp", "-t", "snapshot", "-o", "name", "-s", "creation", "-d", "1", ds)
	out, err := c.CaptureStdout(ctx)
	if err != nil {
		// treat "dataset does not exist" as "no snapshots yet" for a
		// first-run target side.
		return nil, nil
	}
	var snaps []string
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		_, snap, ok := strings.Cut(line, "@")
		if !ok {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func latestCommon(sourceSnaps, targetSnaps []string) string {
	targetSet := make(map[string]struct{}, len(targetSnaps))
	for _, s := range targetSnaps {
		targetSet[s] = struct{}{}
	}
	for i := len(sourceSnaps) - 1; i >= 0; i-- {
		if _, ok := targetSet[sourceSnaps[i]]; ok {
			return sourceSnaps[i]
		}
	}
	return ""
}

// transferOne diffs snapshots for one dataset pair and assembles +
// executes the send/receive pipeline.
func (p *Planner) transferOne(ctx context.Context, source, targetChild dataset.Fs) error {
	sourceSnaps, err := p.listSnapshots(ctx, p.Source, p.Opts.SourceSudo, source.Path)
	if err != nil {
		return err
	}
	if len(sourceSnaps) == 0 {
		p.log.Debug("dataset has no snapshots, skipping", "dataset", source.Path)
		return nil
	}
	newest := sourceSnaps[len(sourceSnaps)-1]

	targetSnaps, _ := p.listSnapshots(ctx, p.Target, p.Opts.TargetSudo, targetChild.Path)
	common := latestCommon(sourceSnaps, targetSnaps)

	sendArgs, err := p.sendArgs(source.Path, common, newest)
	if err != nil {
		return err
	}
	recvArgs, err := p.recvArgs()
	if err != nil {
		return err
	}

	sendCmd := cmdexec.New(p.Source, p.Opts.SourceSudo, "zfs", append([]string{"send"}, sendArgs...)...)
	recvCmd := cmdexec.New(p.Target, p.Opts.TargetSudo, "zfs", append(append([]string{"receive"}, recvArgs...), targetChild.Path)...)

	pipelineTarget := p.Source
	stages := []*cmdexec.Cmd{sendCmd}
	if p.Source.Equal(p.Target) {
		stages = append(stages, recvCmd)
	} else {
		// Two distinct remote hosts can't be piped directly; each stage
		// carries its own ssh prefix and the pipe itself runs locally as
		// the relay.
		pipelineTarget = target.NewLocal()
		stages = []*cmdexec.Cmd{sendCmd, recvCmd}
	}

	pipeline := cmdexec.NewPipeline(pipelineTarget, stages...)
	p.log.Debug("executing transfer pipeline", "pipeline", pipeline.String(), "run", p.runID)
	if err := pipeline.Status(ctx, p.Opts.Debug); err != nil {
		return err
	}

	if p.Opts.KeepSnapshots > 0 {
		p.pruneSnapshots(ctx, targetChild)
	}
	return nil
}

func (p *Planner) sendArgs(sourcePath, common, newest string) ([]string, error) {
	var args []string
	if opts := p.Opts.SendOpts; opts != "" {
		parsed, err := sendrecv.Parse(opts)
		if err != nil {
			return nil, err
		}
		args = append(args, parsed.FilterAllowed(sendAllowed)...)
	}
	if common != "" {
		args = append(args, "-I", common, sourcePath+"@"+newest)
	} else if p.Opts.Recursive {
		args = append(args, "-R", sourcePath+"@"+newest)
	} else {
		args = append(args, sourcePath+"@"+newest)
	}
	return args, nil
}

func (p *Planner) recvArgs() ([]string, error) {
	if p.Opts.RecvOpts == "" {
		return nil, nil
	}
	parsed, err := sendrecv.Parse(p.Opts.RecvOpts)
	if err != nil {
		return nil, err
	}
	return parsed.FilterAllowed(recvAllowed), nil
}

// pruneSnapshots keeps only the newest Opts.KeepSnapshots snapshots of
// targetChild, destroying the rest. Failures are logged and swallowed:
// retention is best-effort housekeeping, not part of the transfer's
// success criteria.
func (p *Planner) pruneSnapshots(ctx context.Context, targetChild dataset.Fs) {
	snaps, err := p.listSnapshots(ctx, p.Target, p.Opts.TargetSudo, targetChild.Path)
	if err != nil || len(snaps) <= p.Opts.KeepSnapshots {
		return
	}
	toPrune := snaps[:len(snaps)-p.Opts.KeepSnapshots]
	for _, snap := range toPrune {
		c := cmdexec.New(p.Target, p.Opts.TargetSudo, "zfs", "destroy", targetChild.Path+"@"+snap)
		if err := p.runner.RunStatus(ctx, c, p.Opts.Debug); err != nil {
			p.log.Warn("failed to prune snapshot", "dataset", targetChild.Path, "snapshot", snap, "err", err.Error())
		}
	}
}
