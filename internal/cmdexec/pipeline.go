package cmdexec

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ifazk/chithi/internal/errors"
	"github.com/ifazk/chithi/internal/target"
)

// chain is the shared shape of Pipeline and Sequence: an ordered,
// non-empty list of Cmd sharing one Target, joined by sep ("|" or ";")
// when materialized through a shell.
type chain struct {
	target *target.Target
	sep    string
	cmds   []*Cmd
}

func newChain(tgt *target.Target, sep string, cmds []*Cmd) *chain {
	return &chain{target: tgt, sep: sep, cmds: cmds}
}

// escapeCmd renders a single stage for inclusion inside a shell script
// string: a remote stage whose target differs from the chain's own target
// carries its own "ssh host" prefix (for bridging across two hosts
// mid-pipeline), followed by the sudo prefix, base, and escaped args.
func escapeCmd(c *Cmd, chainTarget *target.Target) string {
	var b strings.Builder
	if c.Target.IsRemote() && !c.Target.Equal(chainTarget) {
		fmt.Fprintf(&b, "ssh %s ", c.Target.Host())
	}
	if c.Sudo {
		b.WriteString("sudo ")
	}
	b.WriteString(c.Base)
	for _, a := range c.Args {
		b.WriteByte(' ')
		b.WriteString(escapeArg(a))
	}
	return b.String()
}

// toExecCmd materializes the chain: single-stage chains degenerate to the
// underlying Cmd; local multi-stage chains run under `sh -c --`; remote
// chains run under `ssh [opts] host "stage0 <sep> stage1 ..."`.
func (c *chain) toExecCmd() *exec.Cmd {
	if len(c.cmds) == 1 {
		return c.cmds[0].ToExecCmd()
	}

	script := escapeCmd(c.cmds[0], c.target)
	for _, stage := range c.cmds[1:] {
		script += " " + c.sep + " " + escapeCmd(stage, c.target)
	}

	if !c.target.IsRemote() {
		return exec.Command("sh", "-c", "--", script)
	}
	argv := append(c.target.SSHPrefixArgs(), script)
	return exec.Command(argv[0], argv[1:]...)
}

func (c *chain) String() string {
	if len(c.cmds) == 1 {
		return c.cmds[0].String()
	}
	parts := make([]string, len(c.cmds))
	for i, stage := range c.cmds {
		parts[i] = escapeCmd(stage, c.target)
	}
	joined := strings.Join(parts, " "+c.sep+" ")
	if c.target.IsRemote() {
		return fmt.Sprintf("ssh %s %q", c.target.Host(), joined)
	}
	return "sh -c -- " + joined
}

// status runs the chain, discarding stdout; stderr is inherited iff debug.
func (c *chain) status(ctx context.Context, debug bool) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	base := c.toExecCmd()
	cmd := exec.CommandContext(ctx, base.Path, base.Args[1:]...)
	if debug {
		cmd.Stderr = osStderr
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Run() }()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return errors.New(errors.CommandTimeout, "pipeline execution timed out")
	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return errors.New(errors.CommandExecution, "pipeline exited non-zero").
					WithMetadata("exit_code", fmt.Sprintf("%d", exitErr.ExitCode()))
			}
			return errors.Wrap(err, errors.CommandExecution)
		}
		return nil
	}
}

// Pipeline is a non-empty ordered list of Cmd sharing one Target, piped
// stdout-to-stdin via "|" when materialized.
type Pipeline struct{ c *chain }

// NewPipeline builds a Pipeline from one or more stages sharing tgt. Panics
// if stages is empty — callers must assemble at least one stage.
func NewPipeline(tgt *target.Target, stages ...*Cmd) *Pipeline {
	if len(stages) == 0 {
		panic("cmdexec: pipeline requires at least one stage")
	}
	return &Pipeline{c: newChain(tgt, "|", stages)}
}

func (p *Pipeline) String() string { return p.c.String() }

// Status runs the pipeline, discarding stdout.
func (p *Pipeline) Status(ctx context.Context, debug bool) error {
	return p.c.status(ctx, debug)
}

// Sequence is a non-empty ordered list of Cmd sharing one Target, run in
// order and joined via ";" when materialized.
type Sequence struct{ c *chain }

// NewSequence builds a Sequence from one or more stages sharing tgt.
// Panics if stages is empty.
func NewSequence(tgt *target.Target, stages ...*Cmd) *Sequence {
	if len(stages) == 0 {
		panic("cmdexec: sequence requires at least one stage")
	}
	return &Sequence{c: newChain(tgt, ";", stages)}
}

func (s *Sequence) String() string { return s.c.String() }

// Status runs the sequence, discarding stdout.
func (s *Sequence) Status(ctx context.Context, debug bool) error {
	return s.c.status(ctx, debug)
}
