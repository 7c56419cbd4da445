// Package cmdexec builds single commands and shell-level pipelines/
// sequences that may cross a local/remote boundary, handling POSIX quoting
// for the remote case.
package cmdexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/stratastor/logger"

	"github.com/ifazk/chithi/internal/errors"
	"github.com/ifazk/chithi/internal/target"
)

// DefaultTimeout bounds any single command/pipeline/sequence execution.
const DefaultTimeout = 10 * time.Minute

var osStderr = os.Stderr

var escapeChars = "#'\" \t\n\r|&;<>()$*?[]^!~%{}"

// escapeArg implements the exact POSIX single-quote escaping algorithm:
// wrap in '...', replacing each interior ' with '\''. Idempotent under
// re-parsing by a POSIX shell (testable property 5).
func escapeArg(s string) string {
	if !strings.ContainsAny(s, escapeChars) {
		return s
	}
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Cmd is a single command invocation targeting a local or remote host.
type Cmd struct {
	Target *target.Target
	Sudo   bool
	Base   string
	Args   []string
}

// New builds a Cmd.
func New(tgt *target.Target, sudo bool, base string, args ...string) *Cmd {
	return &Cmd{Target: tgt, Sudo: sudo, Base: base, Args: args}
}

// argv builds the raw, unescaped argv for this command: target prefix
// (possibly "ssh ... host"), optional "sudo", base, then args.
func (c *Cmd) argv() []string {
	var argv []string
	if c.Sudo {
		argv = append(c.Target.MakeBase("sudo"), c.Base)
	} else {
		argv = c.Target.MakeBase(c.Base)
	}
	if c.Target.IsRemote() {
		for _, a := range c.Args {
			argv = append(argv, escapeArg(a))
		}
		return argv
	}
	return append(argv, c.Args...)
}

// ToExecCmd materializes the OS-level *exec.Cmd for this command.
func (c *Cmd) ToExecCmd() *exec.Cmd {
	argv := c.argv()
	return exec.Command(argv[0], argv[1:]...)
}

func (c *Cmd) toExecCmdContext(ctx context.Context) *exec.Cmd {
	argv := c.argv()
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}

func (c *Cmd) String() string {
	sudo := ""
	if c.Sudo {
		sudo = "sudo "
	}
	var b strings.Builder
	if c.Target.IsRemote() {
		fmt.Fprintf(&b, "ssh %s ", c.Target.Host())
	}
	b.WriteString(sudo)
	b.WriteString(c.Base)
	for _, a := range c.Args {
		b.WriteByte(' ')
		if c.Target.IsRemote() {
			b.WriteString(escapeArg(a))
		} else {
			b.WriteString(shellquote.Join(a))
		}
	}
	return b.String()
}

// CheckExists reports whether Base exists on the target, via a
// POSIX-portable `command -v` probe. Returns a NotFound-kind error when it
// does not, matching §4.2.
func (c *Cmd) CheckExists() error {
	check := c.Target.MakeCheck(c.Base)
	check.Stdin = nil
	if err := check.Run(); err != nil {
		return errors.New(errors.CommandNotFound,
			fmt.Sprintf("%s does not exist on %s", c.Base, c.Target.PrettyStr()))
	}
	return nil
}

// Status runs the command, discarding stdout/stdin; stderr is inherited
// iff debug.
func (c *Cmd) Status(ctx context.Context, debug bool) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := c.toExecCmdContext(ctx)
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
		return errors.New(errors.CommandTimeout, "command execution timed out")
	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return errors.New(errors.CommandExecution, "command exited non-zero").
					WithMetadata("exit_code", fmt.Sprintf("%d", exitErr.ExitCode()))
			}
			return errors.Wrap(err, errors.CommandExecution)
		}
		return nil
	}
}

// CaptureStdout runs the command, piping stdout back and inheriting
// stderr.
func (c *Cmd) CaptureStdout(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := c.toExecCmdContext(ctx)
	cmd.Stderr = osStderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.CommandPipe)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.New(errors.CommandExecution, "failed to start command")
	}

	var buf bytes.Buffer
	var readErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, readErr = io.Copy(&buf, stdout)
	}()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return nil, errors.New(errors.CommandTimeout, "command execution timed out")
	case <-done:
		if readErr != nil {
			return nil, errors.Wrap(readErr, errors.CommandOutputParse)
		}
		if err := cmd.Wait(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return nil, errors.New(errors.CommandExecution, "command exited non-zero").
					WithMetadata("exit_code", fmt.Sprintf("%d", exitErr.ExitCode()))
			}
			return nil, errors.Wrap(err, errors.CommandExecution)
		}
		return buf.Bytes(), nil
	}
}

// Runner executes Cmd values via RunStatus, logging each command line
// before running it.
type Runner struct {
	mu  sync.Mutex
	log logger.Logger
}

// NewRunner constructs a Runner with a tagged logger.
func NewRunner() *Runner {
	l, err := logger.NewTag(logger.Config{LogLevel: "info"}, "cmd")
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return &Runner{log: l}
}

// RunStatus runs a single Cmd, logging its display form first.
func (r *Runner) RunStatus(ctx context.Context, c *Cmd, debug bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Debug("executing command", "cmd", c.String())
	return c.Status(ctx, debug)
}
