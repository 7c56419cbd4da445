// Package target abstracts "run a program on the local machine or on a
// remote host over SSH", and owns the SSH master-control multiplexer
// lifecycle used to amortize repeated connections to the same host.
package target

import (
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/stratastor/logger"

	"github.com/ifazk/chithi/internal/errors"
)

// SSH holds the connection parameters for a remote target.
type SSH struct {
	Host     string
	Cipher   string
	Config   string
	Identity string
	Port     string
	Options  []string

	mu      sync.Mutex
	control string
}

// Target is either Local or Remote{SSH}.
type Target struct {
	ssh *SSH // nil means Local

	log logger.Logger
}

func newLogger() logger.Logger {
	l, err := logger.NewTag(logger.Config{LogLevel: "info"}, "target")
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return l
}

// NewLocal builds a Target that runs programs on the local machine.
func NewLocal() *Target {
	return &Target{log: newLogger()}
}

// NewRemote builds a Target that runs programs on host over SSH. An empty
// host forces Local, matching the Fs parsing rule in spec §3.
func NewRemote(host, cipher, config, identity, port string, options []string) *Target {
	if host == "" {
		return NewLocal()
	}
	return &Target{
		ssh: &SSH{Host: host, Cipher: cipher, Config: config, Identity: identity, Port: port, Options: options},
		log: newLogger(),
	}
}

func (t *Target) IsRemote() bool { return t.ssh != nil }

func (t *Target) Host() string {
	if t.ssh == nil {
		return ""
	}
	return t.ssh.Host
}

func (t *Target) PrettyStr() string {
	if t.ssh == nil {
		return "local machine"
	}
	return t.ssh.Host
}

// Equal compares host, cipher, config, identity and port (the -o options
// are not compared), used by the replication planner to decide whether
// source and target share a host.
func (t *Target) Equal(o *Target) bool {
	if t.IsRemote() != o.IsRemote() {
		return false
	}
	if !t.IsRemote() {
		return true
	}
	return t.ssh.Host == o.ssh.Host &&
		t.ssh.Cipher == o.ssh.Cipher &&
		t.ssh.Config == o.ssh.Config &&
		t.ssh.Identity == o.ssh.Identity &&
		t.ssh.Port == o.ssh.Port
}

// basePreArgs builds the "[-c cipher] [-F config] [-i identity] [-p port]
// [-o opt]..." flag set shared by every remote invocation, before the host
// argument and any -S control flag are appended.
func (s *SSH) basePreArgs() []string {
	args := []string{}
	if s.Cipher != "" {
		args = append(args, "-c", s.Cipher)
	}
	if s.Config != "" {
		args = append(args, "-F", s.Config)
	}
	if s.Identity != "" {
		args = append(args, "-i", s.Identity)
	}
	if s.Port != "" {
		args = append(args, "-p", s.Port)
	}
	for _, opt := range s.Options {
		args = append(args, "-o", opt)
	}
	return args
}

// toCmdArgs builds the full "[opts] [-S control] host" argv fragment.
func (s *SSH) toCmdArgs() []string {
	args := s.basePreArgs()
	s.mu.Lock()
	control := s.control
	s.mu.Unlock()
	if control != "" {
		args = append(args, "-S", control)
	}
	args = append(args, s.Host)
	return args
}

// Control returns the live master-control socket path, or "" if none.
func (s *SSH) Control() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control
}

func sanitizeHost(host string) string {
	var b strings.Builder
	for _, c := range host {
		if c == '@' {
			c = '-'
		}
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			b.WriteRune(c)
		}
		if b.Len() >= 50 {
			break
		}
	}
	return b.String()
}

// MakeControl establishes the SSH master-control multiplexer for a Remote
// target. No-op on Local. Must be paired with DestroyControl on every exit
// path, per spec §4.1.
func (t *Target) MakeControl() error {
	if t.ssh == nil {
		return nil
	}

	now := time.Now()
	socket := fmt.Sprintf("/tmp/chithi-%s-%s-%d-%d",
		sanitizeHost(t.ssh.Host), now.Format("20060102150405"),
		os.Getpid(), rand.Intn(1000))

	t.log.Debug("creating ssh master control socket", "host", t.ssh.Host, "socket", socket)

	preArgs := t.ssh.basePreArgs()
	createArgs := append(append([]string{}, preArgs...), "-M", "-S", socket, "-o", "ControlPersist=1m", t.ssh.Host, "exit")
	if err := exec.Command("ssh", createArgs...).Run(); err != nil {
		t.log.Error("creating master control failed", "err", err.Error())
		return errors.New(errors.TargetControlSetupFailed, "creating master control failed")
	}

	probeArgs := append(append([]string{}, preArgs...), "-S", socket, t.ssh.Host, "echo", "-n")
	if err := exec.Command("ssh", probeArgs...).Run(); err != nil {
		t.log.Error("master control echo test failed", "err", err.Error())
		return errors.New(errors.TargetControlSetupFailed, "creating master control failed")
	}

	t.ssh.mu.Lock()
	t.ssh.control = socket
	t.ssh.mu.Unlock()
	return nil
}

// DestroyControl tears down a live master-control socket. No-op if none is
// recorded, or if the target is Local. Must be called on every path where
// MakeControl succeeded.
func (t *Target) DestroyControl() error {
	if t.ssh == nil {
		return nil
	}
	t.ssh.mu.Lock()
	socket := t.ssh.control
	t.ssh.control = ""
	t.ssh.mu.Unlock()
	if socket == "" {
		return nil
	}

	args := append(t.ssh.basePreArgs(), "-S", socket, t.ssh.Host, "-O", "exit")
	cmd := exec.Command("ssh", args...)
	if err := cmd.Run(); err != nil {
		return errors.New(errors.TargetControlTeardownFailed, "destroying ssh control failed")
	}
	return nil
}

// MakeBase returns the argv prefix that runs `base` on this target:
// [base] for Local, ["ssh", opts..., host, base] for Remote.
func (t *Target) MakeBase(base string) []string {
	if t.ssh == nil {
		return []string{base}
	}
	args := append([]string{"ssh"}, t.ssh.toCmdArgs()...)
	return append(args, base)
}

// SSHPrefixArgs returns ["ssh", opts..., host] for a Remote target, with
// no trailing command — used to wrap a whole shell script argument for
// Pipeline/Sequence materialization. Returns nil for Local.
func (t *Target) SSHPrefixArgs() []string {
	if t.ssh == nil {
		return nil
	}
	return append([]string{"ssh"}, t.ssh.toCmdArgs()...)
}

// MakeCheck builds the `command -v base` existence probe for this target,
// mirroring syncoid's POSIX-portable existence check.
func (t *Target) MakeCheck(base string) *exec.Cmd {
	if t.ssh == nil {
		return exec.Command("sh", "-c", "command -v "+base)
	}
	args := append([]string{"ssh"}, t.ssh.toCmdArgs()...)
	args = append(args, "command", "-v", base)
	return exec.Command(args[0], args[1:]...)
}
