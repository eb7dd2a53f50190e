// Package fleet pushes the configure-host binary to each managed host and
// runs it there with that host's target, then runs it locally.
package fleet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/logging"
	"github.com/danmuck/hostctl/internal/remote"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

var (
	ErrNoDialer    = errors.New("fleet: dialer is required")
	ErrPushFailed  = errors.New("fleet: push failed")
	ErrHostFailed  = errors.New("fleet: host run failed")
	ErrLocalFailed = errors.New("fleet: local run failed")
)

const binaryMode os.FileMode = 0o755

type Config struct {
	Binary     string
	RemotePath string
	Verbose    bool
	Sudo       bool
	Dial       func(host config.Host) remote.Runner
	Local      remote.Runner
	Logger     zerolog.Logger
	Stdout     io.Writer
	Stderr     io.Writer
}

type Orchestrator struct {
	binary     string
	remotePath string
	verbose    bool
	sudo       bool
	dial       func(host config.Host) remote.Runner
	local      remote.Runner
	log        zerolog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Dial == nil {
		return nil, ErrNoDialer
	}
	local := cfg.Local
	if local == nil {
		local = remote.LocalRunner{}
	}
	binary := cfg.Binary
	if binary == "" {
		binary = config.DefaultBinary
	}
	// Push and the local run must read the same file.
	binary, err := filepath.Abs(binary)
	if err != nil {
		return nil, fmt.Errorf("fleet: resolve binary: %w", err)
	}
	remotePath := cfg.RemotePath
	if remotePath == "" {
		remotePath = config.DefaultRemotePath
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Orchestrator{
		binary:     binary,
		remotePath: remotePath,
		verbose:    cfg.Verbose,
		sudo:       cfg.Sudo,
		dial:       cfg.Dial,
		local:      local,
		log:        cfg.Logger,
		stdout:     stdout,
		stderr:     stderr,
	}, nil
}

// Apply runs every host in order, then the local target. A failing host does
// not stop the ones after it; all failures are returned together.
func (o *Orchestrator) Apply(hosts []config.Host, local config.Target) error {
	var result *multierror.Error
	for _, host := range hosts {
		if err := o.applyHost(host); err != nil {
			logging.StatusEvent(&o.log, logging.StatusError, "fleet").
				Str("host", host.Address).Err(err).Msg("host failed")
			result = multierror.Append(result, err)
		}
	}
	if err := o.applyLocal(local); err != nil {
		logging.StatusEvent(&o.log, logging.StatusError, "fleet").
			Str("host", "local").Err(err).Msg("local run failed")
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (o *Orchestrator) applyHost(host config.Host) error {
	if host.Target.Empty() {
		logging.StatusEvent(&o.log, logging.StatusPass, "fleet").
			Str("host", host.Address).Msg("nothing to apply")
		return nil
	}
	runner := o.dial(host)

	logging.StatusEvent(&o.log, logging.StatusApply, "fleet").
		Str("host", host.Address).Str("remote_path", o.remotePath).Msg("pushing binary")
	if err := o.push(runner); err != nil {
		return fmt.Errorf("%w: host=%s: %w", ErrPushFailed, host.Address, err)
	}

	cmd, args := o.command(o.remotePath, Args(host.Target, o.verbose))
	logging.StatusEvent(&o.log, logging.StatusApply, "fleet").
		Str("host", host.Address).Strs("args", args).Msg("running configure-host")
	if err := runner.RunStreaming(cmd, args, o.stdout, o.stderr); err != nil {
		return fmt.Errorf("%w: host=%s: %w", ErrHostFailed, host.Address, err)
	}
	return nil
}

// push installs the binary at remotePath. With sudo the binary is staged in a
// temp file owned by the login user and installed by root.
func (o *Orchestrator) push(runner remote.Runner) error {
	if !o.sudo {
		return runner.Push(o.binary, o.remotePath, binaryMode)
	}
	out, err := runner.Run("mktemp")
	if err != nil {
		return fmt.Errorf("mktemp: %w (%s)", err, strings.TrimSpace(out))
	}
	staging := strings.TrimSpace(out)
	if staging == "" {
		return errors.New("mktemp returned no path")
	}
	defer func() { _, _ = runner.Run("rm", "-f", staging) }()

	if err := runner.Push(o.binary, staging, binaryMode); err != nil {
		return err
	}
	mode := fmt.Sprintf("%o", binaryMode.Perm())
	if out, err := runner.Run("sudo", "install", "-m", mode, staging, o.remotePath); err != nil {
		return fmt.Errorf("install %s: %w (%s)", o.remotePath, err, strings.TrimSpace(out))
	}
	return nil
}

func (o *Orchestrator) applyLocal(target config.Target) error {
	if target.Empty() {
		return nil
	}
	cmd, args := o.command(o.binary, Args(target, o.verbose))
	logging.StatusEvent(&o.log, logging.StatusApply, "fleet").
		Str("host", "local").Strs("args", args).Msg("running configure-host")
	if err := o.local.RunStreaming(cmd, args, o.stdout, o.stderr); err != nil {
		return fmt.Errorf("%w: %w", ErrLocalFailed, err)
	}
	return nil
}

func (o *Orchestrator) command(path string, args []string) (string, []string) {
	if !o.sudo {
		return path, args
	}
	return "sudo", append([]string{path}, args...)
}

// Args renders t as configure-host command-line arguments.
func Args(t config.Target, verbose bool) []string {
	args := make([]string, 0, 5+3*len(t.Entries))
	if verbose {
		args = append(args, "-verbose")
	}
	if t.Name != "" {
		args = append(args, "-name", t.Name)
	}
	if t.IP != "" {
		args = append(args, "-ip", t.IP)
	}
	for _, e := range t.Entries {
		args = append(args, "-hostentry", e.Name, e.IP)
	}
	return args
}
