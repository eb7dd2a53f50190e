// Package sysinfo reads and changes live host identity: hostname, primary
// IPv4 address and the active network configuration.
package sysinfo

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/danmuck/hostctl/internal/tools"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoPrimaryIP   = errors.New("sysinfo: no non-loopback IPv4 address")
	ErrCommandFailed = errors.New("sysinfo: command failed")
)

// Local probes and changes the host this process runs on.
type Local struct {
	runner tools.CommandRunner
}

// NewLocal returns a probe that shells out through runner. A nil runner
// executes commands directly.
func NewLocal(runner tools.CommandRunner) *Local {
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Local{runner: runner}
}

// Hostname returns the kernel hostname.
func (l *Local) Hostname() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("sysinfo: read hostname: %w", err)
	}
	return strings.TrimSpace(name), nil
}

// SetHostname sets the transient hostname.
func (l *Local) SetHostname(name string) error {
	if err := l.setHostname(name); err != nil {
		return fmt.Errorf("sysinfo: set hostname %q: %w", name, err)
	}
	return nil
}

// PrimaryIP returns the first non-loopback IPv4 address.
func (l *Local) PrimaryIP() (string, error) {
	return primaryIPv4()
}

// ApplyNetwork asks netplan to apply the on-disk configuration.
func (l *Local) ApplyNetwork() error {
	return l.run("netplan", "apply")
}

func (l *Local) run(name string, args ...string) error {
	log.Debug().Str("cmd", name).Strs("args", args).Msg("sysinfo exec")
	stdout, stderr, exitCode, err := l.runner.Run(name, args...)
	if err == nil {
		return nil
	}
	return fmt.Errorf(
		"%w: cmd=%s args=%q exit=%d stdout=%q stderr=%q: %v",
		ErrCommandFailed,
		name,
		strings.Join(args, " "),
		exitCode,
		strings.TrimSpace(string(stdout)),
		strings.TrimSpace(string(stderr)),
		err,
	)
}

func firstIPv4(ips []net.IP) (string, error) {
	for _, ip := range ips {
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", ErrNoPrimaryIP
}
