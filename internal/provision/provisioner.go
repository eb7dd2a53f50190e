package provision

import (
	"errors"
	"fmt"
	"os/user"
	"strings"

	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/logging"
	"github.com/danmuck/hostctl/internal/tools"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

var (
	ErrCommandFailed = errors.New("provision: command failed")
	ErrToolMissing   = errors.New("provision: required tool not installed")
	ErrInvalidPlan   = errors.New("provision: invalid plan")
	ErrInvalidKey    = errors.New("provision: invalid authorized key")
)

// Config wires a Provisioner to the host.
type Config struct {
	Runner     tools.CommandRunner
	Fs         afero.Fs
	Logger     zerolog.Logger
	LookupUser func(name string) (*user.User, error)
}

// Provisioner applies a config.Provision plan on the local host.
type Provisioner struct {
	runner     tools.CommandRunner
	fs         afero.Fs
	log        zerolog.Logger
	lookupUser func(name string) (*user.User, error)
}

func New(cfg Config) *Provisioner {
	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	fsys := cfg.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	lookup := cfg.LookupUser
	if lookup == nil {
		lookup = user.Lookup
	}
	return &Provisioner{
		runner:     runner,
		fs:         fsys,
		log:        cfg.Logger,
		lookupUser: lookup,
	}
}

// Run applies plan in order: packages, services, users, keys. The first
// failure stops the run; later steps usually depend on earlier ones.
func (p *Provisioner) Run(plan config.Provision) error {
	if err := p.EnsurePackages(plan.Packages); err != nil {
		return err
	}
	if err := p.EnsureServices(plan.Services); err != nil {
		return err
	}
	for _, u := range plan.Users {
		if err := p.EnsureUser(u); err != nil {
			return fmt.Errorf("user=%q: %w", u.Name, err)
		}
		if err := p.EnsureKeys(u); err != nil {
			return fmt.Errorf("user=%q: %w", u.Name, err)
		}
	}
	return nil
}

func (p *Provisioner) status(s logging.Status, op string) *zerolog.Event {
	return logging.StatusEvent(&p.log, s, op)
}

func (p *Provisioner) fail(op string, err error) error {
	p.status(logging.StatusError, op).Err(err).Msg("provision step failed")
	return err
}

// probe runs a check command. A non-zero exit is an answer, not a failure;
// only a missing binary is reported as an error.
func (p *Provisioner) probe(name string, args ...string) (string, bool, error) {
	stdout, _, exitCode, err := p.runner.Run(name, args...)
	if err == nil {
		return strings.TrimSpace(string(stdout)), true, nil
	}
	if exitCode == 127 {
		return "", false, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	return strings.TrimSpace(string(stdout)), false, nil
}

func (p *Provisioner) runCommand(name string, args ...string) error {
	p.log.Debug().Str("cmd", name).Strs("args", args).Msg("provision exec")
	stdout, stderr, exitCode, err := p.runner.Run(name, args...)
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
