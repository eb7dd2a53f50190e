package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/hostctl/internal/hostfs"
	"github.com/danmuck/hostctl/internal/hostsfile"
	"github.com/danmuck/hostctl/internal/logging"
	"github.com/danmuck/hostctl/internal/netcfg"
	"github.com/danmuck/hostctl/internal/observability"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// DefaultHostnamePath persists the hostname across reboots.
const DefaultHostnamePath = "/etc/hostname"

var (
	ErrHostnameSet        = errors.New("reconcile: set hostname failed")
	ErrNetworkApply       = errors.New("reconcile: network apply failed")
	ErrAddressNotDeclared = errors.New("reconcile: current address not declared in network configuration")
	ErrNoSystem           = errors.New("reconcile: system probe is required")
)

// System is the live host the reconciler observes and changes.
type System interface {
	Hostname() (string, error)
	SetHostname(name string) error
	PrimaryIP() (string, error)
	ApplyNetwork() error
}

// Config wires a Reconciler to its resources. Empty paths use the system
// defaults; a nil Fs uses the real filesystem.
type Config struct {
	Fs           afero.Fs
	HostsPath    string
	HostnamePath string
	NetplanDir   string
	System       System
	Logger       zerolog.Logger
	// Metrics counts status events per operation; nil disables it.
	Metrics *observability.Recorder
}

// Reconciler applies Target fields one at a time.
type Reconciler struct {
	fs           afero.Fs
	hosts        *hostsfile.Store
	hostnamePath string
	netplanDir   string
	system       System
	log          zerolog.Logger
	metrics      *observability.Recorder
}

// New builds a Reconciler from cfg.
func New(cfg Config) (*Reconciler, error) {
	if cfg.System == nil {
		return nil, ErrNoSystem
	}
	fsys := cfg.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	hostnamePath := strings.TrimSpace(cfg.HostnamePath)
	if hostnamePath == "" {
		hostnamePath = DefaultHostnamePath
	}
	netplanDir := strings.TrimSpace(cfg.NetplanDir)
	if netplanDir == "" {
		netplanDir = netcfg.DefaultDir
	}
	return &Reconciler{
		fs:           fsys,
		hosts:        hostsfile.NewStore(fsys, cfg.HostsPath),
		hostnamePath: hostnamePath,
		netplanDir:   netplanDir,
		system:       cfg.System,
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
	}, nil
}

// Apply converges every populated field of t. Fields are independent: a
// failure is recorded and the remaining fields still run.
func (r *Reconciler) Apply(t Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	var result *multierror.Error
	if t.Hostname != "" {
		if err := r.SetHostname(t.Hostname); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if t.PrimaryIP != "" {
		if err := r.SetPrimaryIP(t.PrimaryIP); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, entry := range t.HostEntries {
		if err := r.UpsertHostEntry(entry.Name, entry.IP); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// SetHostname sets the transient hostname, persists it and renames the old
// hostname in the hosts file. Nothing is written when the hostname is already
// set, unless the persisted copy disagrees with it.
func (r *Reconciler) SetHostname(name string) error {
	name = strings.TrimSpace(name)
	if err := validateHostname(name); err != nil {
		return r.fail(opHostname, err)
	}

	r.status(logging.StatusCheck, opHostname).Str("to", name).Msg("checking hostname")
	current, err := r.system.Hostname()
	if err != nil {
		return r.fail(opHostname, err)
	}
	if current == name {
		r.status(logging.StatusPass, opHostname).Str("hostname", name).Msg("hostname already set")
		persisted, err := r.persistHostname(name)
		if err != nil {
			return r.fail(opHostname, err)
		}
		// A stale persisted name means an earlier run stopped before the
		// hosts file was renamed.
		if persisted == "" || persisted == name {
			return nil
		}
		changed, err := r.hosts.Update(func(f *hostsfile.File) bool {
			return f.RenameHost(persisted, name)
		})
		if err != nil {
			return r.fail(opHostname, err)
		}
		if changed {
			r.status(logging.StatusApply, opHostname).
				Str("from", persisted).
				Str("to", name).
				Str("path", r.hosts.Path()).
				Msg("renamed stale hostname in hosts file")
		}
		return nil
	}

	r.status(logging.StatusApply, opHostname).Str("from", current).Str("to", name).Msg("setting hostname")
	if err := r.system.SetHostname(name); err != nil {
		return r.fail(opHostname, fmt.Errorf("%w: %w", ErrHostnameSet, err))
	}
	if _, err := r.persistHostname(name); err != nil {
		return r.fail(opHostname, err)
	}
	changed, err := r.hosts.Update(func(f *hostsfile.File) bool {
		return f.RenameHost(current, name)
	})
	if err != nil {
		return r.fail(opHostname, err)
	}
	r.status(logging.StatusApply, opHostname).
		Str("from", current).
		Str("to", name).
		Bool("hosts_changed", changed).
		Msg("hostname changed")
	return nil
}

// persistHostname writes name to the hostname file if it differs and returns
// the name that was there before.
func (r *Reconciler) persistHostname(name string) (string, error) {
	data, err := hostfs.ReadFile(r.fs, r.hostnamePath)
	if err != nil {
		return "", err
	}
	persisted := strings.TrimSpace(string(data))
	if persisted == name {
		return persisted, nil
	}
	if err := hostfs.WriteFile(r.fs, r.hostnamePath, []byte(name+"\n"), 0o644); err != nil {
		return persisted, err
	}
	r.status(logging.StatusApply, opHostname).
		Str("path", r.hostnamePath).
		Str("from", persisted).
		Str("to", name).
		Msg("persisted hostname")
	return persisted, nil
}

// SetPrimaryIP moves the host from its current primary IPv4 address to ip in
// the netplan document and the hosts file, then applies the network
// configuration. The netplan document is located before anything is written.
// A document that already declares ip is applied without being rewritten.
func (r *Reconciler) SetPrimaryIP(ip string) error {
	target, err := normalizeIPv4(ip)
	if err != nil {
		return r.fail(opPrimaryIP, err)
	}

	r.status(logging.StatusCheck, opPrimaryIP).Str("to", target).Msg("checking primary ip")
	current, err := r.system.PrimaryIP()
	if err != nil {
		return r.fail(opPrimaryIP, err)
	}
	if current == target {
		r.status(logging.StatusPass, opPrimaryIP).Str("ip", target).Msg("primary ip already set")
		return nil
	}

	path, err := netcfg.Locate(r.fs, r.netplanDir)
	if err != nil {
		return r.fail(opPrimaryIP, err)
	}
	hasCurrent, err := netcfg.ContainsIP(r.fs, path, current)
	if err != nil {
		return r.fail(opPrimaryIP, err)
	}
	hasTarget, err := netcfg.ContainsIP(r.fs, path, target)
	if err != nil {
		return r.fail(opPrimaryIP, err)
	}
	if !hasCurrent && !hasTarget {
		return r.fail(opPrimaryIP, fmt.Errorf("%w: neither %s nor %s found in %s", ErrAddressNotDeclared, current, target, path))
	}

	r.status(logging.StatusApply, opPrimaryIP).
		Str("from", current).
		Str("to", target).
		Str("netplan", path).
		Msg("changing primary ip")
	hostsChanged, err := r.hosts.Update(func(f *hostsfile.File) bool {
		return f.ReplaceIP(current, target)
	})
	if err != nil {
		return r.fail(opPrimaryIP, err)
	}
	// The document may already declare target when an earlier run stopped
	// before the network was applied.
	if hasCurrent {
		if _, err := netcfg.ReplaceIP(r.fs, path, current, target); err != nil {
			return r.fail(opPrimaryIP, err)
		}
	}
	if err := r.system.ApplyNetwork(); err != nil {
		return r.fail(opPrimaryIP, fmt.Errorf("%w: %w", ErrNetworkApply, err))
	}
	r.status(logging.StatusApply, opPrimaryIP).
		Str("from", current).
		Str("to", target).
		Bool("hosts_changed", hostsChanged).
		Msg("primary ip changed")
	return nil
}

// UpsertHostEntry makes name resolve to ip in the hosts file.
func (r *Reconciler) UpsertHostEntry(name string, ip string) error {
	name = strings.TrimSpace(name)
	if err := validateHostname(name); err != nil {
		return r.fail(opHostEntry, err)
	}
	target, err := normalizeIPv4(ip)
	if err != nil {
		return r.fail(opHostEntry, err)
	}

	r.status(logging.StatusCheck, opHostEntry).Str("name", name).Str("to", target).Msg("checking host entry")
	var previous string
	changed, err := r.hosts.Update(func(f *hostsfile.File) bool {
		previous, _ = f.Get(name)
		return f.Set(name, target)
	})
	if err != nil {
		return r.fail(opHostEntry, err)
	}
	if !changed {
		r.status(logging.StatusPass, opHostEntry).Str("name", name).Str("ip", target).Msg("host entry already set")
		return nil
	}
	r.status(logging.StatusApply, opHostEntry).
		Str("name", name).
		Str("from", previous).
		Str("to", target).
		Str("path", r.hosts.Path()).
		Msg("host entry updated")
	return nil
}
