// Package config loads the fleet file that drives hostctl: which hosts to
// configure, how to reach them and what to provision locally.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/hostctl/internal/reconcile"
)

var ErrInvalidConfig = errors.New("config: invalid fleet config")

const (
	DefaultBinary     = "configure-host"
	DefaultRemotePath = "/usr/local/sbin/configure-host"
	DefaultSSHUser    = "root"
	DefaultSSHKeyPath = "~/.ssh/id_ed25519"
	DefaultSSHTimeout = 10 * time.Second
	DefaultShell      = "/bin/bash"
)

var DefaultKeyTypes = []string{"rsa", "ed25519"}

// Entry is one hosts mapping pushed to a machine.
type Entry struct {
	Name string `toml:"name"`
	IP   string `toml:"ip"`
}

// Target is the identity configure-host converges a machine onto.
type Target struct {
	Name    string  `toml:"name"`
	IP      string  `toml:"ip"`
	Entries []Entry `toml:"entries"`
}

// Host is a remote machine reached over SSH.
type Host struct {
	Address string `toml:"address"`
	Port    string `toml:"port"`
	User    string `toml:"user"`
	Target
}

type SSH struct {
	User                     string
	Port                     string
	KeyPath                  string
	KnownHostsPath           string
	InsecureSkipHostKeyCheck bool
	Timeout                  time.Duration
	Sudo                     bool
}

type User struct {
	Name           string   `toml:"name"`
	Shell          string   `toml:"shell"`
	Groups         []string `toml:"groups"`
	KeyTypes       []string `toml:"key_types"`
	AuthorizedKeys []string `toml:"authorized_keys"`
}

type Provision struct {
	Packages []string `toml:"packages"`
	Services []string `toml:"services"`
	Users    []User   `toml:"users"`
}

type Fleet struct {
	Binary     string
	RemotePath string
	Verbose    bool
	SSH        SSH
	Hosts      []Host
	Local      Target
	Provision  Provision
}

// fleet.toml key mapping.
type fileConfig struct {
	Binary     string    `toml:"binary"`
	RemotePath string    `toml:"remote_path"`
	Verbose    bool      `toml:"verbose"`
	SSH        fileSSH   `toml:"ssh"`
	Hosts      []Host    `toml:"hosts"`
	Local      Target    `toml:"local"`
	Provision  Provision `toml:"provision"`
}

type fileSSH struct {
	User                     string `toml:"user"`
	Port                     string `toml:"port"`
	KeyPath                  string `toml:"key_path"`
	KnownHostsPath           string `toml:"known_hosts_path"`
	InsecureSkipHostKeyCheck bool   `toml:"insecure_skip_host_key_check"`
	Timeout                  string `toml:"timeout"`
	Sudo                     bool   `toml:"sudo"`
}

func DefaultFleet() Fleet {
	return Fleet{
		Binary:     DefaultBinary,
		RemotePath: DefaultRemotePath,
		SSH: SSH{
			User:    DefaultSSHUser,
			KeyPath: DefaultSSHKeyPath,
			Timeout: DefaultSSHTimeout,
		},
	}
}

// LoadFleet decodes path over DefaultFleet and validates the result.
func LoadFleet(path string) (Fleet, error) {
	cfg := DefaultFleet()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Fleet{}, fmt.Errorf("load fleet config: %w", err)
	}

	if meta.IsDefined("binary") {
		cfg.Binary = strings.TrimSpace(raw.Binary)
	}
	if meta.IsDefined("remote_path") {
		cfg.RemotePath = strings.TrimSpace(raw.RemotePath)
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	if meta.IsDefined("ssh", "user") {
		cfg.SSH.User = strings.TrimSpace(raw.SSH.User)
	}
	if meta.IsDefined("ssh", "port") {
		cfg.SSH.Port = strings.TrimSpace(raw.SSH.Port)
	}
	if meta.IsDefined("ssh", "key_path") {
		cfg.SSH.KeyPath = strings.TrimSpace(raw.SSH.KeyPath)
	}
	if meta.IsDefined("ssh", "known_hosts_path") {
		cfg.SSH.KnownHostsPath = strings.TrimSpace(raw.SSH.KnownHostsPath)
	}
	if meta.IsDefined("ssh", "insecure_skip_host_key_check") {
		cfg.SSH.InsecureSkipHostKeyCheck = raw.SSH.InsecureSkipHostKeyCheck
	}
	if meta.IsDefined("ssh", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SSH.Timeout))
		if err != nil {
			return Fleet{}, fmt.Errorf("parse ssh.timeout: %w", err)
		}
		cfg.SSH.Timeout = d
	}
	if meta.IsDefined("ssh", "sudo") {
		cfg.SSH.Sudo = raw.SSH.Sudo
	}

	cfg.Hosts = normalizeHosts(raw.Hosts)
	cfg.Local = normalizeTarget(raw.Local)
	cfg.Provision = normalizeProvision(raw.Provision)

	if err := cfg.Validate(); err != nil {
		return Fleet{}, err
	}
	return cfg, nil
}

// Validate checks the fleet for values that would fail at apply time.
func (f Fleet) Validate() error {
	if strings.TrimSpace(f.Binary) == "" {
		return fmt.Errorf("%w: binary is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(f.RemotePath) == "" {
		return fmt.Errorf("%w: remote_path is required", ErrInvalidConfig)
	}
	if len(f.Hosts) > 0 && strings.TrimSpace(f.SSH.KeyPath) == "" {
		return fmt.Errorf("%w: ssh.key_path is required when hosts are configured", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(f.Hosts))
	for i, host := range f.Hosts {
		if host.Address == "" {
			return fmt.Errorf("%w: hosts[%d]: address is required", ErrInvalidConfig, i)
		}
		if _, dup := seen[host.Address]; dup {
			return fmt.Errorf("%w: hosts[%d]: duplicate address %q", ErrInvalidConfig, i, host.Address)
		}
		seen[host.Address] = struct{}{}
		if err := host.Target.Reconcile().Validate(); err != nil {
			return fmt.Errorf("%w: hosts[%d]: %w", ErrInvalidConfig, i, err)
		}
	}
	if err := f.Local.Reconcile().Validate(); err != nil {
		return fmt.Errorf("%w: local: %w", ErrInvalidConfig, err)
	}
	for i, user := range f.Provision.Users {
		if user.Name == "" {
			return fmt.Errorf("%w: provision.users[%d]: name is required", ErrInvalidConfig, i)
		}
	}
	return nil
}

// Reconcile converts t into the reconciler's target.
func (t Target) Reconcile() reconcile.Target {
	out := reconcile.Target{
		Hostname:  t.Name,
		PrimaryIP: t.IP,
	}
	for _, e := range t.Entries {
		out.HostEntries = append(out.HostEntries, reconcile.HostEntry{Name: e.Name, IP: e.IP})
	}
	return out
}

// Empty reports whether t asks for no changes.
func (t Target) Empty() bool {
	return t.Name == "" && t.IP == "" && len(t.Entries) == 0
}

func normalizeHosts(in []Host) []Host {
	out := make([]Host, 0, len(in))
	for _, h := range in {
		h.Address = strings.TrimSpace(h.Address)
		h.Port = strings.TrimSpace(h.Port)
		h.User = strings.TrimSpace(h.User)
		h.Target = normalizeTarget(h.Target)
		out = append(out, h)
	}
	return out
}

func normalizeTarget(t Target) Target {
	t.Name = strings.TrimSpace(t.Name)
	t.IP = strings.TrimSpace(t.IP)
	entries := make([]Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, Entry{Name: strings.TrimSpace(e.Name), IP: strings.TrimSpace(e.IP)})
	}
	t.Entries = entries
	return t
}

func normalizeProvision(p Provision) Provision {
	p.Packages = normalizeList(p.Packages)
	p.Services = normalizeList(p.Services)
	users := make([]User, 0, len(p.Users))
	for _, u := range p.Users {
		u.Name = strings.TrimSpace(u.Name)
		u.Shell = strings.TrimSpace(u.Shell)
		if u.Shell == "" {
			u.Shell = DefaultShell
		}
		u.Groups = normalizeList(u.Groups)
		if u.KeyTypes == nil {
			u.KeyTypes = append([]string(nil), DefaultKeyTypes...)
		}
		u.KeyTypes = normalizeList(u.KeyTypes)
		u.AuthorizedKeys = normalizeList(u.AuthorizedKeys)
		users = append(users, u)
	}
	p.Users = users
	return p
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
