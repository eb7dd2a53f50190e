package provision

import (
	"fmt"
	"strings"

	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/logging"
)

const opUsers = "users"

// EnsureUser creates the account if missing and adds any missing
// supplementary groups. Existing shells and home directories are left alone.
func (p *Provisioner) EnsureUser(u config.User) error {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return p.fail(opUsers, fmt.Errorf("%w: user name is required", ErrInvalidPlan))
	}
	p.status(logging.StatusCheck, opUsers).Str("user", name).Msg("checking user")

	_, exists, err := p.probe("id", "-u", name)
	if err != nil {
		return p.fail(opUsers, err)
	}
	if !exists {
		shell := u.Shell
		if shell == "" {
			shell = config.DefaultShell
		}
		args := []string{"-m", "-s", shell}
		if len(u.Groups) > 0 {
			args = append(args, "-G", strings.Join(u.Groups, ","))
		}
		args = append(args, name)
		p.status(logging.StatusApply, opUsers).Str("user", name).Strs("groups", u.Groups).Msg("creating user")
		if err := p.runCommand("useradd", args...); err != nil {
			return p.fail(opUsers, err)
		}
		return nil
	}

	out, _, err := p.probe("id", "-nG", name)
	if err != nil {
		return p.fail(opUsers, err)
	}
	current := make(map[string]struct{})
	for _, g := range strings.Fields(out) {
		current[g] = struct{}{}
	}
	missing := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		if _, ok := current[g]; !ok {
			missing = append(missing, g)
		}
	}
	if len(missing) == 0 {
		p.status(logging.StatusPass, opUsers).Str("user", name).Msg("user already present")
		return nil
	}
	p.status(logging.StatusApply, opUsers).Str("user", name).Strs("groups", missing).Msg("adding user to groups")
	if err := p.runCommand("usermod", "-aG", strings.Join(missing, ","), name); err != nil {
		return p.fail(opUsers, err)
	}
	return nil
}
