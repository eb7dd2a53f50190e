package provision

import (
	"github.com/danmuck/hostctl/internal/logging"
)

const opPackages = "packages"

const dpkgInstalled = "install ok installed"

// EnsurePackages installs every package dpkg does not report as installed,
// in a single apt-get transaction.
func (p *Provisioner) EnsurePackages(pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	missing := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		p.status(logging.StatusCheck, opPackages).Str("package", pkg).Msg("checking package")
		out, _, err := p.probe("dpkg-query", "-W", "-f=${Status}", pkg)
		if err != nil {
			return p.fail(opPackages, err)
		}
		if out == dpkgInstalled {
			p.status(logging.StatusPass, opPackages).Str("package", pkg).Msg("package already installed")
			continue
		}
		missing = append(missing, pkg)
	}
	if len(missing) == 0 {
		return nil
	}

	p.status(logging.StatusApply, opPackages).Strs("packages", missing).Msg("installing packages")
	if err := p.runCommand("apt-get", "update", "-qq"); err != nil {
		return p.fail(opPackages, err)
	}
	args := append([]string{"DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", "-qq"}, missing...)
	if err := p.runCommand("env", args...); err != nil {
		return p.fail(opPackages, err)
	}
	return nil
}
