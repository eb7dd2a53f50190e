package provision

import (
	"github.com/danmuck/hostctl/internal/logging"
)

const opServices = "services"

// EnsureServices enables and starts each systemd unit that is not already.
func (p *Provisioner) EnsureServices(units []string) error {
	for _, unit := range units {
		p.status(logging.StatusCheck, opServices).Str("unit", unit).Msg("checking service")

		_, enabled, err := p.probe("systemctl", "is-enabled", "--quiet", unit)
		if err != nil {
			return p.fail(opServices, err)
		}
		if enabled {
			p.status(logging.StatusPass, opServices).Str("unit", unit).Msg("service already enabled")
		} else {
			p.status(logging.StatusApply, opServices).Str("unit", unit).Msg("enabling service")
			if err := p.runCommand("systemctl", "enable", unit); err != nil {
				return p.fail(opServices, err)
			}
		}

		_, active, err := p.probe("systemctl", "is-active", "--quiet", unit)
		if err != nil {
			return p.fail(opServices, err)
		}
		if active {
			p.status(logging.StatusPass, opServices).Str("unit", unit).Msg("service already running")
			continue
		}
		p.status(logging.StatusApply, opServices).Str("unit", unit).Msg("starting service")
		if err := p.runCommand("systemctl", "start", unit); err != nil {
			return p.fail(opServices, err)
		}
	}
	return nil
}
