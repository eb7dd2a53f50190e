package config

import (
	"fmt"
	"os"
)

// Template returns the annotated fleet file written by `hostctl config init`.
func Template() string {
	return fleetTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(fleetTemplate), 0o600)
}

const fleetTemplate = `# configure-host binary pushed to every host, and where it lands.
binary = "bin/configure-host"
remote_path = "/usr/local/sbin/configure-host"
verbose = true

[ssh]
user = "remoteadmin"
key_path = "~/.ssh/id_ed25519"
known_hosts_path = ""
insecure_skip_host_key_check = false
timeout = "10s"
sudo = true

[[hosts]]
address = "server1-mgmt"
name = "loghost"
ip = "192.168.16.3"

  [[hosts.entries]]
  name = "webhost"
  ip = "192.168.16.4"

[[hosts]]
address = "server2-mgmt"
name = "webhost"
ip = "192.168.16.4"

  [[hosts.entries]]
  name = "loghost"
  ip = "192.168.16.3"

[local]

  [[local.entries]]
  name = "loghost"
  ip = "192.168.16.3"

  [[local.entries]]
  name = "webhost"
  ip = "192.168.16.4"

[provision]
packages = ["apache2", "squid"]
services = ["apache2", "squid"]

  [[provision.users]]
  name = "dennis"
  groups = ["sudo"]
  key_types = ["rsa", "ed25519"]
  authorized_keys = [
    "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIG4rT3vTt99Ox5kndS4HmgTrKBT8SKzhK4rhGkEVGlCI student@generic-vm",
  ]

  [[provision.users]]
  name = "aubrey"
`
