// Package provision brings a host's packages, services, local users and SSH
// key material to a declared state.
//
// Ownership boundary:
// - apt package installation
// - systemd unit enablement
// - local accounts and group membership
// - per-user key pairs and authorized_keys
//
// Every step checks before it changes anything, so a plan can be re-run.
package provision
