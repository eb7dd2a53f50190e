package reconcile

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var ErrInvalidTarget = errors.New("reconcile: invalid target")

// HostEntry is one desired hosts mapping.
type HostEntry struct {
	Name string
	IP   string
}

// Target is the declared network identity of a host. Empty fields are left
// alone. HostEntries apply in order; appended lines follow that order.
type Target struct {
	Hostname    string
	PrimaryIP   string
	HostEntries []HostEntry
}

// Validate checks every populated field.
func (t Target) Validate() error {
	if t.Hostname != "" {
		if err := validateHostname(t.Hostname); err != nil {
			return err
		}
	}
	if t.PrimaryIP != "" {
		if _, err := normalizeIPv4(t.PrimaryIP); err != nil {
			return err
		}
	}
	for i, entry := range t.HostEntries {
		if err := validateHostname(entry.Name); err != nil {
			return fmt.Errorf("host_entries[%d]: %w", i, err)
		}
		if _, err := normalizeIPv4(entry.IP); err != nil {
			return fmt.Errorf("host_entries[%d]: %w", i, err)
		}
	}
	return nil
}

func validateHostname(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidTarget)
	}
	if len(name) > 253 {
		return fmt.Errorf("%w: hostname longer than 253 bytes", ErrInvalidTarget)
	}
	for _, label := range strings.Split(name, ".") {
		if !isValidLabel(label) {
			return fmt.Errorf("%w: invalid hostname %q", ErrInvalidTarget, name)
		}
	}
	return nil
}

func isValidLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if c == '-' {
			if i == 0 || i == len(label)-1 {
				return false
			}
			continue
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

func normalizeIPv4(raw string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidTarget, raw)
	}
	return addr.String(), nil
}
