package reconcile

import (
	"errors"
	"testing"
)

func TestValidateHostname(t *testing.T) {
	valid := []string{"loghost", "web-01", "host.example.lan", "A1"}
	for _, name := range valid {
		if err := validateHostname(name); err != nil {
			t.Fatalf("expected %q valid, got %v", name, err)
		}
	}
	invalid := []string{"", "-lead", "trail-", "under_score", "a..b", "white space"}
	for _, name := range invalid {
		if err := validateHostname(name); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("expected %q invalid, got %v", name, err)
		}
	}
}

func TestNormalizeIPv4(t *testing.T) {
	got, err := normalizeIPv4(" 192.168.16.3 ")
	if err != nil || got != "192.168.16.3" {
		t.Fatalf("unexpected normalize: %q %v", got, err)
	}
	for _, raw := range []string{"", "192.168.16", "::1", "host"} {
		if _, err := normalizeIPv4(raw); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("expected %q invalid, got %v", raw, err)
		}
	}
}
