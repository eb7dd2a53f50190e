package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/hostctl/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigInitThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.toml")

	out, err := execute(t, "config", "init", "-o", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := execute(t, "config", "init", "-o", path); err == nil {
		t.Fatalf("expected init to refuse overwrite")
	}
	if _, err := execute(t, "config", "init", "-o", path, "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}

	out, err = execute(t, "config", "validate", "-c", path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "ok (") {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestConfigInitStdout(t *testing.T) {
	out, err := execute(t, "config", "init", "-o", "-")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if out != config.Template() {
		t.Fatalf("expected template on stdout")
	}
}

func TestConfigValidateReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.toml")
	body := "[[hosts]]\naddress = \"server1-mgmt\"\nname = \"bad_name\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := execute(t, "config", "validate", "-c", path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSSHRunnerHostOverrides(t *testing.T) {
	defaults := config.SSH{
		User:    "remoteadmin",
		Port:    "22",
		KeyPath: "~/.ssh/id_ed25519",
		Timeout: 5 * time.Second,
	}

	r := sshRunner(defaults, config.Host{Address: "server1-mgmt"})
	if r.Host != "server1-mgmt" || r.User != "remoteadmin" || r.Port != "22" || r.Timeout != 5*time.Second {
		t.Fatalf("unexpected runner: %+v", r)
	}

	r = sshRunner(defaults, config.Host{Address: "server2-mgmt", User: "ops", Port: "2222"})
	if r.User != "ops" || r.Port != "2222" {
		t.Fatalf("host overrides not applied: %+v", r)
	}
}
