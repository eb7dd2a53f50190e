package hostfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestWriteFileCreatesWithPerm(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("/etc", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := WriteFile(fsys, "/etc/hostname", []byte("loghost\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := afero.ReadFile(fsys, "/etc/hostname")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "loghost\n" {
		t.Fatalf("unexpected content: %q", got)
	}
	info, err := fsys.Stat("/etc/hostname")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("unexpected mode: %v", info.Mode().Perm())
	}
}

func TestWriteFileKeepsExistingMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authorized_keys")
	if err := os.WriteFile(path, []byte("old\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	fsys := afero.NewOsFs()
	if err := WriteFile(fsys, path, []byte("new\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode preserved, got %v", info.Mode().Perm())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}
}

func TestReadFileMissing(t *testing.T) {
	data, err := ReadFile(afero.NewMemMapFs(), "/etc/hosts")
	if err != nil {
		t.Fatalf("read missing: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil data, got %q", data)
	}
}
