package provision

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/hostfs"
	"github.com/danmuck/hostctl/internal/logging"
	"golang.org/x/crypto/ssh"
)

const opKeys = "keys"

const authorizedKeysFile = "authorized_keys"

var supportedKeyTypes = map[string]struct{}{
	"rsa":     {},
	"ecdsa":   {},
	"ed25519": {},
}

type account struct {
	name string
	home string
	uid  int
	gid  int
}

// EnsureKeys generates each missing key pair for u and makes sure
// authorized_keys holds the generated public keys plus every configured key.
func (p *Provisioner) EnsureKeys(u config.User) error {
	if len(u.KeyTypes) == 0 && len(u.AuthorizedKeys) == 0 {
		return nil
	}
	for _, kt := range u.KeyTypes {
		if _, ok := supportedKeyTypes[kt]; !ok {
			return p.fail(opKeys, fmt.Errorf("%w: unsupported key type %q", ErrInvalidPlan, kt))
		}
	}
	configured, err := parseKeys(u.AuthorizedKeys)
	if err != nil {
		return p.fail(opKeys, err)
	}

	acct, err := p.account(u.Name)
	if err != nil {
		return p.fail(opKeys, err)
	}
	sshDir := filepath.Join(acct.home, ".ssh")
	if err := p.ensureDir(acct, sshDir); err != nil {
		return p.fail(opKeys, err)
	}

	wanted := make([]string, 0, len(u.KeyTypes)+len(configured))
	for _, kt := range u.KeyTypes {
		pub, err := p.ensureKeyPair(acct, sshDir, kt)
		if err != nil {
			return p.fail(opKeys, err)
		}
		wanted = append(wanted, pub)
	}
	wanted = append(wanted, configured...)

	if err := p.ensureAuthorized(acct, filepath.Join(sshDir, authorizedKeysFile), wanted); err != nil {
		return p.fail(opKeys, err)
	}
	return nil
}

func (p *Provisioner) account(name string) (account, error) {
	u, err := p.lookupUser(name)
	if err != nil {
		return account{}, fmt.Errorf("lookup user %q: %w", name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return account{}, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return account{}, fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}
	if u.HomeDir == "" {
		return account{}, fmt.Errorf("user %q has no home directory", name)
	}
	return account{name: name, home: u.HomeDir, uid: uid, gid: gid}, nil
}

func (p *Provisioner) ensureDir(acct account, dir string) error {
	info, err := p.fs.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	p.status(logging.StatusApply, opKeys).Str("user", acct.name).Str("path", dir).Msg("creating ssh directory")
	if err := p.fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	if err := p.fs.Chown(dir, acct.uid, acct.gid); err != nil {
		return fmt.Errorf("chown %s: %w", dir, err)
	}
	return nil
}

func (p *Provisioner) ensureKeyPair(acct account, sshDir, keyType string) (string, error) {
	keyPath := filepath.Join(sshDir, "id_"+keyType)
	p.status(logging.StatusCheck, opKeys).Str("user", acct.name).Str("path", keyPath).Msg("checking key pair")

	exists, err := p.exists(keyPath)
	if err != nil {
		return "", err
	}
	if exists {
		p.status(logging.StatusPass, opKeys).Str("user", acct.name).Str("path", keyPath).Msg("key pair already present")
	} else {
		p.status(logging.StatusApply, opKeys).Str("user", acct.name).Str("path", keyPath).Msg("generating key pair")
		if err := p.runCommand("runuser", "-u", acct.name, "--",
			"ssh-keygen", "-q", "-t", keyType, "-N", "", "-f", keyPath); err != nil {
			return "", err
		}
	}

	pub, err := hostfs.ReadFile(p.fs, keyPath+".pub")
	if err != nil {
		return "", err
	}
	if pub == nil {
		return "", fmt.Errorf("public key %s.pub is missing", keyPath)
	}
	line := strings.TrimSpace(string(pub))
	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line)); err != nil {
		return "", fmt.Errorf("%w: %s.pub: %v", ErrInvalidKey, keyPath, err)
	}
	return line, nil
}

func (p *Provisioner) ensureAuthorized(acct account, path string, wanted []string) error {
	p.status(logging.StatusCheck, opKeys).Str("user", acct.name).Str("path", path).Msg("checking authorized keys")

	existing, err := hostfs.ReadFile(p.fs, path)
	if err != nil {
		return err
	}
	merged, added := mergeAuthorizedKeys(existing, wanted)
	if added == 0 {
		p.status(logging.StatusPass, opKeys).Str("user", acct.name).Msg("authorized keys already present")
		return nil
	}

	p.status(logging.StatusApply, opKeys).Str("user", acct.name).Int("added", added).Msg("updating authorized keys")
	if err := hostfs.WriteFile(p.fs, path, merged, 0o600); err != nil {
		return err
	}
	if err := p.fs.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := p.fs.Chown(path, acct.uid, acct.gid); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}

// mergeAuthorizedKeys appends every wanted key whose wire encoding is not
// already present. Existing lines, including ones that do not parse, are kept.
func mergeAuthorizedKeys(existing []byte, wanted []string) ([]byte, int) {
	seen := make(map[string]struct{})
	var buf bytes.Buffer
	for _, raw := range strings.Split(string(existing), "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		if key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line)); err == nil {
			seen[string(key.Marshal())] = struct{}{}
		}
	}

	added := 0
	for _, line := range wanted {
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}
		wire := string(key.Marshal())
		if _, ok := seen[wire]; ok {
			continue
		}
		seen[wire] = struct{}{}
		buf.WriteString(line)
		buf.WriteByte('\n')
		added++
	}
	return buf.Bytes(), added
}

func parseKeys(lines []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line)); err != nil {
			return nil, fmt.Errorf("%w: authorized_keys[%d]: %v", ErrInvalidKey, i, err)
		}
		out = append(out, line)
	}
	return out, nil
}

func (p *Provisioner) exists(path string) (bool, error) {
	_, err := p.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}
