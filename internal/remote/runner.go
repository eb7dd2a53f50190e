// Package remote runs commands and copies files on fleet hosts, either
// locally or over SSH.
package remote

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Runner executes commands on one host.
type Runner interface {
	Run(cmd string, args ...string) (string, error)
	RunStreaming(cmd string, args []string, stdout, stderr io.Writer) error
	Push(localPath string, remotePath string, mode os.FileMode) error
}

// joinCommand renders argv as one POSIX shell command line.
func joinCommand(cmd string, args []string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, shellQuote(cmd))
	for _, arg := range args {
		words = append(words, shellQuote(arg))
	}
	return strings.Join(words, " ")
}

// shellQuote leaves plain words untouched and single-quotes everything else.
func shellQuote(word string) string {
	if word != "" && strings.IndexFunc(word, needsQuoting) < 0 {
		return word
	}
	return "'" + strings.ReplaceAll(word, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=:@,+%", r):
		return false
	}
	return true
}

func pushCommand(remotePath string, mode os.FileMode) string {
	quoted := shellQuote(remotePath)
	return fmt.Sprintf("cat > %s && chmod %o %s", quoted, mode.Perm(), quoted)
}

type LocalRunner struct{}

func (LocalRunner) Run(cmd string, args ...string) (string, error) {
	out, err := exec.Command(cmd, args...).CombinedOutput()
	return string(out), err
}

func (LocalRunner) RunStreaming(cmd string, args []string, stdout, stderr io.Writer) error {
	command := exec.Command(cmd, args...)
	if stdout != nil {
		command.Stdout = stdout
	}
	if stderr != nil {
		command.Stderr = stderr
	}
	return command.Run()
}

// Push copies localPath to remotePath on this host. Copying a file onto
// itself is a no-op apart from the mode change.
func (LocalRunner) Push(localPath string, remotePath string, mode os.FileMode) error {
	src, err := filepath.Abs(localPath)
	if err != nil {
		return err
	}
	dst, err := filepath.Abs(remotePath)
	if err != nil {
		return err
	}
	if src != dst {
		if err := copyFile(src, dst, mode); err != nil {
			return err
		}
	}
	return os.Chmod(dst, mode.Perm())
}

// SSHRunner opens one connection per call. Host keys are checked against
// known_hosts unless InsecureSkipHostKeyChecking is set.
type SSHRunner struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	Passphrase                  []byte
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

func (r SSHRunner) Run(cmd string, args ...string) (string, error) {
	var out []byte
	err := r.withSession(func(s *ssh.Session) error {
		var runErr error
		out, runErr = s.CombinedOutput(joinCommand(cmd, args))
		return runErr
	})
	return string(out), err
}

func (r SSHRunner) RunStreaming(cmd string, args []string, stdout, stderr io.Writer) error {
	return r.withSession(func(s *ssh.Session) error {
		s.Stdout = stdout
		s.Stderr = stderr
		return s.Run(joinCommand(cmd, args))
	})
}

// Push streams localPath to remotePath through a remote shell.
func (r SSHRunner) Push(localPath string, remotePath string, mode os.FileMode) error {
	in, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer in.Close()

	return r.withSession(func(s *ssh.Session) error {
		s.Stdin = in
		out, err := s.CombinedOutput(pushCommand(remotePath, mode))
		if err != nil {
			return fmt.Errorf("push %s to %s:%s: %w (%s)", localPath, r.Host, remotePath, err, strings.TrimSpace(string(out)))
		}
		return nil
	})
}

func (r SSHRunner) withSession(fn func(*ssh.Session) error) error {
	address, err := r.address()
	if err != nil {
		return err
	}
	config, err := r.clientConfig()
	if err != nil {
		return err
	}
	client, err := ssh.Dial("tcp", address, config)
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("open session on %s: %w", address, err)
	}
	defer session.Close()
	return fn(session)
}

func (r SSHRunner) address() (string, error) {
	host := strings.TrimSpace(r.Host)
	switch {
	case host == "":
		return "", fmt.Errorf("ssh host is required")
	case r.Port != "":
		return net.JoinHostPort(host, r.Port), nil
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}
	return net.JoinHostPort(host, "22"), nil
}

func (r SSHRunner) clientConfig() (*ssh.ClientConfig, error) {
	if r.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}
	signer, err := r.signer()
	if err != nil {
		return nil, err
	}
	hostKeys, err := r.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         r.Timeout,
	}, nil
}

func (r SSHRunner) signer() (ssh.Signer, error) {
	if r.KeyPath == "" {
		return nil, fmt.Errorf("ssh key path is required")
	}
	keyPath, err := ExpandHome(r.KeyPath)
	if err != nil {
		return nil, err
	}
	pem, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	if len(r.Passphrase) == 0 {
		return ssh.ParsePrivateKey(pem)
	}
	return ssh.ParsePrivateKeyWithPassphrase(pem, r.Passphrase)
}

func (r SSHRunner) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if r.InsecureSkipHostKeyChecking {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := strings.TrimSpace(r.KnownHostsPath)
	if path == "" {
		path = "~/.ssh/known_hosts"
	}
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	return knownhosts.New(path)
}

// ExpandHome resolves a leading "~/" against the current user's home.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func copyFile(src string, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
