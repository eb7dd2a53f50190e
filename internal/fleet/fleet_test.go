package fleet

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/remote"
	"github.com/danmuck/hostctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

type push struct {
	local  string
	remote string
	mode   os.FileMode
}

type fakeRunner struct {
	name     string
	calls    *[]string
	pushes   []push
	runs     [][]string
	commands []string
	pushErr  error
	runErr   error
	sudoErr  error
}

func (r *fakeRunner) Run(cmd string, args ...string) (string, error) {
	line := strings.Join(append([]string{cmd}, args...), " ")
	*r.calls = append(*r.calls, r.name+":"+line)
	r.commands = append(r.commands, line)
	if cmd == "mktemp" {
		return "/tmp/tmp.Hx81kQ\n", nil
	}
	if cmd == "sudo" && r.sudoErr != nil {
		return "sudo: a password is required\n", r.sudoErr
	}
	return "", nil
}

func (r *fakeRunner) RunStreaming(cmd string, args []string, stdout, stderr io.Writer) error {
	*r.calls = append(*r.calls, r.name+":run")
	r.runs = append(r.runs, append([]string{cmd}, args...))
	if r.runErr != nil {
		return r.runErr
	}
	_, _ = io.WriteString(stdout, r.name+" ok\n")
	return nil
}

func (r *fakeRunner) Push(localPath string, remotePath string, mode os.FileMode) error {
	*r.calls = append(*r.calls, r.name+":push")
	r.pushes = append(r.pushes, push{local: localPath, remote: remotePath, mode: mode})
	return r.pushErr
}

type harness struct {
	calls   []string
	runners map[string]*fakeRunner
	local   *fakeRunner
	stdout  bytes.Buffer
}

func newHarness(addresses ...string) *harness {
	h := &harness{runners: make(map[string]*fakeRunner)}
	for _, addr := range addresses {
		h.runners[addr] = &fakeRunner{name: addr, calls: &h.calls}
	}
	h.local = &fakeRunner{name: "local", calls: &h.calls}
	return h
}

func (h *harness) orchestrator(t *testing.T, sudo bool) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Binary:     "./bin/configure-host",
		RemotePath: "/usr/local/sbin/configure-host",
		Verbose:    true,
		Sudo:       sudo,
		Dial: func(host config.Host) remote.Runner {
			r, ok := h.runners[host.Address]
			if !ok {
				t.Fatalf("unexpected dial %q", host.Address)
			}
			return r
		},
		Local:  h.local,
		Logger: zerolog.Nop(),
		Stdout: &h.stdout,
		Stderr: io.Discard,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return o
}

func fleetHosts() []config.Host {
	return []config.Host{
		{Address: "server1-mgmt", Target: config.Target{
			Name:    "loghost",
			IP:      "192.168.16.3",
			Entries: []config.Entry{{Name: "webhost", IP: "192.168.16.4"}},
		}},
		{Address: "server2-mgmt", Target: config.Target{
			Name:    "webhost",
			IP:      "192.168.16.4",
			Entries: []config.Entry{{Name: "loghost", IP: "192.168.16.3"}},
		}},
	}
}

func localTarget() config.Target {
	return config.Target{Entries: []config.Entry{
		{Name: "loghost", IP: "192.168.16.3"},
		{Name: "webhost", IP: "192.168.16.4"},
	}}
}

func TestArgs(t *testing.T) {
	got := Args(fleetHosts()[0].Target, true)
	want := []string{"-verbose", "-name", "loghost", "-ip", "192.168.16.3", "-hostentry", "webhost", "192.168.16.4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args: %q", got)
	}
	if got := Args(config.Target{Name: "x"}, false); !reflect.DeepEqual(got, []string{"-name", "x"}) {
		t.Fatalf("unexpected args: %q", got)
	}
}

func TestApplyRunsHostsInOrderThenLocal(t *testing.T) {
	testlog.Start(t)

	h := newHarness("server1-mgmt", "server2-mgmt")
	if err := h.orchestrator(t, false).Apply(fleetHosts(), localTarget()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	wantCalls := []string{
		"server1-mgmt:push", "server1-mgmt:run",
		"server2-mgmt:push", "server2-mgmt:run",
		"local:run",
	}
	if !reflect.DeepEqual(h.calls, wantCalls) {
		t.Fatalf("unexpected call order: %q", h.calls)
	}

	binary, err := filepath.Abs("./bin/configure-host")
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	p := h.runners["server1-mgmt"].pushes[0]
	if p.local != binary || p.remote != "/usr/local/sbin/configure-host" || p.mode != 0o755 {
		t.Fatalf("unexpected push: %+v", p)
	}
	run := h.runners["server1-mgmt"].runs[0]
	if run[0] != "/usr/local/sbin/configure-host" || run[1] != "-verbose" {
		t.Fatalf("unexpected remote run: %q", run)
	}
	local := h.local.runs[0]
	wantLocal := []string{binary, "-verbose",
		"-hostentry", "loghost", "192.168.16.3",
		"-hostentry", "webhost", "192.168.16.4"}
	if !reflect.DeepEqual(local, wantLocal) {
		t.Fatalf("unexpected local run: %q", local)
	}
	if !strings.Contains(h.stdout.String(), "server2-mgmt ok") {
		t.Fatalf("expected streamed output, got %q", h.stdout.String())
	}
}

func TestApplyUsesSudo(t *testing.T) {
	h := newHarness("server1-mgmt")
	hosts := fleetHosts()[:1]
	if err := h.orchestrator(t, true).Apply(hosts, config.Target{}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	r := h.runners["server1-mgmt"]

	// The login user cannot write remote_path; the binary is staged and
	// installed through sudo before it runs.
	if len(r.pushes) != 1 || r.pushes[0].remote != "/tmp/tmp.Hx81kQ" {
		t.Fatalf("expected push to staging file, got %+v", r.pushes)
	}
	wantCalls := []string{
		"server1-mgmt:mktemp",
		"server1-mgmt:push",
		"server1-mgmt:sudo install -m 755 /tmp/tmp.Hx81kQ /usr/local/sbin/configure-host",
		"server1-mgmt:rm -f /tmp/tmp.Hx81kQ",
		"server1-mgmt:run",
	}
	if !reflect.DeepEqual(h.calls, wantCalls) {
		t.Fatalf("unexpected call order: %q", h.calls)
	}
	run := r.runs[0]
	if run[0] != "sudo" || run[1] != "/usr/local/sbin/configure-host" {
		t.Fatalf("expected sudo prefix, got %q", run)
	}
	if len(h.local.runs) != 0 {
		t.Fatalf("empty local target must not run")
	}
}

func TestApplySudoInstallFailureSkipsRun(t *testing.T) {
	h := newHarness("server1-mgmt")
	h.runners["server1-mgmt"].sudoErr = errors.New("exit status 1")
	err := h.orchestrator(t, true).Apply(fleetHosts()[:1], config.Target{})
	if !errors.Is(err, ErrPushFailed) {
		t.Fatalf("expected ErrPushFailed, got %v", err)
	}
	r := h.runners["server1-mgmt"]
	if len(r.runs) != 0 {
		t.Fatalf("host must not run after failed install: %q", r.runs)
	}
	if last := r.commands[len(r.commands)-1]; last != "rm -f /tmp/tmp.Hx81kQ" {
		t.Fatalf("staging file not removed, last command %q", last)
	}
}

func TestApplyWithoutSudoPushesDirectly(t *testing.T) {
	h := newHarness("server1-mgmt")
	if err := h.orchestrator(t, false).Apply(fleetHosts()[:1], config.Target{}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	r := h.runners["server1-mgmt"]
	if len(r.commands) != 0 {
		t.Fatalf("expected no staging commands, got %q", r.commands)
	}
	if r.pushes[0].remote != "/usr/local/sbin/configure-host" {
		t.Fatalf("unexpected push target: %+v", r.pushes[0])
	}
}

func TestNewResolvesBinaryPath(t *testing.T) {
	o, err := New(Config{Dial: func(config.Host) remote.Runner { return nil }})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	want, err := filepath.Abs(config.DefaultBinary)
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if o.binary != want || !filepath.IsAbs(o.binary) {
		t.Fatalf("binary not resolved: %q", o.binary)
	}
}

func TestApplyContinuesPastFailures(t *testing.T) {
	h := newHarness("server1-mgmt", "server2-mgmt")
	h.runners["server1-mgmt"].pushErr = errors.New("connection refused")
	h.local.runErr = errors.New("exit status 1")

	err := h.orchestrator(t, false).Apply(fleetHosts(), localTarget())
	if !errors.Is(err, ErrPushFailed) {
		t.Fatalf("expected ErrPushFailed, got %v", err)
	}
	if !errors.Is(err, ErrLocalFailed) {
		t.Fatalf("expected ErrLocalFailed, got %v", err)
	}
	if len(h.runners["server1-mgmt"].runs) != 0 {
		t.Fatalf("failed push must not run the binary")
	}
	if len(h.runners["server2-mgmt"].runs) != 1 {
		t.Fatalf("second host must still run")
	}
}

func TestApplySkipsEmptyHostTarget(t *testing.T) {
	h := newHarness("server3-mgmt")
	if err := h.orchestrator(t, false).Apply([]config.Host{{Address: "server3-mgmt"}}, config.Target{}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(h.calls) != 0 {
		t.Fatalf("expected no calls, got %q", h.calls)
	}
}

func TestNewRequiresDialer(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoDialer) {
		t.Fatalf("expected ErrNoDialer, got %v", err)
	}
}
