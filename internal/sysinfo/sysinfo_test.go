package sysinfo

import (
	"errors"
	"net"
	"strings"
	"testing"
)

type fakeRunner struct {
	commands [][]string
	err      error
	stderr   []byte
	exitCode int32
}

func (r *fakeRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	r.commands = append(r.commands, append([]string{name}, args...))
	if r.err != nil {
		return nil, r.stderr, r.exitCode, r.err
	}
	return nil, nil, 0, nil
}

func TestFirstIPv4SkipsLoopbackAndV6(t *testing.T) {
	ips := []net.IP{
		net.ParseIP("127.0.0.1"),
		net.ParseIP("fe80::1"),
		nil,
		net.ParseIP("192.168.16.2"),
		net.ParseIP("10.0.0.1"),
	}
	ip, err := firstIPv4(ips)
	if err != nil {
		t.Fatalf("firstIPv4: %v", err)
	}
	if ip != "192.168.16.2" {
		t.Fatalf("unexpected ip: %q", ip)
	}
}

func TestFirstIPv4None(t *testing.T) {
	if _, err := firstIPv4([]net.IP{net.ParseIP("127.0.0.1")}); !errors.Is(err, ErrNoPrimaryIP) {
		t.Fatalf("expected ErrNoPrimaryIP, got %v", err)
	}
}

func TestApplyNetworkRunsNetplan(t *testing.T) {
	runner := &fakeRunner{}
	if err := NewLocal(runner).ApplyNetwork(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(runner.commands) != 1 || strings.Join(runner.commands[0], " ") != "netplan apply" {
		t.Fatalf("unexpected commands: %+v", runner.commands)
	}
}

func TestApplyNetworkSurfacesFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("bad yaml\n"), exitCode: 1}
	err := NewLocal(runner).ApplyNetwork()
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), `stderr="bad yaml"`) {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
