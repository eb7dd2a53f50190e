package tools

import (
	"os/signal"
	"syscall"
	"testing"
)

func TestIgnoreTerminationSignals(t *testing.T) {
	IgnoreTerminationSignals()
	t.Cleanup(func() { signal.Reset(TerminationSignals...) })

	for _, sig := range []syscall.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP} {
		if !signal.Ignored(sig) {
			t.Fatalf("expected %v to be ignored", sig)
		}
	}
}
