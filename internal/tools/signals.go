package tools

import (
	"os"
	"os/signal"
	"syscall"
)

// TerminationSignals are masked while host state is being changed.
var TerminationSignals = []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP}

// IgnoreTerminationSignals ignores TerminationSignals for the rest of the
// process lifetime.
func IgnoreTerminationSignals() {
	signal.Ignore(TerminationSignals...)
}
