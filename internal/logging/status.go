package logging

import "github.com/rs/zerolog"

// Status tags each decision an idempotent step logs, so an operator can audit
// exactly what a run changed.
type Status string

const (
	StatusCheck Status = "CHECK"
	StatusPass  Status = "PASS"
	StatusApply Status = "APPLY"
	StatusError Status = "ERROR"
)

// StatusEvent starts a status line for op. ERROR lines log at error level,
// everything else at info.
func StatusEvent(l *zerolog.Logger, s Status, op string) *zerolog.Event {
	var e *zerolog.Event
	if s == StatusError {
		e = l.Error()
	} else {
		e = l.Info()
	}
	return e.Str("status", string(s)).Str("op", op)
}
