package reconcile

import (
	"github.com/danmuck/hostctl/internal/logging"
	"github.com/rs/zerolog"
)

const (
	opHostname  = "hostname"
	opPrimaryIP = "primary_ip"
	opHostEntry = "host_entry"
)

func (r *Reconciler) status(s logging.Status, op string) *zerolog.Event {
	r.metrics.RecordOperation(op, s)
	return logging.StatusEvent(&r.log, s, op)
}

func (r *Reconciler) fail(op string, err error) error {
	r.status(logging.StatusError, op).Err(err).Msg("operation failed")
	return err
}
