//go:build !windows && !plan9

package logging

import (
	"log/syslog"

	"github.com/rs/zerolog"
)

func openSyslog(tag string) (zerolog.LevelWriter, error) {
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, tag)
	if err != nil {
		return nil, err
	}
	return zerolog.SyslogLevelWriter(w), nil
}
