//go:build windows || plan9

package logging

import (
	"errors"

	"github.com/rs/zerolog"
)

func openSyslog(string) (zerolog.LevelWriter, error) {
	return nil, errors.New("logging: syslog not supported on this platform")
}
