package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "HOSTCTL_LOG_LEVEL"
	EnvLogTimestamp = "HOSTCTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "HOSTCTL_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Options selects log sinks for one process.
type Options struct {
	Profile Profile
	// Tag names the process in syslog and in console output.
	Tag string
	// Syslog routes events to the system log.
	Syslog bool
	// Verbose duplicates events to stdout when Syslog is set.
	Verbose bool
	// Debug lowers the level to debug unless the environment says otherwise.
	Debug bool
}

type config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

var configureOnce sync.Once

// ConfigureRuntime sets up process logging for a binary.
func ConfigureRuntime(opts Options) zerolog.Logger {
	opts.Profile = ProfileRuntime
	return Configure(opts)
}

// ConfigureTests sets up console logging at debug level for test binaries.
func ConfigureTests() {
	Configure(Options{Profile: ProfileTest, Tag: "test"})
}

// Configure installs the process logger once; later calls return it unchanged.
func Configure(opts Options) zerolog.Logger {
	configureOnce.Do(func() {
		cfg := defaultConfig(opts)
		applyEnvOverrides(&cfg)
		log.Logger = newLogger(cfg, opts, os.Stdout, os.Stderr)
	})
	return log.Logger
}

func defaultConfig(opts Options) config {
	cfg := config{NoColor: !isTerminal(os.Stdout)}
	switch opts.Profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	if opts.Debug {
		cfg.Level = zerolog.DebugLevel
	}
	return cfg
}

func newLogger(cfg config, opts Options, stdout io.Writer, stderr io.Writer) zerolog.Logger {
	writers := make([]io.Writer, 0, 2)
	syslogFailed := false
	if opts.Syslog {
		w, err := openSyslog(opts.Tag)
		if err == nil {
			writers = append(writers, w)
		} else {
			syslogFailed = true
		}
	}
	switch {
	case opts.Syslog && opts.Verbose:
		writers = append(writers, consoleWriter(stdout, cfg))
	case syslogFailed, !opts.Syslog:
		writers = append(writers, consoleWriter(stderr, cfg))
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = zerolog.MultiLevelWriter(writers...)
	}

	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if tag := strings.TrimSpace(opts.Tag); tag != "" {
		ctx = ctx.Str("app", tag)
	}
	logger := ctx.Logger()
	if syslogFailed {
		logger.Warn().Msg("syslog unavailable, logging to stderr")
	}
	return logger
}

func consoleWriter(out io.Writer, cfg config) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}
}

func applyEnvOverrides(cfg *config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
