package main

import (
	"fmt"
	"os"
	"time"

	"github.com/danmuck/hostctl/internal/logging"
	"github.com/danmuck/hostctl/internal/observability"
	"github.com/danmuck/hostctl/internal/reconcile"
	"github.com/danmuck/hostctl/internal/sysinfo"
	"github.com/danmuck/hostctl/internal/tools"
	"github.com/spf13/afero"
)

const (
	EnvHostsFile    = "HOSTCTL_HOSTS_FILE"
	EnvHostnameFile = "HOSTCTL_HOSTNAME_FILE"
	EnvNetplanDir   = "HOSTCTL_NETPLAN_DIR"
	// EnvMetricsFile names a node-exporter textfile to write after each run.
	EnvMetricsFile = "HOSTCTL_METRICS_FILE"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	tools.IgnoreTerminationSignals()

	opts, skipped, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure-host: %v\n%s", err, usage)
		return 2
	}

	logger := logging.ConfigureRuntime(logging.Options{
		Tag:     "configure-host",
		Syslog:  true,
		Verbose: opts.verbose,
	})
	for _, arg := range skipped {
		logger.Debug().Str("arg", arg).Msg("ignoring unrecognized argument")
	}

	var metrics *observability.Recorder
	metricsPath := os.Getenv(EnvMetricsFile)
	if metricsPath != "" {
		metrics = observability.NewRecorder()
	}

	start := time.Now()
	rec, err := reconcile.New(reconcile.Config{
		Fs:           afero.NewOsFs(),
		HostsPath:    os.Getenv(EnvHostsFile),
		HostnamePath: os.Getenv(EnvHostnameFile),
		NetplanDir:   os.Getenv(EnvNetplanDir),
		System:       sysinfo.NewLocal(tools.ExecRunner{}),
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure-host: %v\n", err)
		return 1
	}
	err = rec.Apply(opts.target)
	if metrics != nil {
		metrics.RecordRun(start, err)
		if werr := metrics.WriteTextfile(metricsPath); werr != nil {
			logger.Warn().Err(werr).Str("path", metricsPath).Msg("write metrics textfile")
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure-host: %v\n", err)
		return 1
	}
	return 0
}
