package main

import (
	"fmt"
	"os"

	"github.com/danmuck/hostctl/internal/logging"
	"github.com/danmuck/hostctl/internal/tools"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "hostctl.toml"

func main() {
	tools.IgnoreTerminationSignals()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "hostctl",
		Short:         "Reconcile hostnames, addresses and host entries across a fleet",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime(logging.Options{Tag: "hostctl", Debug: debug})
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(applyCmd())
	root.AddCommand(provisionCmd())
	root.AddCommand(configCmd())
	return root
}
