package main

import (
	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/provision"
	"github.com/danmuck/hostctl/internal/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func provisionCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Install packages, services, users and SSH keys on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFleet(configPath)
			if err != nil {
				return err
			}
			p := provision.New(provision.Config{
				Runner: tools.ExecRunner{},
				Fs:     afero.NewOsFs(),
				Logger: log.Logger,
			})
			return p.Run(cfg.Provision)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Fleet config file")
	return cmd
}
