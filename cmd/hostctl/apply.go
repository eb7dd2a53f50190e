package main

import (
	"github.com/danmuck/hostctl/internal/config"
	"github.com/danmuck/hostctl/internal/fleet"
	"github.com/danmuck/hostctl/internal/remote"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func applyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Push configure-host to every host in the fleet and run it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFleet(configPath)
			if err != nil {
				return err
			}
			orch, err := fleet.New(fleet.Config{
				Binary:     cfg.Binary,
				RemotePath: cfg.RemotePath,
				Verbose:    cfg.Verbose,
				Sudo:       cfg.SSH.Sudo,
				Dial: func(host config.Host) remote.Runner {
					return sshRunner(cfg.SSH, host)
				},
				Local:  remote.LocalRunner{},
				Logger: log.Logger,
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			return orch.Apply(cfg.Hosts, cfg.Local)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Fleet config file")
	return cmd
}

func sshRunner(ssh config.SSH, host config.Host) remote.SSHRunner {
	user := host.User
	if user == "" {
		user = ssh.User
	}
	port := host.Port
	if port == "" {
		port = ssh.Port
	}
	return remote.SSHRunner{
		Host:                        host.Address,
		Port:                        port,
		User:                        user,
		KeyPath:                     ssh.KeyPath,
		KnownHostsPath:              ssh.KnownHostsPath,
		InsecureSkipHostKeyChecking: ssh.InsecureSkipHostKeyCheck,
		Timeout:                     ssh.Timeout,
	}
}
