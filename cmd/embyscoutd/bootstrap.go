package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"embyscout/internal/config"
	"embyscout/internal/daemonrun"
)

type daemonFlags struct {
	configPath string
	bind       string
	logLevel   string
}

func (f daemonFlags) options() daemonrun.Options {
	return daemonrun.Options{Bind: f.bind, LogLevel: f.logLevel}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var flags daemonFlags
	cmd := &cobra.Command{
		Use:           "embyscoutd",
		Short:         "Serve the embyscout HTTP API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, flags.options())
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&flags.bind, "bind", "", "Override paths.api_bind")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Override logging.level")
	return cmd
}
