package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"embyscout/internal/api"
	"embyscout/internal/daemonctl"
	"embyscout/internal/daemonrun"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var bind string
	var logLevel string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the embyscout daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{Bind: bind, LogLevel: logLevel})
		},
	}
	serveCmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.daemonClient()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			opts := daemonctl.LaunchOptions{}
			if path := ctx.configPath(); path != "" {
				if abs, err := filepath.Abs(path); err == nil {
					opts.ConfigPath = abs
				}
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, opts, 10*time.Second)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(out, "Daemon already running")
			default:
				fmt.Fprintf(out, "Daemon started (pid %d) at %s\n", result.PID, client.BaseURL())
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.daemonClient()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cmd.Context(), client, cfg, 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.daemonClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				status = &api.DaemonStatus{}
			} else if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			if !status.Running {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			rows := [][]string{
				{"Address", client.BaseURL()},
				{"PID", fmt.Sprint(status.PID)},
				{"Started", status.StartedAt},
				{"Store", status.StoreDriver},
				{"Servers", fmt.Sprint(status.Servers)},
				{"Sites", fmt.Sprint(status.Sites)},
				{"Active scans", fmt.Sprint(status.ActiveScans)},
				{"TMDB", yesNo(status.TMDBEnabled)},
				{"Lock", status.LockFilePath},
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	return []*cobra.Command{serveCmd, startCmd, stopCmd, statusCmd}
}

func (c *commandContext) daemonClient() (*daemonctl.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return daemonctl.NewClient(cfg)
}
