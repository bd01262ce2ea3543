package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"embyscout/internal/api"
	"embyscout/internal/app"
	"embyscout/internal/registry"
)

type serverFlags struct {
	name      string
	url       string
	apiKey    string
	useHeader bool
	paths     string
}

func (f *serverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Display name")
	cmd.Flags().StringVar(&f.url, "url", "", "Base URL, e.g. http://emby.local:8096")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Emby API key")
	cmd.Flags().BoolVar(&f.useHeader, "header", false, "Send the key as X-Emby-Token instead of api_key")
	cmd.Flags().StringVar(&f.paths, "paths", "", "Comma separated library paths to rescan")
}

// apply overlays the flags the user set onto base.
func (f *serverFlags) apply(cmd *cobra.Command, base registry.ServerConfig) registry.ServerConfig {
	flags := cmd.Flags()
	if flags.Changed("name") {
		base.Name = f.name
	}
	if flags.Changed("url") {
		base.URL = f.url
	}
	if flags.Changed("api-key") {
		base.APIKey = f.apiKey
	}
	if flags.Changed("header") {
		base.UseHeader = f.useHeader
	}
	if flags.Changed("paths") {
		base.ScanPaths = registry.ParseScanPaths(f.paths)
	}
	return base
}

func newServerCommand(ctx *commandContext) *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Manage media servers",
	}
	serverCmd.AddCommand(newServerAddCommand(ctx))
	serverCmd.AddCommand(newServerListCommand(ctx))
	serverCmd.AddCommand(newServerUpdateCommand(ctx))
	serverCmd.AddCommand(newServerRemoveCommand(ctx))
	serverCmd.AddCommand(newServerTestCommand(ctx))
	return serverCmd
}

func newServerAddCommand(ctx *commandContext) *cobra.Command {
	var flags serverFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				index, err := a.Registry.AddServer(c, flags.apply(cmd, registry.ServerConfig{}))
				if err != nil {
					return err
				}
				server, err := a.Registry.Server(c, index)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromServer(index, server))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added server %d: %s\n", index, server.Label())
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newServerListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				servers, err := a.Registry.Servers(c)
				if err != nil {
					return err
				}
				views := api.FromServers(servers)
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ServerListResponse{Servers: views})
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No servers configured")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, s := range views {
					auth := "query"
					if s.UseHeader {
						auth = "header"
					}
					rows = append(rows, []string{
						strconv.Itoa(s.Index),
						s.Name,
						s.URL,
						yesNo(s.HasAPIKey),
						auth,
						strings.Join(s.ScanPaths, ", "),
						s.ServerID,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Name", "URL", "Key", "Auth", "Scan paths", "Server ID"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
}

func newServerUpdateCommand(ctx *commandContext) *cobra.Command {
	var flags serverFlags
	cmd := &cobra.Command{
		Use:   "update <index>",
		Short: "Update fields of a server; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				current, err := a.Registry.Server(c, index)
				if err != nil {
					return err
				}
				if err := a.Registry.UpdateServer(c, index, flags.apply(cmd, current)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated server %d\n", index)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newServerRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"rm"},
		Short:   "Remove a server; sites bound to it become unbound",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				removed, err := a.Registry.RemoveServer(c, index)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed server %d: %s\n", index, removed.Label())
				return nil
			})
		},
	}
}

func newServerTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test [index]",
		Short: "Check that servers answer and cache their ids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			only := -1
			if len(args) == 1 {
				index, err := parseIndex(args[0])
				if err != nil {
					return err
				}
				only = index
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				servers, err := a.Registry.Servers(c)
				if err != nil {
					return err
				}
				if only >= len(servers) {
					return fmt.Errorf("server index %d out of range (have %d)", only, len(servers))
				}
				var results []api.ServerTestResponse
				for i, server := range servers {
					if only >= 0 && i != only {
						continue
					}
					online, perr := a.Probe(c, server)
					res := api.ServerTestResponse{Index: i, Online: online}
					if perr != nil {
						res.Error = perr.Error()
					}
					results = append(results, res)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(results))
				for _, res := range results {
					state := "offline"
					if res.Online {
						state = "online"
					}
					rows = append(rows, []string{strconv.Itoa(res.Index), servers[res.Index].Label(), colorStatus(out, state), res.Error})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Server", "State", "Error"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q", raw)
	}
	return index, nil
}
