package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"embyscout/internal/api"
	"embyscout/internal/app"
	"embyscout/internal/library"
	"embyscout/internal/registry"
)

type siteFlags struct {
	name   string
	url    string
	server int
}

func (f *siteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Display name")
	cmd.Flags().StringVar(&f.url, "url", "", "Site URL; pages whose host matches use this binding")
	cmd.Flags().IntVar(&f.server, "server", 0, "Index of the server the site is bound to")
}

func (f *siteFlags) apply(cmd *cobra.Command, base registry.SiteConfig) registry.SiteConfig {
	flags := cmd.Flags()
	if flags.Changed("name") {
		base.Name = f.name
	}
	if flags.Changed("url") {
		base.URL = f.url
	}
	if flags.Changed("server") {
		base.ServerIndex = f.server
	}
	return base
}

func newSiteCommand(ctx *commandContext) *cobra.Command {
	siteCmd := &cobra.Command{
		Use:   "site",
		Short: "Manage web sites bound to servers",
	}
	siteCmd.AddCommand(newSiteAddCommand(ctx))
	siteCmd.AddCommand(newSiteListCommand(ctx))
	siteCmd.AddCommand(newSiteUpdateCommand(ctx))
	siteCmd.AddCommand(newSiteRemoveCommand(ctx))
	siteCmd.AddCommand(newSiteCheckCommand(ctx))
	return siteCmd
}

func newSiteAddCommand(ctx *commandContext) *cobra.Command {
	var flags siteFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				index, err := a.Registry.AddSite(c, flags.apply(cmd, registry.SiteConfig{}))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added site %d\n", index)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSiteListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sites and their server bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				sites, err := a.Registry.Sites(c)
				if err != nil {
					return err
				}
				servers, err := a.Registry.Servers(c)
				if err != nil {
					return err
				}
				views := api.FromSites(sites, servers)
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.SiteListResponse{Sites: views})
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No sites configured")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, s := range views {
					rows = append(rows, []string{strconv.Itoa(s.Index), s.Name, s.URL, colorStatus(out, s.Server)})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Name", "URL", "Server"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
}

func newSiteUpdateCommand(ctx *commandContext) *cobra.Command {
	var flags siteFlags
	cmd := &cobra.Command{
		Use:   "update <index>",
		Short: "Update fields of a site; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				sites, err := a.Registry.Sites(c)
				if err != nil {
					return err
				}
				if index >= len(sites) {
					return fmt.Errorf("site index %d out of range (have %d)", index, len(sites))
				}
				if err := a.Registry.UpdateSite(c, index, flags.apply(cmd, sites[index])); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated site %d\n", index)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSiteRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"rm"},
		Short:   "Remove a site",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				removed, err := a.Registry.RemoveSite(c, index)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed site %d: %s\n", index, removed.Name)
				return nil
			})
		},
	}
}

func newSiteCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <index> <title>",
		Short: "Check a title on the server a site is bound to",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				sites, err := a.Registry.Sites(c)
				if err != nil {
					return err
				}
				if index >= len(sites) {
					return fmt.Errorf("site index %d out of range (have %d)", index, len(sites))
				}
				site := sites[index]
				res := library.Result{Title: title, Site: site.Name}
				server, err := a.Registry.ServerForSite(c, site)
				if errors.Is(err, registry.ErrUnbound) {
					res.Status = library.StatusUnbound
					res.Err = err
				} else if err != nil {
					return err
				} else {
					res = a.Checker.CheckServer(c, server, res)
				}
				a.Metrics.ObserveCheck(string(res.Status))
				return printCheck(cmd, ctx.jsonOutput(), res)
			})
		},
	}
}
