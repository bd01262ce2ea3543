package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"embyscout/internal/api"
	"embyscout/internal/app"
	"embyscout/internal/library"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var pageURL string
	var serverIndex int

	cmd := &cobra.Command{
		Use:   "check <title>",
		Short: "Report whether a title is in the library",
		Long: `Report whether a title is in the library.

With --url the server bound to the matching site is used; otherwise --server
selects a server by index.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if strings.TrimSpace(pageURL) == "" && serverIndex < 0 {
				return errors.New("either --url or --server is required")
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				var res library.Result
				if strings.TrimSpace(pageURL) != "" {
					res = a.Checker.Check(c, a.Registry, pageURL, title)
				} else {
					server, err := a.Registry.Server(c, serverIndex)
					if err != nil {
						return err
					}
					res = a.Checker.CheckServer(c, server, library.Result{Title: title})
				}
				a.Metrics.ObserveCheck(string(res.Status))
				return printCheck(cmd, ctx.jsonOutput(), res)
			})
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL used to find the site binding")
	cmd.Flags().IntVarP(&serverIndex, "server", "s", -1, "Server index to check directly")
	return cmd
}

func printCheck(cmd *cobra.Command, asJSON bool, res library.Result) error {
	resp := api.FromCheck(res)
	if asJSON {
		return writeJSON(cmd, resp)
	}
	out := cmd.OutOrStdout()
	where := resp.Server
	switch {
	case resp.Site != "" && resp.Server != "":
		where = fmt.Sprintf("%s via %s", resp.Server, resp.Site)
	case resp.Site != "":
		where = resp.Site
	}
	if where == "" {
		fmt.Fprintf(out, "%s: %s\n", resp.Title, colorStatus(out, resp.Status))
	} else {
		fmt.Fprintf(out, "%s: %s (%s)\n", resp.Title, colorStatus(out, resp.Status), where)
	}
	if resp.Error != "" && res.Status != library.StatusNotConfigured && res.Status != library.StatusUnbound {
		fmt.Fprintf(out, "  %s\n", resp.Error)
	}
	return nil
}
