package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"embyscout/internal/api"
	"embyscout/internal/app"
	"embyscout/internal/pagescan"
)

func newPageCommand(ctx *commandContext) *cobra.Command {
	pageCmd := &cobra.Command{
		Use:   "page",
		Short: "Detect titles on web pages and annotate their library status",
	}
	pageCmd.AddCommand(newPageScanCommand(ctx))
	pageCmd.AddCommand(newPageWatchCommand(ctx))
	return pageCmd
}

func newPageScanCommand(ctx *commandContext) *cobra.Command {
	var pageURL string
	cmd := &cobra.Command{
		Use:   "scan <url-or-file>",
		Short: "Scan a page once",
		Long: `Scan a page once.

The source may be an http(s) URL, a local HTML file, or a file:// URL. When
scanning a saved file, --url gives the address used to find the site binding.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				bindingURL := pageURLOrSource(pageURL, args[0])
				anns, err := a.PageScanner().Scan(c, args[0], bindingURL)
				if err != nil {
					return err
				}
				resp := api.FromAnnotations(bindingURL, anns)
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				printAnnotations(cmd.OutOrStdout(), resp.Elements)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL used for the site binding (defaults to the source)")
	return cmd
}

func newPageWatchCommand(ctx *commandContext) *cobra.Command {
	var pageURL string
	var interval time.Duration
	var perMinute int
	cmd := &cobra.Command{
		Use:   "watch <url-or-file>",
		Short: "Poll a page and annotate titles as they appear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				opts := pagescan.WatchOptions{
					Interval:             a.Config.WatchInterval(),
					MaxRequestsPerMinute: a.Config.Page.MaxRequestsPerMinute,
				}
				if cmd.Flags().Changed("interval") {
					opts.Interval = interval
				}
				if cmd.Flags().Changed("rate") {
					opts.MaxRequestsPerMinute = perMinute
				}
				bindingURL := pageURLOrSource(pageURL, args[0])
				out := cmd.OutOrStdout()
				err := a.PageScanner().Watch(c, args[0], bindingURL, opts, func(batch []pagescan.Annotation) {
					resp := api.FromAnnotations(bindingURL, batch)
					if ctx.jsonOutput() {
						_ = writeJSON(cmd, resp)
						return
					}
					printAnnotations(out, resp.Elements)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL used for the site binding (defaults to the source)")
	cmd.Flags().DurationVar(&interval, "interval", pagescan.DefaultWatchInterval, "Poll interval")
	cmd.Flags().IntVar(&perMinute, "rate", 0, "Maximum page fetches per minute (0 keeps the configured value)")
	return cmd
}

func pageURLOrSource(pageURL, source string) string {
	if pageURL != "" {
		return pageURL
	}
	return source
}

func printAnnotations(w io.Writer, elements []api.PageElement) {
	if len(elements) == 0 {
		fmt.Fprintln(w, "No new titles detected")
		return
	}
	rows := make([][]string, 0, len(elements))
	for _, el := range elements {
		title := el.Title
		if title == "" {
			title = el.Raw
		}
		rows = append(rows, []string{el.Kind, title, colorStatus(w, el.Status), el.Server, el.HDHiveURL})
	}
	fmt.Fprintln(w, renderTable([]string{"Kind", "Title", "Status", "Server", "HDHive"}, rows, nil))
}
