package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"embyscout/internal/api"
	"embyscout/internal/app"
	"embyscout/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var scanMissing bool

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search every configured server for a title",
		Long: `Search every configured server for a title.

Results are printed per server as each one answers. A four digit year in the
keyword restricts matches to that production year. With --scan, servers that
report the title missing and have scan paths are rescanned and searched again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.TrimSpace(strings.Join(args, " "))
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				if ctx.jsonOutput() {
					blocks, err := a.Search.Collect(c, keyword)
					if err != nil {
						return err
					}
					resp := api.FromBlocks(keyword, blocks)
					if !scanMissing {
						return writeJSON(cmd, resp)
					}
					scans, scanErr := scanMissingServers(c, cmd, a, blocks, keyword, true)
					if err := writeJSON(cmd, searchScanOutput{SearchResponse: resp, Scans: scans}); err != nil {
						return err
					}
					return scanErr
				}

				out := cmd.OutOrStdout()
				var (
					mu       sync.Mutex
					terminal []search.Block
				)
				err := a.Search.Search(c, keyword, search.SinkFunc(func(b search.Block) {
					if !b.Terminal() {
						return
					}
					mu.Lock()
					defer mu.Unlock()
					terminal = append(terminal, b)
					printBlock(out, api.FromBlock(b), keyword)
				}))
				if err != nil {
					return err
				}
				if scanMissing {
					_, err = scanMissingServers(c, cmd, a, terminal, keyword, false)
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&scanMissing, "scan", false, "Rescan servers where the title is missing, then search again")
	return cmd
}

// searchScanOutput is the --json document for search --scan.
type searchScanOutput struct {
	api.SearchResponse
	Scans []api.ScanJob `json:"scans"`
}

// scanMissingServers runs the scan chain on every server that offered one.
// A failing server does not stop the others; errors are joined.
func scanMissingServers(c context.Context, cmd *cobra.Command, a *app.App, blocks []search.Block, keyword string, quiet bool) ([]api.ScanJob, error) {
	scans := []api.ScanJob{}
	var errs []error
	for _, b := range blocks {
		if b.State != search.StateMissing || !b.ScanOffered {
			continue
		}
		summary, err := scanChain(c, cmd, a, b.ServerIndex, nil, keyword, quiet)
		if summary.State != "" {
			scans = append(scans, summary)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return scans, err
			}
			errs = append(errs, fmt.Errorf("%s: %w", b.Server, err))
		}
	}
	return scans, errors.Join(errs...)
}

func printBlock(w io.Writer, b api.SearchBlock, keyword string) {
	if b.ServerIndex < 0 {
		fmt.Fprintf(w, "%s: add a server with `embyscout server add`\n", colorStatus(w, b.State))
		return
	}
	fmt.Fprintf(w, "[%d] %s: %s\n", b.ServerIndex, b.Server, colorStatus(w, b.State))
	switch b.State {
	case string(search.StateFailed):
		if b.Error != "" {
			fmt.Fprintf(w, "    %s\n", b.Error)
		}
	case string(search.StateMissing):
		if b.ScanOffered {
			fmt.Fprintf(w, "    scan available: embyscout scan %d --keyword %q\n", b.ServerIndex, keyword)
		}
	case string(search.StateResults):
		for _, hit := range b.Hits {
			label := hit.Name
			if hit.Year > 0 {
				label = fmt.Sprintf("%s (%d)", hit.Name, hit.Year)
			}
			fmt.Fprintf(w, "  - %s [%s]\n", label, hit.Type)
			if hit.Episode != "" {
				fmt.Fprintf(w, "    %s\n", hit.Episode)
			}
			fmt.Fprintf(w, "    %s\n", hit.OpenURL)
		}
	}
}
