package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"embyscout/internal/api"
	"embyscout/internal/app"
	"embyscout/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var keyword string

	cmd := &cobra.Command{
		Use:   "scan <server-index> [path...]",
		Short: "Trigger a library rescan on a server",
		Long: `Trigger a library rescan on a server.

Each path is refreshed after a countdown and followed by a short settle delay.
Paths default to the server's configured scan paths, or "/" when it has none.
With --keyword the search is repeated on every server after each path.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid server index %q", args[0])
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				return runScanChain(c, cmd, a, index, args[1:], keyword, ctx.jsonOutput())
			})
		},
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Search again for this keyword after each scanned path")
	return cmd
}

// runScanChain scans paths on the server at index, printing countdown
// progress. Output ends with a JSON job summary when asJSON is set.
func runScanChain(c context.Context, cmd *cobra.Command, a *app.App, index int, paths []string, keyword string, asJSON bool) error {
	summary, err := scanChain(c, cmd, a, index, paths, keyword, asJSON)
	if asJSON && summary.State != "" {
		if werr := writeJSON(cmd, summary); werr != nil {
			return werr
		}
	}
	return err
}

// scanChain runs the chain and returns its summary. Nothing is printed when
// quiet is set.
func scanChain(c context.Context, cmd *cobra.Command, a *app.App, index int, paths []string, keyword string, quiet bool) (api.ScanJob, error) {
	server, err := a.Registry.Server(c, index)
	if err != nil {
		return api.ScanJob{}, err
	}
	if len(paths) == 0 {
		paths = server.PathsOrDefault(a.Config.Scan.DefaultPath)
	}

	out := cmd.OutOrStdout()
	tty := isTerminal(out)
	started := time.Now()
	summary := api.ScanJob{
		Server:    server.Label(),
		Paths:     paths,
		Keyword:   keyword,
		State:     "running",
		Completed: []string{},
		CreatedAt: api.FormatTime(started),
	}

	var lastPhase string
	obs := scan.ObserverFuncs{
		OnProgress: func(p scan.Progress) {
			summary.Progress = api.FromProgress(p)
			if quiet {
				return
			}
			if tty {
				fmt.Fprintf(out, "\r\033[K%s", p.Message)
				return
			}
			// Without a terminal print only the first line of each phase.
			key := string(p.Phase) + "|" + p.Path
			if key != lastPhase {
				lastPhase = key
				fmt.Fprintln(out, p.Message)
			}
		},
		OnPathDone: func(path string, err error) {
			if !quiet && tty {
				fmt.Fprint(out, "\r\033[K")
			}
			if err != nil {
				if !quiet {
					fmt.Fprintf(out, "%s: %s (%v)\n", path, colorStatus(out, scan.StatusRequestFailed), err)
				}
				return
			}
			summary.Completed = append(summary.Completed, path)
			if !quiet {
				fmt.Fprintf(out, "scanned %s on %s\n", path, server.Label())
			}
			if keyword == "" {
				return
			}
			blocks, serr := a.Search.Collect(c, keyword)
			if serr != nil {
				if !quiet {
					fmt.Fprintf(out, "search after scan failed: %v\n", serr)
				}
				return
			}
			research := api.FromBlocks(keyword, blocks)
			summary.Research = &research
			if !quiet {
				for _, b := range research.Blocks {
					printBlock(out, b, keyword)
				}
			}
		},
	}

	runErr := a.Scanner.Run(c, server, paths, obs)
	summary.UpdatedAt = api.FormatTime(time.Now())
	switch {
	case runErr == nil:
		summary.State = "completed"
	case errors.Is(runErr, context.Canceled):
		summary.State = "cancelled"
		summary.Error = runErr.Error()
	default:
		summary.State = "failed"
		summary.Error = runErr.Error()
	}
	return summary, runErr
}
