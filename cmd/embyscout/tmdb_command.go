package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"embyscout/internal/app"
	"embyscout/internal/services/tmdb"
	"embyscout/internal/textutil"
)

type tmdbLookupView struct {
	Query     string `json:"query"`
	Found     bool   `json:"found"`
	ID        int64  `json:"id,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Title     string `json:"title,omitempty"`
	HDHiveURL string `json:"hdhiveUrl,omitempty"`
}

func newTMDBCommand(ctx *commandContext) *cobra.Command {
	tmdbCmd := &cobra.Command{
		Use:   "tmdb",
		Short: "TMDB metadata helpers",
	}
	tmdbCmd.AddCommand(&cobra.Command{
		Use:   "lookup <title>",
		Short: "Resolve a title to its TMDB entry and HDHive page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := textutil.CleanTitle(strings.Join(args, " "))
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				if a.TMDB == nil {
					return errors.New("tmdb api key not configured (set tmdb.api_key or TMDB_API_KEY)")
				}
				match, found, err := tmdb.Lookup(c, a.TMDB, query)
				if err != nil {
					return err
				}
				view := tmdbLookupView{Query: query, Found: found}
				if found {
					view.ID = match.ID
					view.MediaType = match.MediaType
					view.Title = match.Title
					view.HDHiveURL = tmdb.HDHiveURL(a.Config.Page.HDHiveBaseURL, match)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				if !found {
					fmt.Fprintf(out, "No TMDB match for %q\n", query)
					return nil
				}
				fmt.Fprintf(out, "%s [%s %d]\n", view.Title, view.MediaType, view.ID)
				if view.HDHiveURL != "" {
					fmt.Fprintln(out, view.HDHiveURL)
				}
				return nil
			})
		},
	})
	return tmdbCmd
}
