package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"embyscout/internal/api"
	"embyscout/internal/app"
	"embyscout/internal/registry"
)

func newPositionCommand(ctx *commandContext) *cobra.Command {
	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Read or store the panel position used by front-ends",
	}

	positionCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the stored panel position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				pos, err := a.Registry.Position(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.Position{Top: pos.Top, Left: pos.Left})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "top=%d left=%d\n", pos.Top, pos.Left)
				return nil
			})
		},
	})

	positionCmd.AddCommand(&cobra.Command{
		Use:   "set <top> <left>",
		Short: "Store the panel position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid top %q", args[0])
			}
			left, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid left %q", args[1])
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				if err := a.Registry.SetPosition(c, registry.PanelPosition{Top: top, Left: left}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored position top=%d left=%d\n", top, left)
				return nil
			})
		},
	})

	return positionCmd
}
