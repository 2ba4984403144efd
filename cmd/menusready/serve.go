package main

import (
	"github.com/smallbiznis/menusready/internal/delivery"
	"github.com/smallbiznis/menusready/internal/migration"
	"github.com/smallbiznis/menusready/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the delivery dispatcher and sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				coreModules(),
				migration.Module,
				delivery.BackgroundModule,
				server.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
