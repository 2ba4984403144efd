package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/migration"
	"github.com/smallbiznis/menusready/pkg/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errMigrateRequiresPostgres = errors.New("migrate --down and --version require postgres")

func newMigrateCmd() *cobra.Command {
	var (
		down        int
		showVersion bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema and data migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if down == 0 && !showVersion {
				// Schema plus app migrations run from migration.Module during graph construction.
				return runOnce(cmd.Context(), func(context.Context) error {
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				}, migration.Module)
			}

			cfg := applyOverrides(viper.GetViper())(config.Load())
			if !strings.EqualFold(strings.TrimSpace(cfg.DBType), "postgres") {
				return errMigrateRequiresPostgres
			}

			sqlDB, err := migration.OpenPostgres(db.ConfigFrom(cfg).PostgresDSN())
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if down > 0 {
				if err := migration.Down(sqlDB, down); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", down)
			}

			version, dirty, err := migration.Version(sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "Roll back N schema migrations (postgres only)")
	cmd.Flags().BoolVar(&showVersion, "version", false, "Print the current schema version (postgres only)")
	return cmd
}
