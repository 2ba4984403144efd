package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/smallbiznis/menusready/internal/alert"
	"github.com/smallbiznis/menusready/internal/audit"
	"github.com/smallbiznis/menusready/internal/cache"
	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/deliverable"
	"github.com/smallbiznis/menusready/internal/delivery"
	"github.com/smallbiznis/menusready/internal/expiry"
	"github.com/smallbiznis/menusready/internal/menu"
	"github.com/smallbiznis/menusready/internal/observability"
	"github.com/smallbiznis/menusready/internal/operator"
	"github.com/smallbiznis/menusready/internal/payment"
	"github.com/smallbiznis/menusready/internal/providers"
	"github.com/smallbiznis/menusready/internal/publication"
	"github.com/smallbiznis/menusready/internal/ratelimit"
	"github.com/smallbiznis/menusready/pkg/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const envPrefix = "MENUSREADY"

var (
	cfgFile string
	envFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "menusready",
		Short:         "Restaurant menu publication service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newRegenerateCmd(),
		newRetryDeliveriesCmd(),
		newCreateOperatorCmd(),
		newIssueOperatorTokenCmd(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("node.id", 1)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to CLI configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file loaded before the environment")
	cmd.PersistentFlags().String("http-address", "", "HTTP listen address")
	cmd.PersistentFlags().String("environment", "", "Deployment environment")
	cmd.PersistentFlags().String("database-type", "", "Database dialect (postgres, mysql, sqlite, sqlite3)")
	cmd.PersistentFlags().String("database-path", "", "SQLite database path")
	cmd.PersistentFlags().Int64("node-id", 1, "Snowflake node id")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "environment", "environment")
	bindFlag(cmd, "database.type", "database-type")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "node.id", "node-id")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// applyOverrides layers flag and MENUSREADY_ values over the loaded config.
func applyOverrides(v *viper.Viper) func(config.Config) config.Config {
	return func(cfg config.Config) config.Config {
		if s := strings.TrimSpace(v.GetString("http.address")); s != "" {
			cfg.HTTPAddress = s
		}
		if s := strings.TrimSpace(v.GetString("environment")); s != "" {
			cfg.Environment = s
		}
		if s := strings.TrimSpace(v.GetString("database.type")); s != "" {
			cfg.DBType = s
		}
		if s := strings.TrimSpace(v.GetString("database.path")); s != "" {
			cfg.DBPath = s
		}
		return cfg
	}
}

func newSnowflakeNode(v *viper.Viper) func() (*snowflake.Node, error) {
	return func() (*snowflake.Node, error) {
		return snowflake.NewNode(v.GetInt64("node.id"))
	}
}

// coreModules is shared by every command. Commands add their own entry
// points on top.
func coreModules() fx.Option {
	v := viper.GetViper()
	return fx.Options(
		config.Module,
		fx.Decorate(applyOverrides(v)),
		observability.Module,
		fx.Provide(newSnowflakeNode(v)),
		clock.Module,
		db.Module,
		cache.Module,
		ratelimit.Module,
		providers.Module,
		alert.Module,
		deliverable.Module,
		expiry.Module,
		menu.Module,
		payment.Module,
		delivery.Module,
		publication.Module,
		operator.Module,
		audit.Module,
	)
}

// runOnce starts the graph, calls fn, and stops the graph. Targets are
// populated before fn runs.
func runOnce(ctx context.Context, fn func(context.Context) error, opts ...fx.Option) error {
	all := append([]fx.Option{coreModules(), fx.NopLogger}, opts...)
	app := fx.New(all...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
