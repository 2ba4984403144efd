package migration

import (
	"context"

	"github.com/smallbiznis/menusready/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, clk clock.Clock, log *zap.Logger) error {
		ctx := context.Background()
		if err := Migrate(ctx, conn); err != nil {
			return err
		}
		return RunAppMigrations(ctx, conn, clk, log.Named("migration"), DefaultSteps(clk)...)
	}),
)
