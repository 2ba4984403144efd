package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/expiry"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppMigration records a one-time data migration that has been applied.
type AppMigration struct {
	Name      string    `gorm:"column:name;primaryKey;type:varchar(128)"`
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
}

func (AppMigration) TableName() string { return "app_migrations" }

// Step is a named data migration. Run receives the transaction that also
// records the step, so a failed step is retried on the next start.
type Step struct {
	Name string
	Run  func(ctx context.Context, tx *gorm.DB) error
}

const ResetLegacyPreviewExpiry = "reset_legacy_preview_expiry"

// DefaultSteps are applied on every start.
func DefaultSteps(clk clock.Clock) []Step {
	return []Step{
		{
			Name: ResetLegacyPreviewExpiry,
			Run: func(ctx context.Context, tx *gorm.DB) error {
				_, err := expiry.NewGormStore(tx, clk).DeleteLegacy(ctx)
				return err
			},
		},
	}
}

// RunAppMigrations applies each step at most once. The marker row is inserted
// first so a concurrent instance blocks on it and then skips the step.
func RunAppMigrations(ctx context.Context, conn *gorm.DB, clk clock.Clock, log *zap.Logger, steps ...Step) error {
	if clk == nil {
		clk = clock.New()
	}
	for _, step := range steps {
		applied := false
		err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&AppMigration{Name: step.Name, AppliedAt: clk.Now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			if err := step.Run(ctx, tx); err != nil {
				return err
			}
			applied = true
			return nil
		})
		if err != nil {
			return fmt.Errorf("app migration %s: %w", step.Name, err)
		}
		if applied && log != nil {
			log.Info("app migration applied", zap.String("name", step.Name))
		}
	}
	return nil
}
