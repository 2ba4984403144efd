package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/expiry"
	"github.com/smallbiznis/menusready/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMigrateAutoMigratesSQLite(t *testing.T) {
	conn := testutil.OpenDB(t)
	require.NoError(t, Migrate(context.Background(), conn))

	for _, table := range []string{"menus", "menu_deliverables", "payment_events", "delivery_jobs", "preview_expiries", "operators", "app_migrations"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func TestRunAppMigrationsAppliesOnce(t *testing.T) {
	conn := testutil.OpenDB(t, &AppMigration{})
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	runs := 0
	step := Step{Name: "count_runs", Run: func(context.Context, *gorm.DB) error {
		runs++
		return nil
	}}

	require.NoError(t, RunAppMigrations(context.Background(), conn, clk, zap.NewNop(), step))
	require.NoError(t, RunAppMigrations(context.Background(), conn, clk, zap.NewNop(), step))
	require.Equal(t, 1, runs)

	var rec AppMigration
	require.NoError(t, conn.First(&rec, "name = ?", "count_runs").Error)
	require.True(t, rec.AppliedAt.Equal(clk.Now()))
}

func TestRunAppMigrationsRetriesFailedStep(t *testing.T) {
	conn := testutil.OpenDB(t, &AppMigration{})
	fail := true
	step := Step{Name: "flaky", Run: func(context.Context, *gorm.DB) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}}

	err := RunAppMigrations(context.Background(), conn, nil, zap.NewNop(), step)
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&AppMigration{}).Where("name = ?", "flaky").Count(&count).Error)
	require.Zero(t, count)

	fail = false
	require.NoError(t, RunAppMigrations(context.Background(), conn, nil, zap.NewNop(), step))
	require.NoError(t, conn.Model(&AppMigration{}).Where("name = ?", "flaky").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestResetLegacyPreviewExpiry(t *testing.T) {
	conn := testutil.OpenDB(t, &AppMigration{}, &expiry.Record{})
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	store := expiry.NewGormStore(conn, clk)
	legacy := expiry.LegacyKey("client-a", "harbor-diner")
	marker := expiry.MarkerKey("client-a", "harbor-diner")
	current := expiry.Key("client-a", "harbor-diner")
	for _, key := range []string{legacy, marker, current} {
		_, _, err := store.GetOrCreate(ctx, key, clk.Now().Add(time.Hour))
		require.NoError(t, err)
	}

	require.NoError(t, RunAppMigrations(ctx, conn, clk, zap.NewNop(), DefaultSteps(clk)...))

	var keys []string
	require.NoError(t, conn.Model(&expiry.Record{}).Order("store_key").Pluck("store_key", &keys).Error)
	require.ElementsMatch(t, []string{marker, current}, keys)
}
