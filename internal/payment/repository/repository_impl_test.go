package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/menusready/internal/payment/domain"
	"github.com/smallbiznis/menusready/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestInsertEventIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t, &domain.EventRecord{})
	node := testutil.Node(t)
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &domain.EventRecord{
		ID:              node.Generate().Int64(),
		Provider:        domain.ProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       domain.EventTypeCheckoutCompleted,
		Slug:            "blue-fork-cafe",
		Payload:         datatypes.JSON(`{"id":"evt_1"}`),
		ReceivedAt:      now,
	}
	inserted, err := repo.InsertEvent(ctx, db, first)
	require.NoError(t, err)
	require.True(t, inserted)

	dup := *first
	dup.ID = node.Generate().Int64()
	inserted, err = repo.InsertEvent(ctx, db, &dup)
	require.NoError(t, err)
	require.False(t, inserted)

	found, err := repo.FindEvent(ctx, db, domain.ProviderStripe, "evt_1")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, first.ID, found.ID)
	require.Nil(t, found.ProcessedAt)

	require.NoError(t, repo.MarkProcessed(ctx, db, found.ID, now))
	found, err = repo.FindEvent(ctx, db, domain.ProviderStripe, "evt_1")
	require.NoError(t, err)
	require.NotNil(t, found.ProcessedAt)

	missing, err := repo.FindEvent(ctx, db, domain.ProviderStripe, "evt_missing")
	require.NoError(t, err)
	require.Nil(t, missing)
}
