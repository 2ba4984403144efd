package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/menusready/internal/audit/domain"
	"github.com/smallbiznis/menusready/internal/audit/repository"
	"github.com/smallbiznis/menusready/internal/clock"
	obscontext "github.com/smallbiznis/menusready/internal/observability/context"
	"github.com/smallbiznis/menusready/internal/testutil"
	"github.com/smallbiznis/menusready/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()
	return NewService(Params{
		DB:    testutil.OpenDB(t, &auditdomain.AuditLog{}),
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestRecordUsesContextActorAndMasksMetadata(t *testing.T) {
	svc := newTestService(t)
	ctx := obscontext.WithActor(context.Background(), "operator", "42")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	err := svc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionMenuRegenerate,
		TargetType: auditdomain.TargetMenu,
		TargetID:   "harbor-diner",
		Metadata:   map[string]any{"customer_email": "buyer@example.com", "status": "succeeded"},
		IPAddress:  "10.0.0.1",
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListRequest{TargetID: "harbor-diner"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "operator", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "42", *entry.ActorID)
	assert.Equal(t, "b****@example.com", entry.Metadata["customer_email"])
	assert.Equal(t, "succeeded", entry.Metadata["status"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	require.NotNil(t, entry.IPAddress)
	assert.Nil(t, entry.UserAgent)
}

func TestRecordDefaultsToSystemActor(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Record(context.Background(), auditdomain.Entry{Action: auditdomain.ActionDeliveriesRetry}))

	resp, err := svc.List(context.Background(), auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), resp.AuditLogs[0].ActorType)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
}

func TestRecordRejectsEmptyAction(t *testing.T) {
	svc := newTestService(t)
	err := svc.Record(context.Background(), auditdomain.Entry{Action: "  "})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPagesNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, slug := range []string{"a-menu", "b-menu", "c-menu"} {
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionMenuCreate,
			TargetType: auditdomain.TargetMenu,
			TargetID:   slug,
		}))
	}

	first, err := svc.List(ctx, auditdomain.ListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.Equal(t, "c-menu", *first.AuditLogs[0].TargetID)
	require.True(t, first.PageInfo.HasMore)

	second, err := svc.List(ctx, auditdomain.ListRequest{PageSize: 2, PageToken: first.PageInfo.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.Equal(t, "a-menu", *second.AuditLogs[0].TargetID)
	assert.False(t, second.PageInfo.HasMore)

	_, err = svc.List(ctx, auditdomain.ListRequest{PageToken: "%%%"})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}
