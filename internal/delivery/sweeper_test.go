package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/menusready/internal/delivery/domain"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	emailmock "github.com/smallbiznis/menusready/internal/providers/email/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweeperRunsDueJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := emailmock.NewMockProvider(ctrl)
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	h := newHarness(t, mailer, DefaultConfig())
	h.seedMenu(t, "harbor-diner", menudomain.StatePaid, "24")
	h.seedMenu(t, "blue-fork", menudomain.StatePaid, "oops")
	h.enqueue(t, "harbor-diner", domain.ReasonPayment, domain.PaymentKey("harbor-diner", "evt_1"))
	h.enqueue(t, "blue-fork", domain.ReasonRegenerate, domain.RegenerateKey("blue-fork", "01HX"))

	sweeper := NewSweeper(h.db, DefaultConfig(), h.repo, h.worker, nil, h.clock, nil, zap.NewNop())
	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Due)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 1, result.Failed)

	// The failed job waits for its backoff.
	result, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Due)

	h.clock.Advance(31 * time.Second)
	result, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Due)
	require.Equal(t, 1, result.Failed)
}

func TestSweeperSkipsExhaustedJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := DefaultConfig()
	cfg.MaxAttempts = 1
	h := newHarness(t, emailmock.NewMockProvider(ctrl), cfg)
	h.seedMenu(t, "blue-fork", menudomain.StatePaid, "oops")
	h.enqueue(t, "blue-fork", domain.ReasonRegenerate, domain.RegenerateKey("blue-fork", "01HX"))

	sweeper := NewSweeper(h.db, cfg, h.repo, h.worker, nil, h.clock, nil, zap.NewNop())
	_, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	h.clock.Advance(24 * time.Hour)
	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Due)
}

func TestReopenUnnotifiedRestoresExhaustedPaymentJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	cfg := DefaultConfig()
	cfg.MaxAttempts = 1
	h := newHarness(t, emailmock.NewMockProvider(ctrl), cfg)
	ctx := context.Background()
	h.seedMenu(t, "blue-fork", menudomain.StatePaid, "oops")
	job := h.enqueue(t, "blue-fork", domain.ReasonPayment, domain.PaymentKey("blue-fork", "evt_1"))
	h.enqueue(t, "blue-fork", domain.ReasonRegenerate, domain.RegenerateKey("blue-fork", "01HX"))

	require.False(t, h.worker.Process(ctx, job.ID).Succeeded())
	sweeper := NewSweeper(h.db, cfg, h.repo, h.worker, nil, h.clock, nil, zap.NewNop())
	h.clock.Advance(time.Hour)
	result, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Due, "only the regenerate job is still due")

	reopened, err := h.repo.ReopenUnnotified(ctx, h.db, "blue-fork", h.clock.Now())
	require.NoError(t, err)
	require.NotNil(t, reopened)
	require.Equal(t, job.ID, reopened.ID)
	require.Equal(t, domain.StatusPending, reopened.Status)
	require.Zero(t, reopened.Attempts)
	require.Nil(t, reopened.LastError)
	require.Nil(t, reopened.GeneratedAt)

	none, err := h.repo.ReopenUnnotified(ctx, h.db, "harbor-diner", h.clock.Now())
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestSweeperReclaimsStaleRunningJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newHarness(t, emailmock.NewMockProvider(ctrl), DefaultConfig())
	h.seedMenu(t, "harbor-diner", menudomain.StatePaid, "24")
	job := h.enqueue(t, "harbor-diner", domain.ReasonRegenerate, domain.RegenerateKey("harbor-diner", "01HX"))

	claimed, err := h.repo.Claim(context.Background(), h.db, job.ID, h.clock.Now(), h.clock.Now())
	require.NoError(t, err)
	require.True(t, claimed)

	sweeper := NewSweeper(h.db, DefaultConfig(), h.repo, h.worker, nil, h.clock, nil, zap.NewNop())
	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Due)

	h.clock.Advance(16 * time.Minute)
	result, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
}

func TestDispatcherProcessesQueuedJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newHarness(t, emailmock.NewMockProvider(ctrl), DefaultConfig())
	h.seedMenu(t, "harbor-diner", menudomain.StatePaid, "24")
	job := h.enqueue(t, "harbor-diner", domain.ReasonRegenerate, domain.RegenerateKey("harbor-diner", "01HX"))

	done := make(chan domain.Outcome, 1)
	h.worker.AddSink(OutcomeSinkFunc(func(_ context.Context, o domain.Outcome) { done <- o }))

	dispatcher := NewDispatcher(DefaultConfig(), h.worker, nil, zap.NewNop())
	dispatcher.Start()
	defer func() { require.NoError(t, dispatcher.Stop(context.Background())) }()

	require.True(t, dispatcher.Dispatch(job.ID))
	select {
	case outcome := <-done:
		require.Equal(t, domain.StatusSucceeded, outcome.Status)
	case <-time.After(10 * time.Second):
		t.Fatalf("job was not processed")
	}
}

func TestDispatchDoesNotBlockWhenQueueFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 1
	dispatcher := NewDispatcher(cfg, nil, nil, zap.NewNop())

	require.True(t, dispatcher.Dispatch(1))
	require.False(t, dispatcher.Dispatch(2))
}
