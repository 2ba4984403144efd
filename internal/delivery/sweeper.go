package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/delivery/domain"
	obsmetrics "github.com/smallbiznis/menusready/internal/observability/metrics"
	"github.com/smallbiznis/menusready/internal/ratelimit"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepLockKey = "menusready:delivery:sweep"

// SweepResult summarises one sweep.
type SweepResult struct {
	Due       int  `json:"due"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	Locked    bool `json:"locked"`
}

// Sweeper retries due jobs on a fixed interval.
type Sweeper struct {
	db      *gorm.DB
	cfg     Config
	repo    domain.Repository
	worker  *Worker
	locker  *ratelimit.Locker
	clock   clock.Clock
	metrics *obsmetrics.DeliveryMetrics
	log     *zap.Logger
}

func NewSweeper(db *gorm.DB, cfg Config, repo domain.Repository, worker *Worker, locker *ratelimit.Locker, c clock.Clock, metrics *obsmetrics.DeliveryMetrics, log *zap.Logger) *Sweeper {
	return &Sweeper{
		db:      db,
		cfg:     cfg.withDefaults(),
		repo:    repo,
		worker:  worker,
		locker:  locker,
		clock:   c,
		metrics: metrics,
		log:     log.Named("delivery.sweeper").With(zap.String("component", "sweeper")),
	}
}

// RunOnce processes every due job. Locked is true when another instance
// holds the sweep lock and nothing was done.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSweep(time.Since(start)) }()

	lease, err := s.locker.Acquire(ctx, sweepLockKey, s.cfg.SweepLockTTL)
	switch {
	case errors.Is(err, ratelimit.ErrLockHeld):
		return SweepResult{Locked: true}, nil
	case errors.Is(err, ratelimit.ErrLockNotConfigured):
		lease = nil
	case err != nil:
		return SweepResult{}, err
	}
	if lease != nil {
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	now := s.clock.Now()
	jobs, err := s.repo.ListDue(ctx, s.db, now, now.Add(-s.cfg.StaleAfter), s.cfg.MaxAttempts, s.cfg.BatchSize)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Due: len(jobs)}
	for i, job := range jobs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if lease != nil && i > 0 {
			if err := lease.Extend(ctx); err != nil {
				s.log.Warn("sweep lock not extended; stopping sweep early",
					zap.Int("processed", i),
					zap.Error(err),
				)
				break
			}
		}
		outcome := s.worker.Process(ctx, job.ID)
		switch {
		case outcome.Skipped:
			result.Skipped++
		case outcome.Succeeded():
			result.Succeeded++
		default:
			result.Failed++
		}
	}
	if result.Due > 0 {
		s.log.Info("delivery sweep finished",
			zap.Int("due", result.Due),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
		)
	}
	return result, nil
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("delivery sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
