package delivery

import (
	"context"
	"strconv"

	alertdomain "github.com/smallbiznis/menusready/internal/alert/domain"
	"github.com/smallbiznis/menusready/internal/delivery/domain"
	obsmetrics "github.com/smallbiznis/menusready/internal/observability/metrics"
	"go.uber.org/zap"
)

// OutcomeSink receives every DeliveryOutcome.
type OutcomeSink interface {
	Observe(ctx context.Context, outcome domain.Outcome)
}

type OutcomeSinkFunc func(ctx context.Context, outcome domain.Outcome)

func (f OutcomeSinkFunc) Observe(ctx context.Context, outcome domain.Outcome) {
	f(ctx, outcome)
}

type logSink struct {
	log *zap.Logger
}

func (s logSink) Observe(_ context.Context, o domain.Outcome) {
	fields := []zap.Field{
		zap.Int64("job_id", o.JobID),
		zap.String("slug", o.Slug),
		zap.String("status", string(o.Status)),
		zap.String("stage", string(o.Stage)),
		zap.Int("attempts", o.Attempts),
	}
	switch {
	case o.Err != nil:
		s.log.Warn("delivery failed", append(fields, zap.Error(o.Err))...)
	case o.Skipped:
		s.log.Debug("delivery skipped", fields...)
	default:
		s.log.Info("delivery completed", fields...)
	}
}

type metricsSink struct {
	metrics  *obsmetrics.Metrics
	delivery *obsmetrics.DeliveryMetrics
}

func (s metricsSink) Observe(ctx context.Context, o domain.Outcome) {
	if o.Skipped {
		return
	}
	s.metrics.RecordDelivery(ctx, string(o.Status), string(o.Stage))
	s.delivery.IncJob(string(o.Status), string(o.Stage))
	s.delivery.IncJobError(o.Err)
}

// alertSink posts to the internal channel once a job has used its retry
// budget and needs an operator.
type alertSink struct {
	alerts      alertdomain.Service
	maxAttempts int
	log         *zap.Logger
}

func (s alertSink) Observe(ctx context.Context, o domain.Outcome) {
	if o.Err == nil || o.Attempts < s.maxAttempts {
		return
	}
	err := s.alerts.DeliveryFailed(ctx, alertdomain.DeliveryFailure{
		Slug:     o.Slug,
		JobID:    strconv.FormatInt(o.JobID, 10),
		Stage:    string(o.Stage),
		Error:    o.Error,
		Attempts: o.Attempts,
	})
	if err != nil {
		s.log.Warn("delivery failure alert not sent", zap.String("slug", o.Slug), zap.Error(err))
	}
}
