package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/menusready/internal/delivery"
)

// RunMetrics holds the counters of one CLI run.
type RunMetrics struct {
	registry    *prometheus.Registry
	jobs        *prometheus.GaugeVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	locked      prometheus.Gauge
}

func NewRunMetrics(command string) *RunMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"command": command}
	m := &RunMetrics{
		registry: registry,
		jobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "menusready_batch_delivery_jobs",
			Help:        "Delivery jobs handled by the last batch run, by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "menusready_batch_duration_seconds",
			Help:        "Wall time of the last batch run.",
			ConstLabels: constLabels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "menusready_batch_last_success_timestamp_seconds",
			Help:        "Unix time of the last batch run that finished without error.",
			ConstLabels: constLabels,
		}),
		locked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "menusready_batch_lock_contended",
			Help:        "1 when the run skipped because another instance held the sweep lock.",
			ConstLabels: constLabels,
		}),
	}
	registry.MustRegister(m.jobs, m.duration, m.lastSuccess, m.locked)
	return m
}

func (m *RunMetrics) Registry() *prometheus.Registry { return m.registry }

// RecordSweep stores the result of one delivery sweep.
func (m *RunMetrics) RecordSweep(result delivery.SweepResult, took time.Duration, finishedAt time.Time) {
	m.jobs.WithLabelValues("due").Set(float64(result.Due))
	m.jobs.WithLabelValues("succeeded").Set(float64(result.Succeeded))
	m.jobs.WithLabelValues("failed").Set(float64(result.Failed))
	m.jobs.WithLabelValues("skipped").Set(float64(result.Skipped))
	m.duration.Set(took.Seconds())
	if result.Locked {
		m.locked.Set(1)
	} else {
		m.locked.Set(0)
	}
	m.lastSuccess.Set(float64(finishedAt.Unix()))
}

// RecordOutcome stores a single regenerate run.
func (m *RunMetrics) RecordOutcome(succeeded bool, took time.Duration, finishedAt time.Time) {
	if succeeded {
		m.jobs.WithLabelValues("succeeded").Set(1)
		m.lastSuccess.Set(float64(finishedAt.Unix()))
	} else {
		m.jobs.WithLabelValues("failed").Set(1)
	}
	m.duration.Set(took.Seconds())
}

// Push sends the run's registry. A nil pusher is a no-op.
func (m *RunMetrics) Push(ctx context.Context, pusher Pusher) error {
	if pusher == nil {
		return nil
	}
	return pusher.Push(ctx, m.registry)
}
