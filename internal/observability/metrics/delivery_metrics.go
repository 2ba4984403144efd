package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ErrorTypeDeadlineExceeded = "deadline_exceeded"
	ErrorTypeDB               = "db"
	ErrorTypeLockTimeout      = "db_lock_timeout"
	ErrorTypeUniqueViolation  = "unique_violation"
	ErrorTypeUnknown          = "unknown"
)

// DeliveryMetrics tracks the delivery sweeper and workers.
type DeliveryMetrics struct {
	sweeps        prometheus.Counter
	sweepDuration prometheus.Histogram
	jobs          *prometheus.CounterVec
	jobErrors     *prometheus.CounterVec
	queueDepth    prometheus.Gauge
}

func NewDeliveryMetrics(registerer prometheus.Registerer, cfg Config) (*DeliveryMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"service": serviceLabel(cfg)}
	m := &DeliveryMetrics{
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "menusready_delivery_sweeps_total",
			Help:        "Delivery sweep runs.",
			ConstLabels: labels,
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "menusready_delivery_sweep_duration_seconds",
			Help:        "Delivery sweep latency.",
			ConstLabels: labels,
			Buckets:     []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "menusready_delivery_jobs_total",
			Help:        "Delivery jobs processed by final status and stage.",
			ConstLabels: labels,
		}, []string{"status", "stage"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "menusready_delivery_job_errors_total",
			Help:        "Delivery job errors by classified type.",
			ConstLabels: labels,
		}, []string{"error_type"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "menusready_delivery_queue_depth",
			Help:        "Jobs waiting in the in-process dispatch queue.",
			ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{m.sweeps, m.sweepDuration, m.jobs, m.jobErrors, m.queueDepth} {
		if err := registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *DeliveryMetrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.sweepDuration.Observe(d.Seconds())
}

func (m *DeliveryMetrics) IncJob(status, stage string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status, stage).Inc()
}

func (m *DeliveryMetrics) IncJobError(err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(ClassifyError(err)).Inc()
}

func (m *DeliveryMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// ClassifyError maps an error to a bounded label value.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTypeDeadlineExceeded
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return ErrorTypeLockTimeout
		case "23505":
			return ErrorTypeUniqueViolation
		}
		return ErrorTypeDB
	}
	return ErrorTypeUnknown
}
