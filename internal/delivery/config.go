package delivery

import (
	"time"

	"github.com/smallbiznis/menusready/internal/config"
)

// Config controls the worker pool, sweep cadence and retry budget.
type Config struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	RunInterval    time.Duration
	BatchSize      int
	StaleAfter     time.Duration
	JobTimeout     time.Duration
	SweepLockTTL   time.Duration
	BackoffBase    time.Duration
	BackoffCeiling time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:        2,
		QueueSize:      64,
		MaxAttempts:    6,
		RunInterval:    time.Minute,
		BatchSize:      25,
		StaleAfter:     15 * time.Minute,
		JobTimeout:     2 * time.Minute,
		SweepLockTTL:   5 * time.Minute,
		BackoffBase:    30 * time.Second,
		BackoffCeiling: time.Hour,
	}
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Workers:     cfg.Delivery.Workers,
		QueueSize:   cfg.Delivery.QueueSize,
		MaxAttempts: cfg.Delivery.MaxAttempts,
		RunInterval: cfg.Delivery.SweepInterval,
		BatchSize:   cfg.Delivery.SweepBatch,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaults.StaleAfter
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.SweepLockTTL <= 0 {
		c.SweepLockTTL = defaults.SweepLockTTL
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaults.BackoffBase
	}
	if c.BackoffCeiling <= 0 {
		c.BackoffCeiling = defaults.BackoffCeiling
	}
	return c
}

// Backoff returns the delay before the next attempt once a job has failed
// attempts times.
func (c Config) Backoff(attempts int) time.Duration {
	if attempts <= 1 {
		return c.BackoffBase
	}
	delay := c.BackoffBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= c.BackoffCeiling {
			return c.BackoffCeiling
		}
	}
	return delay
}
