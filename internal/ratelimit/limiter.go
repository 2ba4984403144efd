package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"go.uber.org/zap"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter guards public POST routes.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

type unlimited struct{}

func (unlimited) Allow(context.Context, string) (*Result, error) {
	return &Result{Allowed: true}, nil
}

// NewPublicLimiter picks the Redis token bucket when a client is configured
// and the in-process window otherwise.
func NewPublicLimiter(cfg config.Config, client *redis.Client, c clock.Clock, log *zap.Logger) Limiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || limitCfg.RequestsPerMinute <= 0 {
		return unlimited{}
	}
	if client != nil {
		burst := limitCfg.Burst
		if burst <= 0 {
			burst = limitCfg.RequestsPerMinute
		}
		log.Named("ratelimit").Info("using redis token bucket")
		return NewTokenBucket(client, float64(limitCfg.RequestsPerMinute)/60.0, burst)
	}
	return NewSlidingWindow(c, limitCfg.RequestsPerMinute, time.Minute)
}
