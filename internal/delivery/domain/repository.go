package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Enqueue inserts the job unless its idempotency key exists and
	// returns the stored row either way.
	Enqueue(ctx context.Context, db *gorm.DB, job *Job) (*Job, bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Job, error)
	// Claim moves a runnable job to running. staleBefore lets a crashed
	// running job be reclaimed.
	Claim(ctx context.Context, db *gorm.DB, id int64, now, staleBefore time.Time) (bool, error)
	MarkGenerated(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	MarkNotified(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	MarkSucceeded(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id int64, cause string, nextAttemptAt, at time.Time) error
	// ReopenUnnotified resets the slug's payment job whose owner email
	// never went out so it runs again from generation with a fresh retry
	// budget. It returns nil when there is no such job.
	ReopenUnnotified(ctx context.Context, db *gorm.DB, slug string, now time.Time) (*Job, error)
	ListDue(ctx context.Context, db *gorm.DB, now, staleBefore time.Time, maxAttempts, limit int) ([]Job, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Job, error)
	CountByStatus(ctx context.Context, db *gorm.DB, status Status) (int64, error)
}
