package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/menusready/internal/delivery/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultListLimit = 50

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Enqueue(ctx context.Context, db *gorm.DB, job *domain.Job) (*domain.Job, bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(job)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return job, true, nil
	}

	var existing domain.Job
	if err := db.WithContext(ctx).
		Where("idempotency_key = ?", job.IdempotencyKey).
		Take(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Job, error) {
	var job domain.Job
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, id int64, now, staleBefore time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ?", id).
		Where(
			group(db).Where("status IN ?", []domain.Status{domain.StatusPending, domain.StatusFailed}).
				Or("status = ? AND updated_at < ?", domain.StatusRunning, staleBefore),
		).
		Updates(map[string]any{
			"status":     domain.StatusRunning,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkGenerated(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND generated_at IS NULL", id).
		Updates(map[string]any{"generated_at": at, "updated_at": at}).Error
}

func (r *repo) MarkNotified(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND notified_at IS NULL", id).
		Updates(map[string]any{"notified_at": at, "updated_at": at}).Error
}

func (r *repo) MarkSucceeded(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND status = ?", id, domain.StatusRunning).
		Updates(map[string]any{
			"status":     domain.StatusSucceeded,
			"last_error": nil,
			"updated_at": at,
		}).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id int64, cause string, nextAttemptAt, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND status = ?", id, domain.StatusRunning).
		Updates(map[string]any{
			"status":          domain.StatusFailed,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      cause,
			"next_attempt_at": nextAttemptAt,
			"updated_at":      at,
		}).Error
}

func (r *repo) ReopenUnnotified(ctx context.Context, db *gorm.DB, slug string, now time.Time) (*domain.Job, error) {
	reopenable := []domain.Status{domain.StatusPending, domain.StatusFailed}

	var job domain.Job
	err := db.WithContext(ctx).
		Where("slug = ? AND reason = ? AND notified_at IS NULL AND status IN ?", slug, domain.ReasonPayment, reopenable).
		Order("id DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}

	res := db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND notified_at IS NULL AND status IN ?", job.ID, reopenable).
		Updates(map[string]any{
			"status":          domain.StatusPending,
			"attempts":        0,
			"last_error":      nil,
			"generated_at":    nil,
			"next_attempt_at": now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, db, job.ID)
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, now, staleBefore time.Time, maxAttempts, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var jobs []domain.Job
	err := db.WithContext(ctx).
		Where(
			group(db).Where("status IN ? AND next_attempt_at <= ? AND attempts < ?",
				[]domain.Status{domain.StatusPending, domain.StatusFailed}, now, maxAttempts).
				Or("status = ? AND updated_at < ?", domain.StatusRunning, staleBefore),
		).
		Order("next_attempt_at ASC, id ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	stmt := db.WithContext(ctx).Model(&domain.Job{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Slug != "" {
		stmt = stmt.Where("slug = ?", filter.Slug)
	}
	if filter.BeforeID > 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	var jobs []domain.Job
	if err := stmt.Order("id DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, status domain.Status) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Job{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func group(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true})
}
