package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/menusready/internal/menu/domain"
	"github.com/smallbiznis/menusready/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, tx *gorm.DB, menu *domain.Menu) error {
	if menu == nil {
		return gorm.ErrInvalidData
	}
	if err := tx.WithContext(ctx).Create(menu).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *repo) FindBySlug(ctx context.Context, tx *gorm.DB, slug string) (*domain.Menu, error) {
	var m domain.Menu
	err := tx.WithContext(ctx).Where("slug = ?", slug).Limit(1).Find(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

// CompareAndSetState moves slug to next only while its state is one of expected.
// It returns false when no row matched, which callers treat as a lost race or
// an already-applied transition.
func (r *repo) CompareAndSetState(ctx context.Context, tx *gorm.DB, slug string, expected []domain.State, next domain.State, t domain.Transition) (bool, error) {
	if len(expected) == 0 {
		return false, domain.ErrInvalidTransition
	}
	for _, from := range expected {
		if !domain.CanTransition(from, next) {
			return false, domain.ErrInvalidTransition
		}
	}

	updatedAt := t.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	values := map[string]any{
		"state":      next,
		"updated_at": updatedAt,
	}
	if t.PaidAt != nil {
		values["paid_at"] = *t.PaidAt
	}
	if t.CustomerEmail != nil {
		values["customer_email"] = *t.CustomerEmail
	}

	res := tx.WithContext(ctx).
		Model(&domain.Menu{}).
		Where("slug = ? AND state IN ?", slug, expected).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateContent(ctx context.Context, tx *gorm.DB, slug string, content domain.Content, at time.Time) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&domain.Menu{}).
		Where("slug = ?", slug).
		Updates(map[string]any{
			"content":    datatypes.NewJSONType(content),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFreePublished(ctx context.Context, tx *gorm.DB, slug, email string, at time.Time) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&domain.Menu{}).
		Where("slug = ? AND free_published_at IS NULL", slug).
		Updates(map[string]any{
			"free_published_at": at,
			"owner_email":       email,
			"updated_at":        at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AttachDeliverables upserts the single bundle row for a paid menu.
func (r *repo) AttachDeliverables(ctx context.Context, tx *gorm.DB, d *domain.Deliverables) error {
	if d == nil || d.Slug == "" {
		return gorm.ErrInvalidData
	}
	return tx.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var state domain.State
		err := inner.Model(&domain.Menu{}).
			Select("state").
			Where("slug = ?", d.Slug).
			Limit(1).
			Scan(&state).Error
		if err != nil {
			return err
		}
		switch state {
		case "":
			return domain.ErrNotFound
		case domain.StatePaid:
		default:
			return domain.ErrNotPaid
		}

		return inner.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"qr_code_png",
				"printable_document",
				"plain_text",
				"content_digest",
				"generated_at",
			}),
		}).Create(d).Error
	})
}

func (r *repo) FindDeliverables(ctx context.Context, tx *gorm.DB, slug string) (*domain.Deliverables, error) {
	var d domain.Deliverables
	err := tx.WithContext(ctx).Where("slug = ?", slug).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
