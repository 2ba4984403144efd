package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository is the menu record store. State only moves forward through
// CompareAndSetState; there is no unconditional state setter.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, menu *Menu) error
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Menu, error)
	CompareAndSetState(ctx context.Context, db *gorm.DB, slug string, expected []State, next State, t Transition) (bool, error)
	UpdateContent(ctx context.Context, db *gorm.DB, slug string, content Content, at time.Time) (bool, error)
	MarkFreePublished(ctx context.Context, db *gorm.DB, slug, email string, at time.Time) (bool, error)
	AttachDeliverables(ctx context.Context, db *gorm.DB, d *Deliverables) error
	FindDeliverables(ctx context.Context, db *gorm.DB, slug string) (*Deliverables, error)
}
