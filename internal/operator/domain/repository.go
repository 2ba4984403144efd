package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, op *Operator) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Operator, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Operator, error)
	UpdatePasswordHash(ctx context.Context, db *gorm.DB, id snowflake.ID, hash string) error
}
