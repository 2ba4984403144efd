package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/menusready/internal/operator/domain"
	"github.com/smallbiznis/menusready/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, tx *gorm.DB, op *domain.Operator) error {
	if op == nil {
		return gorm.ErrInvalidData
	}
	if err := tx.WithContext(ctx).Create(op).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrOperatorExists
		}
		return err
	}
	return nil
}

func (r *repo) FindByEmail(ctx context.Context, tx *gorm.DB, email string) (*domain.Operator, error) {
	var op domain.Operator
	if err := tx.WithContext(ctx).Where("email = ?", email).Limit(1).Find(&op).Error; err != nil {
		return nil, err
	}
	if op.ID == 0 {
		return nil, nil
	}
	return &op, nil
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Operator, error) {
	var op domain.Operator
	if err := tx.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&op).Error; err != nil {
		return nil, err
	}
	if op.ID == 0 {
		return nil, nil
	}
	return &op, nil
}

func (r *repo) UpdatePasswordHash(ctx context.Context, tx *gorm.DB, id snowflake.ID, hash string) error {
	res := tx.WithContext(ctx).
		Model(&domain.Operator{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOperatorNotFound
	}
	return nil
}
