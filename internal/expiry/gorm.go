package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/menusready/internal/clock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is a persisted expiry row.
type Record struct {
	StoreKey  string    `gorm:"column:store_key;primaryKey;type:varchar(255)"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (Record) TableName() string { return "preview_expiries" }

// GormStore keeps expiries in the primary database so every instance agrees.
type GormStore struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewGormStore(db *gorm.DB, c clock.Clock) *GormStore {
	if c == nil {
		c = clock.New()
	}
	return &GormStore{db: db, clock: c}
}

func (s *GormStore) GetOrCreate(ctx context.Context, key string, value time.Time) (time.Time, bool, error) {
	if key == "" {
		return time.Time{}, false, ErrInvalidKey
	}
	db := s.db.WithContext(ctx)

	rec := Record{StoreKey: key, ExpiresAt: value.UTC(), CreatedAt: s.clock.Now()}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return time.Time{}, false, fmt.Errorf("insert expiry %s: %w", key, res.Error)
	}
	if res.RowsAffected > 0 {
		return rec.ExpiresAt, true, nil
	}

	var existing Record
	if err := db.Where("store_key = ?", key).First(&existing).Error; err != nil {
		return time.Time{}, false, fmt.Errorf("load expiry %s: %w", key, err)
	}
	return existing.ExpiresAt.UTC(), false, nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("store_key = ?", key).Delete(&Record{}).Error
}

// DeleteLegacy removes every pre-v2 expiry row. Marker rows are kept.
func (s *GormStore) DeleteLegacy(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("SUBSTR(store_key, 1, ?) = ?", len(legacyPrefix), legacyPrefix).
		Where("SUBSTR(store_key, 1, ?) <> ?", len(markerPrefix), markerPrefix).
		Delete(&Record{})
	return res.RowsAffected, res.Error
}
