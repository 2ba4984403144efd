package expiry

import (
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StoreParams struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Redis  *redis.Client `optional:"true"`
	Clock  clock.Clock
	Log    *zap.Logger
}

// NewStore selects the backing store from PREVIEW_EXPIRY_STORE.
func NewStore(p StoreParams) Store {
	log := p.Log.Named("expiry.store")
	switch strings.ToLower(strings.TrimSpace(p.Config.PreviewStore)) {
	case "memory":
		log.Warn("preview expiry kept in memory; expiries reset on restart")
		return NewMemoryStore()
	case "redis":
		if p.Redis != nil {
			return NewRedisStore(p.Redis)
		}
		log.Warn("redis preview store requested without REDIS_ADDR, using database")
	}
	return NewGormStore(p.DB, p.Clock)
}

var Module = fx.Module("expiry",
	fx.Provide(NewStore),
	fx.Provide(NewTimer),
)
