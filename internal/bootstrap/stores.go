package bootstrap

import (
	"github.com/eleven-am/menu-capture/internal/audit"
	"github.com/eleven-am/menu-capture/internal/runs"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideRunStore(redisClient *redis.Client, cfg *Config) *runs.Store {
	return runs.NewStore(redisClient, cfg.RunTTL)
}

func ProvideAuditStore(db *gorm.DB) *audit.Store {
	return audit.NewStore(db)
}

func RunMigrations(auditStore *audit.Store) error {
	return auditStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideRunStore,
		ProvideAuditStore,
	),
	fx.Invoke(RunMigrations),
)
