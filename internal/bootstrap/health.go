package bootstrap

import (
	"github.com/eleven-am/menu-capture/internal/completion"
	"github.com/eleven-am/menu-capture/internal/health"
	"github.com/eleven-am/menu-capture/internal/runs"
	"github.com/eleven-am/menu-capture/internal/workspace"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const version = "1.0.0"

func ProvideHealthHandler(
	db *gorm.DB,
	redis *redis.Client,
	runStore *runs.Store,
	root *workspace.Root,
	client *completion.Client,
	cfg *Config,
) *health.Handler {
	return health.NewHandler(health.Dependencies{
		DB:            db,
		Redis:         redis,
		Runs:          runStore,
		WorkspaceRoot: root.Dir(),
		LogRoot:       cfg.LogRoot,
		Completion:    client.Configured,
	}, version)
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(h.Middleware())
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
