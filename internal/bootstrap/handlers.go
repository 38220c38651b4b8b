package bootstrap

import (
	"log/slog"
	"os"

	_ "github.com/eleven-am/menu-capture/docs"
	"github.com/eleven-am/menu-capture/internal/audit"
	"github.com/eleven-am/menu-capture/internal/capture"
	"github.com/eleven-am/menu-capture/internal/relay"
	"github.com/eleven-am/menu-capture/internal/runs"
	"github.com/eleven-am/menu-capture/internal/workspace"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	FilesHandler     *workspace.Handler
	CaptureHandler   *capture.Handler
	RunsHandler      *runs.Handler
	ArtifactsHandler *audit.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/api/v1")

	params.FilesHandler.RegisterRoutes(api.Group("/files"))
	params.CaptureHandler.RegisterRoutes(api.Group("/transcriptions"))
	params.RunsHandler.RegisterRoutes(api.Group("/runs"))
	params.ArtifactsHandler.RegisterRoutes(api.Group("/artifacts"))

	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideFilesHandler(files *workspace.Files, cfg *Config, logger *slog.Logger) *workspace.Handler {
	return workspace.NewHandler(files, cfg.TreeFile, logger.With("handler", "files"))
}

func ProvideCaptureHandler(service *capture.Service, r *relay.Relay, limiter *capture.RateLimiter, logger *slog.Logger) *capture.Handler {
	return capture.NewHandler(service, r, limiter, logger)
}

func ProvideRunsHandler(store *runs.Store, logger *slog.Logger) *runs.Handler {
	return runs.NewHandler(store, logger)
}

func ProvideArtifactsHandler(store *audit.Store, logger *slog.Logger) *audit.Handler {
	return audit.NewHandler(store, logger)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideFilesHandler,
		ProvideCaptureHandler,
		ProvideRunsHandler,
		ProvideArtifactsHandler,
	),
	fx.Invoke(RegisterRoutes),
)
