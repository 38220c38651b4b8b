package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/menu-capture/internal/audit"
	"github.com/eleven-am/menu-capture/internal/capture"
	"github.com/eleven-am/menu-capture/internal/completion"
	"github.com/eleven-am/menu-capture/internal/imaging"
	"github.com/eleven-am/menu-capture/internal/relay"
	"github.com/eleven-am/menu-capture/internal/runs"
	"github.com/eleven-am/menu-capture/internal/workspace"
	"go.uber.org/fx"
)

func ProvideWorkspaceRoot(cfg *Config) (*workspace.Root, error) {
	root, err := workspace.NewRoot(cfg.WorkspaceRoot)
	if err != nil {
		return nil, err
	}
	if err := root.EnsureExists(); err != nil {
		return nil, err
	}
	return root, nil
}

func ProvideWorkspaceFiles(root *workspace.Root, logger *slog.Logger) *workspace.Files {
	return workspace.NewFiles(root, logger)
}

func ProvideArtifactWriter(cfg *Config) *imaging.ArtifactWriter {
	return imaging.NewArtifactWriter(cfg.LogRoot)
}

func ProvidePreprocessor(cfg *Config, artifacts *imaging.ArtifactWriter, logger *slog.Logger) *imaging.Preprocessor {
	return imaging.NewPreprocessor(imaging.Config{
		Quality:      cfg.ImageQuality,
		MaxDimension: cfg.ImageMaxDimension,
		MaxPixels:    cfg.ImageMaxPixels,
	}, artifacts, logger)
}

func ProvideCompletionClient(cfg *Config, logger *slog.Logger) *completion.Client {
	client := completion.NewClient(completion.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		Timeout:     cfg.CompletionTimeout,
	}, logger)

	if client.Configured() {
		logger.Info("completion client configured",
			"base_url", cfg.OpenAIBaseURL,
			"model", client.Model(),
			"api_key", completion.RedactKey(cfg.OpenAIAPIKey),
		)
	} else {
		logger.Warn("OPENAI_API_KEY not set, transcription endpoints will return 503")
	}
	return client
}

func ProvideRelay(logger *slog.Logger) *relay.Relay {
	return relay.New(logger)
}

func ProvideRateLimiter(cfg *Config) *capture.RateLimiter {
	return capture.NewRateLimiter(capture.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})
}

func ProvideCaptureService(
	root *workspace.Root,
	preprocessor *imaging.Preprocessor,
	client *completion.Client,
	runStore *runs.Store,
	auditStore *audit.Store,
	logger *slog.Logger,
) *capture.Service {
	return capture.NewService(root, preprocessor, client, runStore, auditStore, logger)
}

var CaptureModule = fx.Options(
	fx.Provide(
		ProvideWorkspaceRoot,
		ProvideWorkspaceFiles,
		ProvideArtifactWriter,
		ProvidePreprocessor,
		ProvideCompletionClient,
		ProvideRelay,
		ProvideRateLimiter,
		ProvideCaptureService,
	),
)
