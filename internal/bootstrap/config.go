package bootstrap

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	WorkspaceRoot string
	LogRoot       string
	TreeFile      string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64
	CompletionTimeout time.Duration

	ImageQuality      int
	ImageMaxDimension int
	ImageMaxPixels    int

	RateLimitRPS   float64
	RateLimitBurst int

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RunTTL        time.Duration
}

// LoadConfig reads the environment after loading an optional .env file.
// Variables already set in the environment win over the file.
func LoadConfig() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		WorkspaceRoot: getEnv("WORKSPACE_ROOT", "./menus"),
		LogRoot:       getEnv("LOG_ROOT", "./logs"),
		TreeFile:      getEnv("TREE_FILE", "./menus/tree.json"),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIMaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 1500),
		OpenAITemperature: getEnvFloat("OPENAI_TEMPERATURE", 0),
		CompletionTimeout: getEnvDuration("COMPLETION_TIMEOUT", 2*time.Minute),

		ImageQuality:      getEnvInt("IMAGE_QUALITY", 85),
		ImageMaxDimension: getEnvInt("IMAGE_MAX_DIMENSION", 0),
		ImageMaxPixels:    getEnvInt("IMAGE_MAX_PIXELS", 40_000_000),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 5),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RunTTL:        getEnvDuration("RUN_TTL", 7*24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
