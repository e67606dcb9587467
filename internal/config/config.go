package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port             string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	MaxTokens        int
	Temperature      float32
	EchoRaw          bool
	StoreBackend     string
	DataDir          string
	StoreLock        bool
	DatabaseURL      string
	RedisURL         string
	CORSAllowOrigins []string
}

func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:             getEnv("PORT", "4000"),
		OpenAIAPIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:      getEnv("OPENAI_MODEL", openai.GPT4oMini),
		OpenAIBaseURL:    strings.TrimRight(getEnv("OPENAI_BASE_URL", ""), "/"),
		MaxTokens:        getEnvInt("OPENAI_MAX_TOKENS", 400),
		Temperature:      getEnvFloat("OPENAI_TEMPERATURE", 0.9),
		EchoRaw:          getEnvBool("CHAT_ECHO_RAW", false),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", "")),
		DataDir:          getEnv("DATA_DIR", "data"),
		StoreLock:        getEnvBool("STORE_LOCK", true),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		CORSAllowOrigins: getEnvCSV("CORS_ALLOW_ORIGINS", []string{"*"}),
	}

	if cfg.StoreBackend == "" {
		switch {
		case cfg.DatabaseURL != "":
			cfg.StoreBackend = BackendPostgres
		case cfg.RedisURL != "":
			cfg.StoreBackend = BackendRedis
		default:
			cfg.StoreBackend = BackendFile
		}
	}

	return cfg
}

// HasUpstream reports whether chat requests go to the live completion API.
func (c Config) HasUpstream() bool {
	return c.OpenAIAPIKey != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT is required")
	}
	if c.MaxTokens <= 0 {
		return errors.New("OPENAI_MAX_TOKENS must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE out of range: %v", c.Temperature)
	}

	switch c.StoreBackend {
	case BackendFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return errors.New("DATA_DIR is required for the file store")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(parsed)
}
