package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Script   ScriptConfig
	Speech   SpeechConfig
	Podcast  PodcastConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	// WorkerMaxConns sizes the separate pool used by background jobs so a
	// long-running job never borrows request-path connections.
	WorkerMaxConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ScriptConfig struct {
	Provider     string // "gemini", "openai" or "anthropic"
	GoogleAPIKey string
	OpenAIKey    string
	AnthropicKey string
	Model        string
}

type SpeechConfig struct {
	GoogleAPIKey string
	Model        string
	MaxRetries   int
}

type PodcastConfig struct {
	OutputDir       string
	MaxChunks       int
	TargetChars     int
	InterChunkDelay time.Duration
	TaskTimeout     time.Duration
}

func Load() (*Config, error) {
	// Optional .env for local development; deployments set the
	// environment directly.
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	workerConns, err := getEnvInt("DB_WORKER_MAX_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_WORKER_MAX_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	ttsRetries, err := getEnvInt("TTS_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_MAX_RETRIES: %w", err)
	}

	maxChunks, err := getEnvInt("PODCAST_MAX_CHUNKS", 15)
	if err != nil {
		return nil, fmt.Errorf("invalid PODCAST_MAX_CHUNKS: %w", err)
	}

	chunkChars, err := getEnvInt("PODCAST_CHUNK_CHARS", 400)
	if err != nil {
		return nil, fmt.Errorf("invalid PODCAST_CHUNK_CHARS: %w", err)
	}

	chunkDelay, err := getEnvInt("PODCAST_CHUNK_DELAY_SECONDS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid PODCAST_CHUNK_DELAY_SECONDS: %w", err)
	}

	taskTimeout, err := getEnvInt("PODCAST_TASK_TIMEOUT_MINUTES", 45)
	if err != nil {
		return nil, fmt.Errorf("invalid PODCAST_TASK_TIMEOUT_MINUTES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			WorkerMaxConns: workerConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Script: ScriptConfig{
			Provider:     getEnv("SCRIPT_PROVIDER", "gemini"),
			GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			// Empty means each provider's own default model.
			Model: getEnv("TEXT_MODEL_NAME", ""),
		},
		Speech: SpeechConfig{
			GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),
			Model:        getEnv("TTS_MODEL_NAME", "gemini-2.5-flash-preview-tts"),
			MaxRetries:   ttsRetries,
		},
		Podcast: PodcastConfig{
			OutputDir:       getEnv("PODCASTS_DIR", "podcasts"),
			MaxChunks:       maxChunks,
			TargetChars:     chunkChars,
			InterChunkDelay: time.Duration(chunkDelay) * time.Second,
			TaskTimeout:     time.Duration(taskTimeout) * time.Minute,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Speech.GoogleAPIKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
