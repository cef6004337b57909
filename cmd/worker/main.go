package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/config"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/database"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/queue"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/queue/workers"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/scriptwriter"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/speech"
	"github.com/Kingjinsight/Lets-break-the-information-gap/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Jobs hold connections for minutes, so they get their own small pool.
	db, err := database.NewWorkerPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	provider, err := newScriptProvider(ctx, cfg.Script)
	if err != nil {
		slog.Error("script provider init failed", "provider", cfg.Script.Provider, "error", err)
		os.Exit(1)
	}

	tts, err := speech.NewClient(ctx, speech.Config{
		APIKey:     cfg.Speech.GoogleAPIKey,
		Model:      cfg.Speech.Model,
		MaxRetries: cfg.Speech.MaxRetries,
	})
	if err != nil {
		slog.Error("speech client init failed", "error", err)
		os.Exit(1)
	}

	podcastWorker := workers.NewPodcastWorker(
		store.NewService(db),
		scriptwriter.NewWriter(provider),
		tts,
		queue.NewReporter(rdb),
		scriptwriter.SpeakerTags(),
		cfg.Podcast,
	)

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypePodcastGenerate, asynq.HandlerFunc(podcastWorker.ProcessTask))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Synthesis jobs are long and externally rate limited; a small
			// concurrency keeps quota pressure predictable.
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	slog.Info("starting worker", "script_provider", provider.Name(), "tts_model", cfg.Speech.Model)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func newScriptProvider(ctx context.Context, cfg config.ScriptConfig) (scriptwriter.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return scriptwriter.NewOpenAIProvider(cfg.OpenAIKey, cfg.Model), nil
	case "anthropic":
		return scriptwriter.NewAnthropicProvider(cfg.AnthropicKey, cfg.Model), nil
	default:
		return scriptwriter.NewGeminiProvider(ctx, cfg.GoogleAPIKey, cfg.Model)
	}
}
