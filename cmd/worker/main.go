package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/maintdesk/backend/internal/cache"
	"github.com/maintdesk/backend/internal/config"
	"github.com/maintdesk/backend/internal/embedding"
	"github.com/maintdesk/backend/internal/llm"
	"github.com/maintdesk/backend/internal/queue"
	"github.com/maintdesk/backend/internal/queue/workers"
	"github.com/maintdesk/backend/internal/rag"
	"github.com/maintdesk/backend/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

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

	st, err := store.Open(ctx, cfg.Store, cfg.LLM.EmbedDim)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	gateway := llm.NewGateway(cfg.LLM)
	c := cache.New(rdb)
	batcher := embedding.NewBatcher(gateway, c, cfg.RAG.EmbedBatchSize)
	processor := rag.NewProcessor(st, batcher, cfg.RAG)

	// Concurrency 1: the pipeline stages of a document run strictly in
	// sequence, and one document at a time keeps embedding API usage
	// predictable.
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 1,
		},
	)

	mux := asynq.NewServeMux()
	docWorker := workers.NewDocumentWorker(processor, c)
	mux.HandleFunc(queue.TypeDocumentProcess, docWorker.ProcessTask)

	slog.Info("starting worker", "concurrency", 1, "store", cfg.Store.Backend)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
