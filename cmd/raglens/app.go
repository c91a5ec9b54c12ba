package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/cache/redis"
	"github.com/raglens/raglens/internal/index"
	"github.com/raglens/raglens/internal/llm"
	"github.com/raglens/raglens/internal/storage/sqlite"
	"github.com/raglens/raglens/internal/vector"
	"github.com/raglens/raglens/internal/vector/milvus"
	"github.com/raglens/raglens/pkg/config"
	"github.com/raglens/raglens/pkg/logger"
)

// app wires the shared clients every subcommand needs.
type app struct {
	cfg *config.Config
	db  *sqlite.Client
	llm *llm.Client

	redis  *redis.Client
	milvus *milvus.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.JudgeAttempts,
	)

	a := &app{
		cfg: cfg,
		db:  db,
		llm: llmClient,
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			a.redis = redisClient
			a.llm = llmClient.WithCache(redisClient)
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.milvus != nil {
		a.milvus.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Close()
	logger.Sync()
}

// loadCorpus reads the persisted index from disk.
func (a *app) loadCorpus() (*index.Corpus, error) {
	corpus, err := index.Load(a.cfg.Index.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load index from %s (run `raglens fetch` or `raglens ingest` first): %w",
			a.cfg.Index.Dir, err)
	}
	return corpus, nil
}

// searcher returns the configured retrieval backend over the corpus.
func (a *app) searcher(ctx context.Context, corpus *index.Corpus) (vector.Searcher, error) {
	switch a.cfg.Vector.Backend {
	case "milvus":
		client, err := milvus.NewClient(
			a.cfg.Milvus.Endpoint,
			a.cfg.Milvus.APIKey,
			a.cfg.Milvus.CollectionName,
			a.cfg.Milvus.VectorDim,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to milvus: %w", err)
		}
		a.milvus = client

		if err := client.CreateCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to create collection: %w", err)
		}
		if err := client.Sync(ctx, corpus); err != nil {
			return nil, fmt.Errorf("failed to sync corpus to milvus: %w", err)
		}
		return client, nil
	case "local":
		return vector.NewLocalSearcher(corpus)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", a.cfg.Vector.Backend)
	}
}
