// Package bootstrap opens the stores and clients shared by the server and the maintenance CLI.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/cache/redis"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/embedding"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/sqldb"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/vector"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/vector/memory"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/vector/milvus"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/retry"
)

type Stores struct {
	DB      *sqldb.Client
	Vectors *vector.Store
	// Cache is nil when redis is disabled or unreachable.
	Cache *redis.Client
}

// Open connects the relational and vector stores. Either failing is fatal to the caller.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	retryCfg := retry.Fixed(5, 2*time.Second, logger.GetLogger())

	db, err := sqldb.NewClient(ctx, cfg.Database, retryCfg)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	backend, err := openVectorBackend(ctx, cfg.Vector)
	if err != nil {
		db.Close()
		return nil, err
	}
	vectors, err := vector.NewStore(ctx, backend)
	if err != nil {
		backend.Close()
		db.Close()
		return nil, err
	}

	s := &Stores{DB: db, Vectors: vectors}

	if cfg.Redis.Enabled {
		cache, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		} else {
			s.Cache = cache
		}
	}

	return s, nil
}

func openVectorBackend(ctx context.Context, cfg config.VectorConfig) (vector.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "milvus", "":
		return milvus.NewClient(ctx, cfg)
	case "memory":
		logger.Warn("Using in-memory vector store, vectors are lost on restart")
		return memory.New(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

// Embedder returns the configured embedding client, fronted by the cache when one is open.
func (s *Stores) Embedder(cfg config.EmbedderConfig) embedding.Embedder {
	var e embedding.Embedder = embedding.NewOpenAIClient(cfg)
	if s.Cache != nil {
		e = embedding.NewCachedEmbedder(e, s.Cache, cfg.Model)
	}
	return e
}

// Ping checks both stores.
func (s *Stores) Ping(ctx context.Context) error {
	if err := s.DB.Ping(ctx); err != nil {
		return fmt.Errorf("relational store: %w", err)
	}
	if _, err := s.Vectors.GetObjectCount(ctx); err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	return nil
}

func (s *Stores) Close() {
	if s.Cache != nil {
		s.Cache.Close()
	}
	s.Vectors.Close()
	s.DB.Close()
}
