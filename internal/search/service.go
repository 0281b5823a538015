package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/metrics"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/models"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var ErrEmptyQuery = errors.New("query is required")

type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]int64, error)
}

type DocumentReader interface {
	GetDocumentsByIDs(ctx context.Context, ids []int64) ([]models.Document, error)
}

// Service answers free-text queries with documents ranked by vector similarity.
type Service struct {
	embedder QueryEmbedder
	index    VectorIndex
	docs     DocumentReader
	log      *zap.Logger
}

func NewService(embedder QueryEmbedder, index VectorIndex, docs DocumentReader) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		docs:     docs,
		log:      logger.GetLogger(),
	}
}

// ClampLimit maps a requested result count onto [1, MaxLimit], defaulting to DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Search embeds query, finds the nearest documents and returns them in rank order.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	limit = ClampLimit(limit)

	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	ids, err := s.index.SimilaritySearch(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	docs, err := s.docs.GetDocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	if docs == nil {
		docs = []models.Document{}
	}

	metrics.SearchResultsCount.Observe(float64(len(docs)))
	s.log.Info("Search completed",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.Int("hits", len(ids)),
		zap.Int("results", len(docs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return docs, nil
}
