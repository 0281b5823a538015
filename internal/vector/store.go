package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

const (
	TitleField   = "title_vector"
	SummaryField = "summary_vector"
	DocIDField   = "doc_id"
)

var ErrUnavailable = errors.New("vector store unavailable")

// Record holds both embeddings of one document.
type Record struct {
	DocID         int64
	TitleVector   []float32
	SummaryVector []float32
}

// Hit is one nearest-neighbour result. Higher scores are closer.
type Hit struct {
	DocID int64
	Score float32
}

// Backend is the subset of a vector database the store needs.
type Backend interface {
	EnsureCollection(ctx context.Context) error
	DropCollection(ctx context.Context) error
	Insert(ctx context.Context, rec Record) error
	CountByDocID(ctx context.Context, docID int64) (int64, error)
	Count(ctx context.Context) (int64, error)
	SearchField(ctx context.Context, field string, query []float32, k int) ([]Hit, error)
	DeleteByDocID(ctx context.Context, docID int64) error
	// DocIDs lists the doc_id of every stored record, repeats included.
	DocIDs(ctx context.Context) ([]int64, error)
	Close() error
}

type Store struct {
	backend Backend
}

// NewStore ensures the collection exists before returning.
func NewStore(ctx context.Context, backend Backend) (*Store, error) {
	if err := backend.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	return &Store{backend: backend}, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// AddDocument stores the vectors for docID unless a record already exists.
func (s *Store) AddDocument(ctx context.Context, docID int64, titleVector, summaryVector []float32) error {
	n, err := s.backend.CountByDocID(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to check existing vectors: %w", err)
	}
	if n > 0 {
		logger.Warn("Vector record already exists, skipping insert", zap.Int64("doc_id", docID))
		return nil
	}

	err = s.backend.Insert(ctx, Record{DocID: docID, TitleVector: titleVector, SummaryVector: summaryVector})
	if err != nil {
		return fmt.Errorf("failed to insert vectors: %w", err)
	}

	logger.Debug("Vector record inserted", zap.Int64("doc_id", docID))
	return nil
}

// SimilaritySearch queries both vector slots and returns up to k distinct doc ids, best first.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, k int) ([]int64, error) {
	if k <= 0 {
		return []int64{}, nil
	}

	best := make(map[int64]float32)
	order := make(map[int64]int)
	for _, field := range []string{TitleField, SummaryField} {
		hits, err := s.backend.SearchField(ctx, field, query, k)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", field, err)
		}
		for _, h := range hits {
			score, seen := best[h.DocID]
			if !seen {
				order[h.DocID] = len(order)
			}
			if !seen || h.Score > score {
				best[h.DocID] = h.Score
			}
		}
	}

	ids := make([]int64, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if best[ids[i]] != best[ids[j]] {
			return best[ids[i]] > best[ids[j]]
		}
		return order[ids[i]] < order[ids[j]]
	})

	if len(ids) > k {
		ids = ids[:k]
	}

	logger.Debug("Vector search completed", zap.Int("k", k), zap.Int("results", len(ids)))
	return ids, nil
}

func (s *Store) GetObjectCount(ctx context.Context) (int64, error) {
	n, err := s.backend.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

// ClearAll drops the collection and recreates it empty.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.backend.DropCollection(ctx); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if err := s.backend.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	logger.Info("Vector collection cleared")
	return nil
}

func (s *Store) DeleteByDocID(ctx context.Context, docID int64) error {
	if err := s.backend.DeleteByDocID(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete vectors for doc %d: %w", docID, err)
	}
	return nil
}

// FindDuplicateDocIDs returns, ascending, every doc id stored more than once.
func (s *Store) FindDuplicateDocIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.backend.DocIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doc ids: %w", err)
	}

	counts := make(map[int64]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}

	dups := []int64{}
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i] < dups[j] })
	return dups, nil
}

// DocIDs lists the distinct doc ids that have vectors.
func (s *Store) DocIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.backend.DocIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doc ids: %w", err)
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
