package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/vector"
)

// Backend is a brute-force inner-product vector.Backend kept in process memory.
// It mirrors the milvus backend closely enough for development and tests,
// including allowing repeated doc ids when Insert is called directly.
type Backend struct {
	mu        sync.RWMutex
	dimension int
	records   []vector.Record
	exists    bool
}

func New(dimension int) *Backend {
	return &Backend{dimension: dimension}
}

func (b *Backend) EnsureCollection(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exists = true
	return nil
}

func (b *Backend) DropCollection(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = nil
	b.exists = false
	return nil
}

func (b *Backend) Insert(ctx context.Context, rec vector.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.exists {
		return fmt.Errorf("collection does not exist")
	}
	if b.dimension > 0 && (len(rec.TitleVector) != b.dimension || len(rec.SummaryVector) != b.dimension) {
		return fmt.Errorf("vector dimension mismatch: want %d", b.dimension)
	}
	b.records = append(b.records, rec)
	return nil
}

func (b *Backend) CountByDocID(ctx context.Context, docID int64) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var n int64
	for _, r := range b.records {
		if r.DocID == docID {
			n++
		}
	}
	return n, nil
}

func (b *Backend) Count(ctx context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.records)), nil
}

func (b *Backend) SearchField(ctx context.Context, field string, query []float32, k int) ([]vector.Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hits := make([]vector.Hit, 0, len(b.records))
	for _, r := range b.records {
		var v []float32
		switch field {
		case vector.TitleField:
			v = r.TitleVector
		case vector.SummaryField:
			v = r.SummaryVector
		default:
			return nil, fmt.Errorf("unknown vector field %q", field)
		}
		hits = append(hits, vector.Hit{DocID: r.DocID, Score: dot(v, query)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (b *Backend) DeleteByDocID(ctx context.Context, docID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.records[:0]
	for _, r := range b.records {
		if r.DocID != docID {
			kept = append(kept, r)
		}
	}
	b.records = kept
	return nil
}

func (b *Backend) DocIDs(ctx context.Context) ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]int64, len(b.records))
	for i, r := range b.records {
		ids[i] = r.DocID
	}
	return ids, nil
}

func (b *Backend) Close() error { return nil }

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
