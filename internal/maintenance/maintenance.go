// Package maintenance implements operator tasks that span both stores.
package maintenance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/models"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/sqldb"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

type RelationalStore interface {
	ClearAllData(ctx context.Context) error
	GetAllDocuments(ctx context.Context) ([]models.Document, error)
	GetDocumentCount(ctx context.Context) (int, error)
	FindDuplicateLinks(ctx context.Context) ([]models.DuplicateLink, error)
	RemoveDuplicateLinks(ctx context.Context, keep sqldb.Keep) (int, error)
}

type VectorStore interface {
	ClearAll(ctx context.Context) error
	GetObjectCount(ctx context.Context) (int64, error)
	DocIDs(ctx context.Context) ([]int64, error)
	FindDuplicateDocIDs(ctx context.Context) ([]int64, error)
	DeleteByDocID(ctx context.Context, docID int64) error
	AddDocument(ctx context.Context, docID int64, titleVector, summaryVector []float32) error
}

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ArticleCache holds crawled articles keyed by url.
type ArticleCache interface {
	InvalidateArticles(ctx context.Context) error
}

type Stats struct {
	Documents      int                    `json:"documents"`
	Vectors        int64                  `json:"vectors"`
	DuplicateLinks []models.DuplicateLink `json:"duplicate_links"`
	DuplicateDocs  []int64                `json:"duplicate_doc_ids"`
}

type DedupeReport struct {
	DocumentsRemoved  int `json:"documents_removed"`
	OrphansRemoved    int `json:"orphan_vectors_removed"`
	VectorsRebuilt    int `json:"vectors_rebuilt"`
	VectorsBackfilled int `json:"vectors_backfilled"`
}

type Maintainer struct {
	db       RelationalStore
	vectors  VectorStore
	embedder BatchEmbedder
	cache    ArticleCache
	log      *zap.Logger
}

func New(db RelationalStore, vectors VectorStore, embedder BatchEmbedder) *Maintainer {
	return &Maintainer{
		db:       db,
		vectors:  vectors,
		embedder: embedder,
		log:      logger.GetLogger(),
	}
}

// WithCache lets ClearCache drop crawled articles.
func (m *Maintainer) WithCache(cache ArticleCache) *Maintainer {
	m.cache = cache
	return m
}

// Clear empties both stores.
func (m *Maintainer) Clear(ctx context.Context) error {
	if err := m.db.ClearAllData(ctx); err != nil {
		return err
	}
	return m.vectors.ClearAll(ctx)
}

var ErrNoCache = errors.New("no article cache configured")

func (m *Maintainer) ClearCache(ctx context.Context) error {
	if m.cache == nil {
		return ErrNoCache
	}
	return m.cache.InvalidateArticles(ctx)
}

func (m *Maintainer) Stats(ctx context.Context) (*Stats, error) {
	docs, err := m.db.GetDocumentCount(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := m.vectors.GetObjectCount(ctx)
	if err != nil {
		return nil, err
	}
	links, err := m.db.FindDuplicateLinks(ctx)
	if err != nil {
		return nil, err
	}
	dupIDs, err := m.vectors.FindDuplicateDocIDs(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Documents: docs, Vectors: vectors, DuplicateLinks: links, DuplicateDocs: dupIDs}, nil
}

// Dedupe removes duplicate-link documents and drops vectors whose document is gone.
// Documents with no vectors are embedded again, as are documents stored more than once.
func (m *Maintainer) Dedupe(ctx context.Context, keep sqldb.Keep) (*DedupeReport, error) {
	report := &DedupeReport{}

	removed, err := m.db.RemoveDuplicateLinks(ctx, keep)
	if err != nil {
		return nil, err
	}
	report.DocumentsRemoved = removed

	docs, err := m.db.GetAllDocuments(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	vectorIDs, err := m.vectors.DocIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range vectorIDs {
		if _, ok := byID[id]; ok {
			continue
		}
		if err := m.vectors.DeleteByDocID(ctx, id); err != nil {
			return report, err
		}
		report.OrphansRemoved++
	}

	indexed := make(map[int64]bool, len(vectorIDs))
	for _, id := range vectorIDs {
		indexed[id] = true
	}
	for _, doc := range docs {
		if indexed[doc.ID] {
			continue
		}
		if err := m.rebuild(ctx, doc); err != nil {
			return report, err
		}
		report.VectorsBackfilled++
	}

	dupIDs, err := m.vectors.FindDuplicateDocIDs(ctx)
	if err != nil {
		return report, err
	}
	for _, id := range dupIDs {
		doc, ok := byID[id]
		if !ok {
			continue
		}
		if err := m.rebuild(ctx, doc); err != nil {
			return report, err
		}
		report.VectorsRebuilt++
	}

	m.log.Info("Deduplication finished",
		zap.Int("documents_removed", report.DocumentsRemoved),
		zap.Int("orphan_vectors_removed", report.OrphansRemoved),
		zap.Int("vectors_rebuilt", report.VectorsRebuilt),
		zap.Int("vectors_backfilled", report.VectorsBackfilled),
	)
	return report, nil
}

func (m *Maintainer) rebuild(ctx context.Context, doc models.Document) error {
	vecs, err := m.embedder.EmbedBatch(ctx, []string{doc.Title, doc.Summary})
	if err != nil {
		return fmt.Errorf("failed to embed document %d: %w", doc.ID, err)
	}
	if len(vecs) != 2 {
		return fmt.Errorf("failed to embed document %d: got %d vectors", doc.ID, len(vecs))
	}
	if err := m.vectors.DeleteByDocID(ctx, doc.ID); err != nil {
		return err
	}
	return m.vectors.AddDocument(ctx, doc.ID, vecs[0], vecs[1])
}
