package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/metrics"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/models"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/utils"
)

const progressEvery = 10

var ErrMissingCategory = errors.New("row has no category")

type DocumentStore interface {
	GetCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	CreateKeyword(ctx context.Context, name string) (*models.Keyword, error)
	CreateDocument(ctx context.Context, title, summary, link string, categoryID int64, keywordIDs []int64) (*models.Document, error)
}

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorWriter interface {
	AddDocument(ctx context.Context, docID int64, titleVector, summaryVector []float32) error
}

// Report summarizes one ingestion run. Skipped is set when the run did nothing.
type Report struct {
	Total      int    `json:"total"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// Pipeline loads the article CSV into the relational and vector stores.
// Runs must not overlap; link deduplication is not guarded by a lock.
type Pipeline struct {
	store    DocumentStore
	embedder BatchEmbedder
	vectors  VectorWriter
	cfg      config.IngestionConfig
	log      *zap.Logger
}

func NewPipeline(store DocumentStore, embedder BatchEmbedder, vectors VectorWriter, cfg config.IngestionConfig) *Pipeline {
	return &Pipeline{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		cfg:      cfg,
		log:      logger.GetLogger(),
	}
}

// Run ingests the configured CSV when ingestion is enabled and the store is empty.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if !p.cfg.Run {
		p.log.Info("Ingestion is disabled in config")
		return &Report{Skipped: true, SkipReason: "disabled"}, nil
	}
	return p.IngestFile(ctx, p.cfg.Path, false)
}

// IngestFile ingests the CSV at path. Unless force is set, a store that already
// has categories is left untouched.
func (p *Pipeline) IngestFile(ctx context.Context, path string, force bool) (*Report, error) {
	if !force {
		cats, err := p.store.GetCategories(ctx)
		switch {
		case err != nil:
			p.log.Info("Could not check existing categories, proceeding with ingestion", zap.Error(err))
		case len(cats) > 0:
			p.log.Warn("Database already has categories, skipping ingestion to avoid duplicates. Clear the stores to re-ingest.",
				zap.Int("categories", len(cats)),
			)
			return &Report{Skipped: true, SkipReason: "already_ingested"}, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ingestion csv: %w", err)
	}
	defer f.Close()

	return p.Ingest(ctx, f)
}

// Ingest creates every category and keyword in r, then one document and vector
// record per row. Row failures are logged and counted; they never abort the batch.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader) (*Report, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	p.log.Info("Starting data ingestion", zap.Int("rows", len(rows)))

	categoryIDs, err := p.createCategories(ctx, rows)
	if err != nil {
		return nil, err
	}
	keywordIDs, err := p.createKeywords(ctx, rows)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(rows)}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := p.ingestRow(ctx, row, categoryIDs, keywordIDs); err != nil {
			report.Failed++
			metrics.IngestedRows.WithLabelValues("failed").Inc()
			p.log.Error("Failed to ingest row",
				zap.Int("line", row.Line),
				zap.String("title", utils.Truncate(row.Title, 50)),
				zap.Error(err),
			)
		} else {
			report.Succeeded++
			metrics.IngestedRows.WithLabelValues("succeeded").Inc()
		}

		if (i+1)%progressEvery == 0 {
			p.log.Info("Ingestion progress", zap.Int("processed", i+1), zap.Int("total", len(rows)))
		}
	}

	p.log.Info("Ingestion completed",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("total", report.Total),
	)
	return report, nil
}

func (p *Pipeline) createCategories(ctx context.Context, rows []Row) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, row := range rows {
		if row.Category == "" {
			continue
		}
		if _, ok := ids[row.Category]; ok {
			continue
		}
		cat, err := p.store.CreateCategory(ctx, row.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to create category %q: %w", row.Category, err)
		}
		ids[row.Category] = cat.ID
	}
	p.log.Info("Categories created", zap.Int("count", len(ids)))
	return ids, nil
}

func (p *Pipeline) createKeywords(ctx context.Context, rows []Row) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, row := range rows {
		for _, k := range row.Keywords {
			if _, ok := ids[k]; ok {
				continue
			}
			kw, err := p.store.CreateKeyword(ctx, k)
			if err != nil {
				return nil, fmt.Errorf("failed to create keyword %q: %w", k, err)
			}
			ids[k] = kw.ID
		}
	}
	p.log.Info("Keywords created", zap.Int("count", len(ids)))
	return ids, nil
}

func (p *Pipeline) ingestRow(ctx context.Context, row Row, categoryIDs, keywordIDs map[string]int64) error {
	categoryID, ok := categoryIDs[row.Category]
	if !ok {
		return ErrMissingCategory
	}

	kwIDs := make([]int64, 0, len(row.Keywords))
	for _, k := range row.Keywords {
		if id, ok := keywordIDs[k]; ok {
			kwIDs = append(kwIDs, id)
		}
	}

	doc, err := p.store.CreateDocument(ctx, row.Title, row.Summary, row.Link, categoryID, kwIDs)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	vectors, err := p.embedder.EmbedBatch(ctx, []string{row.Title, row.Summary})
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}
	if len(vectors) != 2 {
		return fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
	}

	if err := p.vectors.AddDocument(ctx, doc.ID, vectors[0], vectors[1]); err != nil {
		return fmt.Errorf("failed to add vector record: %w", err)
	}
	return nil
}
