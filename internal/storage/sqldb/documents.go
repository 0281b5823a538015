package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/models"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

const documentColumns = "id, title, summary, link, category_id"

// CreateDocument inserts a document, or updates the existing row sharing its link.
// It returns ErrMissingReference when the category or any keyword does not exist.
func (c *Client) CreateDocument(ctx context.Context, title, summary, link string, categoryID int64, keywordIDs []int64) (*models.Document, error) {
	keywordIDs = uniqueIDs(keywordIDs)
	doc := models.Document{
		Title:      title,
		Summary:    summary,
		Link:       link,
		CategoryID: categoryID,
		KeywordIDs: keywordIDs,
	}

	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkReferences(ctx, tx, categoryID, keywordIDs); err != nil {
			return err
		}

		var existing int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM documents WHERE link = $1 ORDER BY id LIMIT 1", link).Scan(&existing)
		switch {
		case err == nil:
			doc.ID = existing
			_, err = tx.ExecContext(ctx,
				"UPDATE documents SET title = $1, summary = $2, category_id = $3 WHERE id = $4",
				title, summary, categoryID, existing,
			)
			if err != nil {
				return fmt.Errorf("failed to update document: %w", err)
			}
			if _, err = tx.ExecContext(ctx, "DELETE FROM document_keywords WHERE document_id = $1", existing); err != nil {
				return fmt.Errorf("failed to reset document keywords: %w", err)
			}
			logger.Debug("Document updated in place", zap.Int64("doc_id", existing), zap.String("link", link))
		case errors.Is(err, sql.ErrNoRows):
			err = tx.QueryRowContext(ctx,
				"INSERT INTO documents (title, summary, link, category_id) VALUES ($1, $2, $3, $4) RETURNING id",
				title, summary, link, categoryID,
			).Scan(&doc.ID)
			if err != nil {
				return fmt.Errorf("failed to insert document: %w", err)
			}
		default:
			return fmt.Errorf("failed to look up document by link: %w", err)
		}

		for _, kwID := range keywordIDs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO document_keywords (document_id, keyword_id) VALUES ($1, $2)",
				doc.ID, kwID,
			)
			if err != nil {
				return fmt.Errorf("failed to link keyword %d: %w", kwID, err)
			}
		}
		return nil
	})

	if errors.Is(err, ErrMissingReference) {
		logger.Warn("Document not created",
			zap.String("link", link),
			zap.Int64("category_id", categoryID),
			zap.Error(err),
		)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func checkReferences(ctx context.Context, tx *sql.Tx, categoryID int64, keywordIDs []int64) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM categories WHERE id = $1", categoryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: category %d", ErrMissingReference, categoryID)
	}
	if err != nil {
		return fmt.Errorf("failed to check category: %w", err)
	}

	if len(keywordIDs) == 0 {
		return nil
	}

	var found int
	query := "SELECT COUNT(*) FROM keywords WHERE id IN (" + placeholders(1, len(keywordIDs)) + ")"
	if err := tx.QueryRowContext(ctx, query, int64Args(keywordIDs)...).Scan(&found); err != nil {
		return fmt.Errorf("failed to check keywords: %w", err)
	}
	if found != len(keywordIDs) {
		return fmt.Errorf("%w: %d of %d keywords missing", ErrMissingReference, len(keywordIDs)-found, len(keywordIDs))
	}
	return nil
}

// GetDocumentsByCategory returns the category's documents, keeping the lowest id per link.
func (c *Client) GetDocumentsByCategory(ctx context.Context, categoryID int64) ([]models.Document, error) {
	docs, err := c.queryDocuments(ctx, "SELECT "+documentColumns+" FROM documents WHERE category_id = $1 ORDER BY id", categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents by category: %w", err)
	}

	seen := make(map[string]struct{}, len(docs))
	unique := docs[:0]
	for _, doc := range docs {
		if _, ok := seen[doc.Link]; ok {
			continue
		}
		seen[doc.Link] = struct{}{}
		unique = append(unique, doc)
	}

	return unique, nil
}

// GetDocumentsByIDs returns documents in the order of ids. Unknown and repeated ids are dropped.
func (c *Client) GetDocumentsByIDs(ctx context.Context, ids []int64) ([]models.Document, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Document{}, nil
	}

	query := "SELECT " + documentColumns + " FROM documents WHERE id IN (" + placeholders(1, len(ids)) + ")"
	docs, err := c.queryDocuments(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents by ids: %w", err)
	}

	byID := make(map[int64]models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	ordered := make([]models.Document, 0, len(docs))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			ordered = append(ordered, doc)
		}
	}
	return ordered, nil
}

func (c *Client) GetAllDocuments(ctx context.Context) ([]models.Document, error) {
	docs, err := c.queryDocuments(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get all documents: %w", err)
	}
	return docs, nil
}

func (c *Client) GetDocumentCount(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func (c *Client) queryDocuments(ctx context.Context, query string, args ...any) ([]models.Document, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Summary, &doc.Link, &doc.CategoryID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := attachKeywords(ctx, c.db, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// keywordBatchSize bounds the IN list of a single keyword lookup.
var keywordBatchSize = 1000

func attachKeywords(ctx context.Context, q queryer, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	index := make(map[int64]int, len(docs))
	ids := make([]int64, len(docs))
	for i, doc := range docs {
		index[doc.ID] = i
		ids[i] = doc.ID
	}

	for start := 0; start < len(ids); start += keywordBatchSize {
		end := min(start+keywordBatchSize, len(ids))
		if err := attachKeywordBatch(ctx, q, ids[start:end], index, docs); err != nil {
			return err
		}
	}
	return nil
}

func attachKeywordBatch(ctx context.Context, q queryer, ids []int64, index map[int64]int, docs []models.Document) error {
	query := "SELECT document_id, keyword_id FROM document_keywords WHERE document_id IN (" +
		placeholders(1, len(ids)) + ") ORDER BY document_id, keyword_id"
	rows, err := q.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("failed to load document keywords: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var docID, kwID int64
		if err := rows.Scan(&docID, &kwID); err != nil {
			return fmt.Errorf("failed to scan document keyword: %w", err)
		}
		if i, ok := index[docID]; ok {
			docs[i].KeywordIDs = append(docs[i].KeywordIDs, kwID)
		}
	}
	return rows.Err()
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
