package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/models"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

// Keep selects which row survives in a duplicate-link group.
type Keep string

const (
	KeepFirst Keep = "first"
	KeepLast  Keep = "last"
)

func ParseKeep(s string) (Keep, error) {
	switch Keep(strings.ToLower(strings.TrimSpace(s))) {
	case KeepFirst:
		return KeepFirst, nil
	case KeepLast:
		return KeepLast, nil
	}
	return "", fmt.Errorf("invalid keep policy %q: want first or last", s)
}

// Discard returns the ids removed from an ascending id group under this policy.
func (k Keep) Discard(ids []int64) []int64 {
	if len(ids) < 2 {
		return nil
	}
	if k == KeepLast {
		return append([]int64(nil), ids[:len(ids)-1]...)
	}
	return append([]int64(nil), ids[1:]...)
}

// ClearAllData removes every row, children before parents.
func (c *Client) ClearAllData(ctx context.Context) error {
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"document_keywords", "documents", "keywords", "categories"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Relational store cleared")
	return nil
}

func (c *Client) FindDuplicateLinks(ctx context.Context) ([]models.DuplicateLink, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT d.link, d.id
		FROM documents d
		WHERE d.link IN (SELECT link FROM documents GROUP BY link HAVING COUNT(*) > 1)
		ORDER BY d.link, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate links: %w", err)
	}
	defer rows.Close()

	groups := []models.DuplicateLink{}
	for rows.Next() {
		var link string
		var id int64
		if err := rows.Scan(&link, &id); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate link: %w", err)
		}
		if n := len(groups); n > 0 && groups[n-1].Link == link {
			groups[n-1].IDs = append(groups[n-1].IDs, id)
			groups[n-1].Count++
			continue
		}
		groups = append(groups, models.DuplicateLink{Link: link, Count: 1, IDs: []int64{id}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duplicate links: %w", err)
	}

	return groups, nil
}

// RemoveDuplicateLinks deletes all but one document per duplicated link and returns how many were removed.
func (c *Client) RemoveDuplicateLinks(ctx context.Context, keep Keep) (int, error) {
	groups, err := c.FindDuplicateLinks(ctx)
	if err != nil {
		return 0, err
	}

	var doomed []int64
	for _, g := range groups {
		ids := append([]int64(nil), g.IDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		doomed = append(doomed, keep.Discard(ids)...)
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	err = c.withTx(ctx, func(tx *sql.Tx) error {
		in := placeholders(1, len(doomed))
		args := int64Args(doomed)
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_keywords WHERE document_id IN ("+in+")", args...); err != nil {
			return fmt.Errorf("failed to delete duplicate keyword links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id IN ("+in+")", args...); err != nil {
			return fmt.Errorf("failed to delete duplicate documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Duplicate links removed",
		zap.Int("groups", len(groups)),
		zap.Int("removed", len(doomed)),
		zap.String("keep", string(keep)),
		zap.Int64s("ids", doomed),
	)
	return len(doomed), nil
}
