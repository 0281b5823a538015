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

// CreateCategory returns the category with this name, inserting it when absent.
func (c *Client) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	var cat models.Category
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		id, err := getOrCreateNamed(ctx, tx, "categories", name)
		if err != nil {
			return err
		}
		cat = models.Category{ID: id, Name: name}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return &cat, nil
}

// CreateKeyword returns the keyword with this name, inserting it when absent.
func (c *Client) CreateKeyword(ctx context.Context, name string) (*models.Keyword, error) {
	var kw models.Keyword
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		id, err := getOrCreateNamed(ctx, tx, "keywords", name)
		if err != nil {
			return err
		}
		kw = models.Keyword{ID: id, Name: name}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword %q: %w", name, err)
	}
	return &kw, nil
}

// getOrCreateNamed works on the categories and keywords tables, which share a shape.
func getOrCreateNamed(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = tx.QueryRowContext(ctx, "INSERT INTO "+table+" (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return 0, err
	}

	logger.Debug("Row created", zap.String("table", table), zap.String("name", name), zap.Int64("id", id))
	return id, nil
}

func (c *Client) GetCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// GetCategoryByID returns nil when no category has this id.
func (c *Client) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var cat models.Category
	err := c.db.QueryRowContext(ctx, "SELECT id, name FROM categories WHERE id = $1", id).Scan(&cat.ID, &cat.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &cat, nil
}

// GetCategoryByName returns nil when no category has this name.
func (c *Client) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var cat models.Category
	err := c.db.QueryRowContext(ctx, "SELECT id, name FROM categories WHERE name = $1", name).Scan(&cat.ID, &cat.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &cat, nil
}

func (c *Client) GetKeywords(ctx context.Context) ([]models.Keyword, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, name FROM keywords ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get keywords: %w", err)
	}
	defer rows.Close()

	keywords := []models.Keyword{}
	for rows.Next() {
		var kw models.Keyword
		if err := rows.Scan(&kw.ID, &kw.Name); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keywords: %w", err)
	}

	return keywords, nil
}

// GetKeywordByName returns nil when no keyword has this name.
func (c *Client) GetKeywordByName(ctx context.Context, name string) (*models.Keyword, error) {
	var kw models.Keyword
	err := c.db.QueryRowContext(ctx, "SELECT id, name FROM keywords WHERE name = $1", name).Scan(&kw.ID, &kw.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get keyword: %w", err)
	}
	return &kw, nil
}
