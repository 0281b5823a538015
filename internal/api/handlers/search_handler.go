package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/models"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.Document, error)
}

type SearchHandler struct {
	searcher Searcher
}

func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
	}
}

func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}

	docs, err := h.searcher.Search(c.UserContext(), req.Query, req.Limit)
	if err != nil {
		logger.Error("Search failed", zap.String("query", req.Query), zap.Error(err))
		return failure(c, fiber.StatusOK, err.Error())
	}
	return success(c, docs)
}
