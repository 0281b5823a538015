package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/models"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

type CategoryStore interface {
	GetCategories(ctx context.Context) ([]models.Category, error)
	GetDocumentsByCategory(ctx context.Context, categoryID int64) ([]models.Document, error)
}

type CategoryHandler struct {
	store CategoryStore
}

func NewCategoryHandler(store CategoryStore) *CategoryHandler {
	return &CategoryHandler{
		store: store,
	}
}

func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	cats, err := h.store.GetCategories(c.UserContext())
	if err != nil {
		logger.Error("Failed to list categories", zap.Error(err))
		return failure(c, fiber.StatusOK, err.Error())
	}
	if cats == nil {
		cats = []models.Category{}
	}
	return success(c, cats)
}

func (h *CategoryHandler) ListDocuments(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return failure(c, fiber.StatusBadRequest, "category id must be an integer")
	}

	docs, err := h.store.GetDocumentsByCategory(c.UserContext(), id)
	if err != nil {
		logger.Error("Failed to list documents", zap.Int64("category_id", id), zap.Error(err))
		return failure(c, fiber.StatusOK, err.Error())
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return success(c, docs)
}
