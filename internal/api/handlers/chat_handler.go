package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/chat"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

type Answerer interface {
	Answer(ctx context.Context, q chat.Question) (*chat.Answer, error)
}

type ChatHandler struct {
	chat Answerer
}

func NewChatHandler(chat Answerer) *ChatHandler {
	return &ChatHandler{
		chat: chat,
	}
}

// ChatArticle answers {question, article_title, article_context} with {status, answer}.
func (h *ChatHandler) ChatArticle(c *fiber.Ctx) error {
	var req chat.Question
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}

	ans, err := h.chat.Answer(c.UserContext(), req)
	if errors.Is(err, chat.ErrEmptyQuestion) {
		return failure(c, fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		logger.Error("Failed to answer article question", zap.Error(err))
		return c.JSON(fiber.Map{
			"status": StatusError,
			"error":  err.Error(),
			"answer": "",
		})
	}

	return c.JSON(fiber.Map{
		"status":     StatusSuccess,
		"answer":     ans.Answer,
		"id":         ans.ID,
		"latency_ms": ans.LatencyMS,
	})
}
