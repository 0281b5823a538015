package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/article"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

type ArticleGetter interface {
	GetArticle(ctx context.Context, rawURL string) (*article.Article, error)
}

type ArticleHandler struct {
	articles ArticleGetter
}

func NewArticleHandler(articles ArticleGetter) *ArticleHandler {
	return &ArticleHandler{
		articles: articles,
	}
}

// GetArticleContent crawls ?url= and returns its title, authors and structured summary.
func (h *ArticleHandler) GetArticleContent(c *fiber.Ctx) error {
	url := c.Query("url")
	if url == "" {
		return failure(c, fiber.StatusBadRequest, "url query parameter is required")
	}

	a, err := h.articles.GetArticle(c.UserContext(), url)
	if err != nil {
		logger.Error("Failed to get article content", zap.String("url", url), zap.Error(err))
		return failure(c, fiber.StatusOK, article.UserMessage(err))
	}
	return success(c, a)
}
