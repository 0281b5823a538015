package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/llm"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/utils"
)

var ErrEmptyQuestion = errors.New("question is required")

const defaultMaxContextChars = 6000

const systemPrompt = `You are a research assistant helping a reader understand one scientific article.
Answer using only the article information provided. If the article does not contain the answer, say so plainly.
Keep answers concise and factual. Use short paragraphs or "- " bullets when listing several points.`

// Question is a reader's question about one article.
type Question struct {
	Question       string `json:"question"`
	ArticleTitle   string `json:"article_title"`
	ArticleContext string `json:"article_context"`
}

type Answer struct {
	ID        string `json:"id"`
	Answer    string `json:"answer"`
	LatencyMS int    `json:"latency_ms"`
}

type Service struct {
	completer       llm.Completer
	maxContextChars int
	log             *zap.Logger
}

func NewService(completer llm.Completer, cfg config.ChatConfig) *Service {
	maxChars := cfg.MaxContextChars
	if maxChars <= 0 {
		maxChars = defaultMaxContextChars
	}
	return &Service{
		completer:       completer,
		maxContextChars: maxChars,
		log:             logger.GetLogger(),
	}
}

// Answer asks the model q.Question grounded on the article title and context.
func (s *Service) Answer(ctx context.Context, q Question) (*Answer, error) {
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := time.Now()
	id := uuid.New().String()

	articleContext := strings.TrimSpace(q.ArticleContext)
	if utf8.RuneCountInString(articleContext) > s.maxContextChars {
		articleContext = utils.Truncate(articleContext, s.maxContextChars)
		s.log.Debug("Article context truncated", zap.String("chat_id", id), zap.Int("max_chars", s.maxContextChars))
	}

	s.log.Info("Answering article question",
		zap.String("chat_id", id),
		zap.String("article_title", utils.Truncate(q.ArticleTitle, 100)),
		zap.Int("context_chars", utf8.RuneCountInString(articleContext)),
	)

	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   BuildPrompt(question, strings.TrimSpace(q.ArticleTitle), articleContext),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	latency := int(time.Since(start).Milliseconds())
	s.log.Info("Article question answered", zap.String("chat_id", id), zap.Int("latency_ms", latency))

	return &Answer{
		ID:        id,
		Answer:    strings.TrimSpace(resp.Content),
		LatencyMS: latency,
	}, nil
}

// BuildPrompt lays out the article and the question for the model.
func BuildPrompt(question, title, articleContext string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString("ARTICLE TITLE:\n")
		sb.WriteString(title)
		sb.WriteString("\n\n")
	}
	sb.WriteString("ARTICLE CONTENT:\n")
	if articleContext == "" {
		sb.WriteString("(no article content provided)")
	} else {
		sb.WriteString(articleContext)
	}
	sb.WriteString("\n\nQUESTION:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nANSWER:")
	return sb.String()
}
