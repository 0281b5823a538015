package article

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/utils"
)

const shortContentChars = 200

// Article is the crawled and summarized view of one external page.
type Article struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Summary Summary  `json:"summary"`
	PDFURL  string   `json:"pdf_url,omitempty"`
}

// Cache stores model-summarized articles keyed by a hash of their URL.
type Cache interface {
	GetArticle(ctx context.Context, urlHash string, article interface{}) (bool, error)
	SetArticle(ctx context.Context, urlHash string, article interface{}) error
}

// PageFetcher retrieves and parses an article page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

type Service struct {
	fetcher    PageFetcher
	summarizer Summarizer
	cache      Cache
	log        *zap.Logger
}

// NewService wires a fetcher and summarizer. cache may be nil.
func NewService(fetcher PageFetcher, summarizer Summarizer, cache Cache) *Service {
	return &Service{
		fetcher:    fetcher,
		summarizer: summarizer,
		cache:      cache,
		log:        logger.GetLogger(),
	}
}

// GetArticle crawls rawURL and returns its title, authors and structured summary.
// Summarizer failures never surface here; only fetch failures do.
func (s *Service) GetArticle(ctx context.Context, rawURL string) (*Article, error) {
	key := utils.HashString(rawURL)
	if s.cache != nil {
		var cached Article
		found, err := s.cache.GetArticle(ctx, key, &cached)
		if err != nil {
			s.log.Warn("Article cache read failed", zap.Error(err))
		} else if found {
			return &cached, nil
		}
	}

	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	content := Extract(page.Doc, page.URL)
	fullText := content.FullText()

	s.log.Info("Extracted article content",
		zap.String("title", utils.Truncate(content.Title, 100)),
		zap.Int("authors", len(content.Authors)),
		zap.Int("abstract_chars", utf8.RuneCountInString(content.Abstract)),
		zap.Int("body_chars", utf8.RuneCountInString(content.Body)),
		zap.Int("full_chars", utf8.RuneCountInString(fullText)),
	)
	if utf8.RuneCountInString(fullText) < shortContentChars {
		s.log.Warn("Very short article content extracted", zap.String("url", rawURL))
	}

	summary, fromModel := s.summarizer.Summarize(ctx, fullText)

	article := &Article{
		Title:   content.Title,
		Authors: content.Authors,
		Summary: summary,
		PDFURL:  content.PDFURL,
	}

	if s.cache != nil && fromModel {
		if err := s.cache.SetArticle(ctx, key, article); err != nil {
			s.log.Warn("Article cache write failed", zap.Error(err))
		}
	}
	return article, nil
}

// UserMessage renders a GetArticle error for API callers.
func UserMessage(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrFetchTimeout):
		return "Request timeout - URL took too long to respond"
	case errors.As(err, &httpErr):
		return "HTTP Error: " + httpErr.Error()
	default:
		return err.Error()
	}
}
