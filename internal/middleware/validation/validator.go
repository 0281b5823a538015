package validation

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxQueryLength      int
	MaxQuestionLength   int
	MaxURLLength        int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Validator rejects malformed requests before they reach the handlers.
type Validator struct {
	cfg Config
}

func New(cfg Config) *Validator {
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 1000
	}
	if cfg.MaxQuestionLength == 0 {
		cfg.MaxQuestionLength = 2000
	}
	if cfg.MaxURLLength == 0 {
		cfg.MaxURLLength = 2048
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Validator{cfg: cfg}
}

func reject(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  msg,
	})
}

// ContentType refuses POST and PUT bodies that declare a non-JSON type.
func (v *Validator) ContentType() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}
		contentType := c.Get(fiber.HeaderContentType)
		if contentType == "" {
			return c.Next()
		}
		for _, allowed := range v.cfg.AllowedContentTypes {
			if strings.Contains(contentType, allowed) {
				return c.Next()
			}
		}
		return reject(c, fiber.StatusUnsupportedMediaType, "Unsupported content type")
	}
}

// Search checks the POST /search body: a non-empty string query and an optional integer limit.
func (v *Validator) Search() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req map[string]interface{}
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return reject(c, fiber.StatusBadRequest, "Invalid JSON format")
		}

		query, ok := req["query"].(string)
		if !ok || strings.TrimSpace(query) == "" {
			return reject(c, fiber.StatusBadRequest, "Query is required and must be a string")
		}
		if len(query) > v.cfg.MaxQueryLength {
			return reject(c, fiber.StatusBadRequest, "Query exceeds maximum length")
		}
		if containsXSS(query) {
			v.cfg.Logger.Warn("Potential XSS attempt",
				zap.String("ip", c.IP()),
				zap.String("query", query),
			)
			return reject(c, fiber.StatusBadRequest, "Invalid query content")
		}

		if limit, present := req["limit"]; present && limit != nil {
			n, ok := limit.(float64)
			if !ok || n != float64(int(n)) {
				return reject(c, fiber.StatusBadRequest, "Limit must be an integer")
			}
		}

		return c.Next()
	}
}

// ArticleURL checks the url query parameter of the article endpoints.
func (v *Validator) ArticleURL() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("url")
		if raw == "" {
			return reject(c, fiber.StatusBadRequest, "url query parameter is required")
		}
		if len(raw) > v.cfg.MaxURLLength || !isValidURL(raw) {
			return reject(c, fiber.StatusBadRequest, "Invalid URL format")
		}
		return c.Next()
	}
}

// Chat checks the POST /chat_article body.
func (v *Validator) Chat() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req map[string]interface{}
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return reject(c, fiber.StatusBadRequest, "Invalid JSON format")
		}

		question, ok := req["question"].(string)
		if !ok || strings.TrimSpace(question) == "" {
			return reject(c, fiber.StatusBadRequest, "Question is required and must be a string")
		}
		if len(question) > v.cfg.MaxQuestionLength {
			return reject(c, fiber.StatusBadRequest, "Question exceeds maximum length")
		}
		for _, field := range []string{"article_title", "article_context"} {
			if val, present := req[field]; present && val != nil {
				if _, ok := val.(string); !ok {
					return reject(c, fiber.StatusBadRequest, field+" must be a string")
				}
			}
		}

		return c.Next()
	}
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if u.Host == "" {
		return false
	}

	return true
}
