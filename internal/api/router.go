package api

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/api/handlers"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/metrics"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/middleware/ratelimit"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/middleware/security"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/middleware/validation"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

// Dependencies are the services the HTTP layer composes.
type Dependencies struct {
	Categories handlers.CategoryStore
	Search     handlers.Searcher
	Articles   handlers.ArticleGetter
	Chat       handlers.Answerer
	// Ready reports whether the backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
	// AccessLog disables fiber's request logger when false.
	AccessLog bool
}

// Server is the configured fiber app plus the background resources it owns.
type Server struct {
	App     *fiber.App
	limiter *ratelimit.RateLimiter
}

func NewServer(cfg config.Config, deps Dependencies) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))
	if deps.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: security.ParseOrigins(cfg.Server.AllowOrigins),
		IsDevelopment:  cfg.Server.Development,
	}))

	validator := validation.New(validation.Config{Logger: logger.GetLogger()})
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		Logger:            logger.GetLogger(),
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/ready", func(c *fiber.Ctx) error {
		if deps.Ready != nil {
			if err := deps.Ready(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "not_ready",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	categoryHandler := handlers.NewCategoryHandler(deps.Categories)
	searchHandler := handlers.NewSearchHandler(deps.Search)
	articleHandler := handlers.NewArticleHandler(deps.Articles)
	chatHandler := handlers.NewChatHandler(deps.Chat)
	wsHandler := handlers.NewWebSocketHandler(deps.Chat, limiter)

	app.Get("/categories", categoryHandler.ListCategories)
	app.Get("/categories/:id/documents", categoryHandler.ListDocuments)

	app.Post("/search", validator.ContentType(), validator.Search(), searchHandler.Search)

	app.Get("/article_content", limiter.Middleware(), validator.ArticleURL(), articleHandler.GetArticleContent)
	app.Get("/article_content_smart", limiter.Middleware(), validator.ArticleURL(), articleHandler.GetArticleContent)

	app.Post("/chat_article", limiter.Middleware(), validator.ContentType(), validator.Chat(), chatHandler.ChatArticle)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(handlers.ClientIPKey, c.IP())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat_article", websocket.New(wsHandler.HandleConnection))

	mountFrontend(app, cfg.Server.StaticDir)

	return &Server{App: app, limiter: limiter}
}

// mountFrontend serves the single-page app. Unmatched GETs receive index.html
// so client-side routes survive a reload.
func mountFrontend(app *fiber.App, dir string) {
	if dir == "" {
		return
	}
	index := filepath.Join(dir, "index.html")

	app.Static("/", dir)
	app.Get("/*", func(c *fiber.Ctx) error {
		if _, err := os.Stat(index); err != nil {
			return fiber.ErrNotFound
		}
		return c.SendFile(index)
	})
}

func (s *Server) Listen(addr string) error {
	return s.App.Listen(addr)
}

func (s *Server) Shutdown() error {
	s.limiter.Stop()
	return s.App.Shutdown()
}
