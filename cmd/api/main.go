package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/api"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/article"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/bootstrap"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/chat"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/ingestion"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/llm"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/metrics"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/search"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	appLogger "github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting research article API server")

	metrics.Init()

	ctx := context.Background()

	stores, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to open stores", zap.Error(err))
	}
	defer stores.Close()

	embedder := stores.Embedder(cfg.Embedder)

	report, err := ingestion.NewPipeline(stores.DB, embedder, stores.Vectors, cfg.Ingestion).Run(ctx)
	if err != nil {
		appLogger.Error("Ingestion failed", zap.Error(err))
	} else if !report.Skipped {
		appLogger.Info("Ingestion finished",
			zap.Int("succeeded", report.Succeeded),
			zap.Int("total", report.Total),
		)
	}

	completer, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	if closer, ok := completer.(io.Closer); ok {
		defer closer.Close()
	}

	var articleCache article.Cache
	if stores.Cache != nil {
		articleCache = stores.Cache
	}

	server := api.NewServer(*cfg, api.Dependencies{
		Categories: stores.DB,
		Search:     search.NewService(embedder, stores.Vectors, stores.DB),
		Articles: article.NewService(
			article.NewFetcher(cfg.Crawler),
			article.NewLLMSummarizer(completer),
			articleCache,
		),
		Chat:      chat.NewService(completer, cfg.Chat),
		Ready:     stores.Ping,
		AccessLog: true,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting",
		zap.String("address", addr),
		zap.String("llm_provider", completer.Name()),
	)

	go func() {
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
