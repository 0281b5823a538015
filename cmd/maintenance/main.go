package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/bootstrap"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/ingestion"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/maintenance"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/storage/sqldb"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

type env struct {
	cfg    *config.Config
	stores *bootstrap.Stores
}

func main() {
	e := &env{}
	if err := execute(context.Background(), newRootCmd(e), e); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(e *env) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "maintenance",
		Short:        "Operate on the relational and vector stores",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Logging.Level, "console", "stdout"); err != nil {
				return err
			}
			stores, err := bootstrap.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			e.cfg, e.stores = cfg, stores
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	root.AddCommand(ingestCmd(e), clearCmd(e), dedupeCmd(e), statsCmd(e))
	return root
}

// execute closes the stores whether or not the command failed.
func execute(ctx context.Context, root *cobra.Command, e *env) error {
	err := root.ExecuteContext(ctx)
	if e.stores != nil {
		e.stores.Close()
	}
	logger.Sync()
	return err
}

func (e *env) maintainer() *maintenance.Maintainer {
	m := maintenance.New(e.stores.DB, e.stores.Vectors, e.stores.Embedder(e.cfg.Embedder))
	if e.stores.Cache != nil {
		m.WithCache(e.stores.Cache)
	}
	return m
}

func ingestCmd(e *env) *cobra.Command {
	var force bool
	var path string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the articles CSV into both stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = e.cfg.Ingestion.Path
			}
			p := ingestion.NewPipeline(e.stores.DB, e.stores.Embedder(e.cfg.Embedder), e.stores.Vectors, e.cfg.Ingestion)
			report, err := p.IngestFile(cmd.Context(), path, force)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ingest even when categories already exist")
	cmd.Flags().StringVar(&path, "path", "", "csv path (defaults to ingestion.path)")
	return cmd
}

func clearCmd(e *env) *cobra.Command {
	var yes, cache bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every document, category, keyword and vector",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			m := e.maintainer()
			if err := m.Clear(cmd.Context()); err != nil {
				return err
			}
			logger.Info("Stores cleared")
			if !cache {
				return nil
			}
			return m.ClearCache(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	cmd.Flags().BoolVar(&cache, "cache", false, "also drop cached articles (requires redis.enabled)")
	return cmd
}

func dedupeCmd(e *env) *cobra.Command {
	var keep string

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Remove duplicate-link documents and repair the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := sqldb.ParseKeep(keep)
			if err != nil {
				return err
			}
			report, err := e.maintainer().Dedupe(cmd.Context(), policy)
			if err != nil {
				logger.Error("Deduplication stopped", zap.Error(err))
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().StringVar(&keep, "keep", string(sqldb.KeepFirst), "which duplicate survives: first or last")
	return cmd
}

func statsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print document, vector and duplicate counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := e.maintainer().Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
