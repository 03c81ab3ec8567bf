package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avdeenkov/catalog-harvester/internal/fetch"
	"github.com/avdeenkov/catalog-harvester/internal/harvest"
	"github.com/avdeenkov/catalog-harvester/internal/sink"
	"github.com/avdeenkov/catalog-harvester/internal/status"
)

func newHarvestCmd() *cobra.Command {
	var frontierPath string

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest product records into the configured sink",
		Long: `Runs the full pipeline: discovers product URLs (or reads them from a
frontier file), fetches every product page under the shared worker pool,
extracts and enriches the records and streams them into CSV or Postgres.
An interrupt stops new work; records already harvested are kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runHarvest(ctx, frontierPath)
		},
	}

	cmd.Flags().StringVar(&frontierPath, "frontier", "", "read product URLs from this file instead of crawling the catalog")
	return cmd
}

func runHarvest(ctx context.Context, frontierPath string) error {
	fetcher := buildFetcher()

	enricher := buildEnricher(fetcher)
	if err := enricher.Refresh(ctx); err != nil {
		// Harvest still works without reference data: prices stay
		// literal and brands fall back to title guessing.
		logger.Warn("enrichment refresh incomplete", zap.Error(err))
	}

	extractor, err := buildExtractor()
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}
	pipeline, err := harvest.NewPipeline(fetcher, extractor, enricher, harvest.Config{
		BatchSize:   cfg.Harvest.BatchSize,
		WorkerLimit: cfg.Harvest.WorkerLimit,
	}, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	if cfg.Status.Port > 0 {
		statusSrv := status.NewServer(cfg.Status.Port, pipeline.Counters(), logger)
		go func() {
			if err := statusSrv.Serve(ctx); err != nil {
				logger.Warn("status server stopped", zap.Error(err))
			}
		}()
	}

	frontier, err := loadFrontier(ctx, fetcher, frontierPath)
	if err != nil {
		return err
	}
	if len(frontier) == 0 {
		logger.Warn("frontier is empty, nothing to harvest")
		return nil
	}

	out, err := buildSink()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			logger.Warn("close sink", zap.Error(cerr))
		}
	}()

	stats, err := pipeline.Run(ctx, frontier, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run harvest: %w", err)
	}
	logger.Info("harvest summary",
		zap.Int("successful", stats.Successful),
		zap.Int("failed", stats.Failed))
	return nil
}

// loadFrontier reads the frontier file when given one, otherwise crawls
// the catalog through the same fetcher the harvest will use, so the
// shared worker limit holds across both phases.
func loadFrontier(ctx context.Context, fetcher *fetch.Fetcher, frontierPath string) ([]string, error) {
	if frontierPath != "" {
		urls, err := readFrontier(frontierPath)
		if err != nil {
			return nil, err
		}
		logger.Info("frontier loaded from file",
			zap.Int("products", len(urls)),
			zap.String("path", frontierPath))
		return urls, nil
	}

	coordinator, err := buildCoordinator(fetcher)
	if err != nil {
		return nil, err
	}
	frontier, err := coordinator.CrawlAll(ctx)
	if err != nil {
		return nil, err
	}
	return frontier.Values(), nil
}

func buildSink() (sink.RecordSink, error) {
	switch cfg.Output.Sink {
	case "csv":
		s, err := sink.NewCSVSink(cfg.Output.CSVPath)
		if err != nil {
			return nil, err
		}
		logger.Info("writing records to csv", zap.String("path", cfg.Output.CSVPath))
		return s, nil
	case "postgres":
		s, err := sink.NewPostgresSink(context.Background(), sink.PostgresConfig{
			DSN:      cfg.Output.Postgres.DSN,
			Table:    cfg.Output.Postgres.Table,
			MaxConns: cfg.Output.Postgres.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("writing records to postgres", zap.String("table", cfg.Output.Postgres.Table))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown output sink: %s", cfg.Output.Sink)
	}
}
