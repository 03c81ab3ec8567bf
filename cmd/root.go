// Package cmd defines the CLI commands for the harvester executable.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avdeenkov/catalog-harvester/internal/config"
	"github.com/avdeenkov/catalog-harvester/internal/discover"
	"github.com/avdeenkov/catalog-harvester/internal/enrich"
	"github.com/avdeenkov/catalog-harvester/internal/extract"
	"github.com/avdeenkov/catalog-harvester/internal/fetch"
	"github.com/avdeenkov/catalog-harvester/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Concurrent catalog harvester for the digis.ru distribution tree",
		Long: `harvester walks the distribution catalog, paginates every category
and streams the extracted product records into CSV or Postgres. It is
deliberately slow-mannered: a shared worker pool, per-request pacing and
retry backoff keep the load on the site low.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); defaults apply when omitted")

	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newHarvestCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Config{
		SiteRoot:    cfg.Site.BaseURL,
		WorkerLimit: cfg.Fetch.WorkerLimit,
		BaseSleep:   cfg.BaseSleep(),
		Timeout:     cfg.RequestTimeout(),
	}, logger)
}

func buildCoordinator(fetcher *fetch.Fetcher) (*discover.Coordinator, error) {
	discoverer, err := discover.NewDiscoverer(fetcher, cfg.Site.BaseURL, cfg.Site.DistributionPath, logger)
	if err != nil {
		return nil, fmt.Errorf("init discoverer: %w", err)
	}
	walker, err := discover.NewPaginationWalker(fetcher, cfg.Site.BaseURL, cfg.Site.PageParam, logger)
	if err != nil {
		return nil, fmt.Errorf("init pagination walker: %w", err)
	}
	return discover.NewCoordinator(discoverer, walker, logger), nil
}

func buildEnricher(fetcher *fetch.Fetcher) *enrich.Enricher {
	suppliersURL := siteURL(cfg.Site.SuppliersPath)
	return enrich.NewEnricher(fetcher, nil, suppliersURL, cfg.Site.ExchangeRateURL, logger)
}

func buildExtractor() (*extract.SiteExtractor, error) {
	return extract.NewSiteExtractor(cfg.Site.BaseURL, logger)
}

func siteURL(path string) string {
	return strings.TrimRight(cfg.Site.BaseURL, "/") + path
}
