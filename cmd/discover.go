package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDiscoverCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Walk the catalog tree and export the product URL frontier",
		Long: `Crawls the distribution root, its categories and every listing page,
and writes the deduplicated set of product URLs to a file. The harvest
command can consume that file instead of re-crawling.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fetcher := buildFetcher()
			coordinator, err := buildCoordinator(fetcher)
			if err != nil {
				return err
			}

			frontier, err := coordinator.CrawlAll(ctx)
			if err != nil {
				return err
			}
			urls := frontier.Values()
			if err := writeFrontier(outPath, urls); err != nil {
				return err
			}
			logger.Info("frontier exported",
				zap.Int("products", len(urls)),
				zap.String("path", outPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "frontier.txt", "file to write product URLs to, one per line")
	return cmd
}
