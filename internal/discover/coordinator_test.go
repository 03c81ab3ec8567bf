package discover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCrawlAllBuildsDeduplicatedFrontier(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://digis.ru/distribution":    distributionHTML,
			"https://digis.ru/distribution/av": rubricListHTML("/distribution/av/projectors"),
			"https://digis.ru/distribution/it": rubricListHTML("/distribution/it/displays"),
			// The same product shows up in both categories; it must appear
			// once in the frontier.
			"https://digis.ru/distribution/av/projectors": listingHTML(nil, "/p/100", "/p/200"),
			"https://digis.ru/distribution/it/displays":   listingHTML(nil, "/p/200", "/p/300"),
		},
	}
	logger := zap.NewNop()
	d, err := NewDiscoverer(fetcher, "https://digis.ru", "/distribution", logger)
	require.NoError(t, err)
	w, err := NewPaginationWalker(fetcher, "https://digis.ru", "PAGEN_1", logger)
	require.NoError(t, err)

	frontier, err := NewCoordinator(d, w, logger).CrawlAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://digis.ru/p/100",
		"https://digis.ru/p/200",
		"https://digis.ru/p/300",
	}, frontier.Values())
}

func TestCrawlAllPropagatesDiscoveryFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]string{},
	}
	logger := zap.NewNop()
	d, err := NewDiscoverer(fetcher, "https://digis.ru", "/distribution", logger)
	require.NoError(t, err)
	w, err := NewPaginationWalker(fetcher, "https://digis.ru", "PAGEN_1", logger)
	require.NoError(t, err)

	_, err = NewCoordinator(d, w, logger).CrawlAll(context.Background())
	require.Error(t, err)
}
