package discover

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Coordinator fans the discovered subcategory set out to concurrent
// pagination walks and unions the results into the product frontier.
type Coordinator struct {
	discoverer *Discoverer
	walker     *PaginationWalker
	logger     *zap.Logger
}

// NewCoordinator wires a Discoverer and a PaginationWalker together.
func NewCoordinator(discoverer *Discoverer, walker *PaginationWalker, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		discoverer: discoverer,
		walker:     walker,
		logger:     logger,
	}
}

// CrawlAll runs discovery once, walks every subcategory concurrently and
// returns the final deduplicated product-URL frontier. Concurrency here
// is unbounded; the fetcher's semaphore is the real ceiling.
func (c *Coordinator) CrawlAll(ctx context.Context) (URLSet, error) {
	subcategories, err := c.discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover subcategories: %w", err)
	}

	results := make(chan URLSet)
	var wg sync.WaitGroup
	for _, categoryURL := range subcategories.Values() {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			results <- c.walker.Walk(ctx, u)
		}(categoryURL)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	frontier := NewURLSet()
	for part := range results {
		frontier.Union(part)
	}

	c.logger.Info("frontier built",
		zap.Int("subcategories", subcategories.Len()),
		zap.Int("products", frontier.Len()),
	)
	return frontier, nil
}
