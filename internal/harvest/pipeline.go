// Package harvest drives the product-page stage: it walks the frontier
// in batches, fetches and extracts each page under a bounded worker
// pool, and streams finished records into a sink.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/avdeenkov/catalog-harvester/internal/extract"
	"github.com/avdeenkov/catalog-harvester/internal/fetch"
	"github.com/avdeenkov/catalog-harvester/internal/record"
	"github.com/avdeenkov/catalog-harvester/internal/sink"
)

// Fetcher loads a product page through the throttled engine.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params url.Values) (*goquery.Document, error)
}

// Extractor reads raw fields out of a fetched page.
type Extractor interface {
	Extract(doc *goquery.Document) extract.RawProduct
}

// Builder finishes a raw extraction into a persistable record.
type Builder interface {
	BuildProduct(raw extract.RawProduct) (record.Product, error)
}

// Stats is the tally of one run (or one batch).
type Stats struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

func (s *Stats) add(other Stats) {
	s.Successful += other.Successful
	s.Failed += other.Failed
}

// Config sizes the pipeline.
type Config struct {
	BatchSize   int
	WorkerLimit int
}

// batchYield is the breather between batches; it keeps one enormous
// frontier from monopolizing the scheduler and gives cancellation a
// clean boundary.
const batchYield = 100 * time.Millisecond

// Pipeline harvests product pages. One Pipeline serves one run at a
// time; live counters are safe to read concurrently.
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	builder   Builder
	sem       *semaphore.Weighted
	cfg       Config
	counters  *Counters
	logger    *zap.Logger
}

// NewPipeline wires a pipeline. BatchSize and WorkerLimit must be
// positive.
func NewPipeline(fetcher Fetcher, extractor Extractor, builder Builder, cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.WorkerLimit <= 0 {
		return nil, fmt.Errorf("worker limit must be positive, got %d", cfg.WorkerLimit)
	}
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		builder:   builder,
		sem:       semaphore.NewWeighted(int64(cfg.WorkerLimit)),
		cfg:       cfg,
		counters:  NewCounters(),
		logger:    logger,
	}, nil
}

// Counters exposes the live tally for the status server.
func (p *Pipeline) Counters() *Counters {
	return p.counters
}

// Run harvests every frontier URL into out and returns the final tally.
// Individual page failures are counted, not fatal; cancellation stops
// new batches but lets the in-flight one drain, so the tally is always
// complete for what actually ran.
func (p *Pipeline) Run(ctx context.Context, frontier []string, out sink.RecordSink) (Stats, error) {
	runID := runIdentifier()
	logger := p.logger.With(zap.String("run_id", runID))

	total := len(frontier)
	batches := (total + p.cfg.BatchSize - 1) / p.cfg.BatchSize
	logger.Info("harvest started",
		zap.Int("products", total),
		zap.Int("batches", batches),
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Int("workers", p.cfg.WorkerLimit))

	var stats Stats
	for start := 0; start < total; start += p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			logger.Warn("harvest interrupted",
				zap.Int("successful", stats.Successful),
				zap.Int("failed", stats.Failed))
			return stats, fmt.Errorf("harvest interrupted: %w", err)
		}

		end := min(start+p.cfg.BatchSize, total)
		batchNo := start/p.cfg.BatchSize + 1
		batchStats := p.runBatch(ctx, frontier[start:end], out, logger.With(zap.Int("batch", batchNo)))
		stats.add(batchStats)

		if end < total {
			pause := time.NewTimer(batchYield)
			select {
			case <-ctx.Done():
				pause.Stop()
			case <-pause.C:
			}
		}
	}

	logger.Info("harvest finished",
		zap.Int("successful", stats.Successful),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

type taskResult struct {
	url     string
	product record.Product
	err     error
}

// runBatch fans the batch out over the worker pool and drains results
// into the sink from this goroutine alone, so the sink never sees
// concurrent writes.
func (p *Pipeline) runBatch(ctx context.Context, urls []string, out sink.RecordSink, logger *zap.Logger) Stats {
	results := make(chan taskResult)
	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			product, err := p.harvestOne(ctx, u)
			results <- taskResult{url: u, product: product, err: err}
		}(u)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var stats Stats
	for res := range results {
		if res.err != nil {
			stats.Failed++
			p.counters.failed.Add(1)
			logger.Warn("product failed",
				zap.String("url", res.url),
				zap.String("reason", failureReason(res.err)),
				zap.Error(res.err))
			continue
		}
		if err := out.WriteRecord(ctx, res.product); err != nil {
			stats.Failed++
			p.counters.failed.Add(1)
			logger.Error("record write failed", zap.String("url", res.url), zap.Error(err))
			continue
		}
		stats.Successful++
		p.counters.successful.Add(1)
	}

	logger.Info("batch finished",
		zap.Int("successful", stats.Successful),
		zap.Int("failed", stats.Failed))
	return stats
}

func (p *Pipeline) harvestOne(ctx context.Context, rawURL string) (record.Product, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return record.Product{}, fmt.Errorf("acquire harvest slot: %w", err)
	}
	defer p.sem.Release(1)

	doc, err := p.fetcher.Fetch(ctx, rawURL, nil)
	if err != nil {
		return record.Product{}, fmt.Errorf("fetch product page: %w", err)
	}
	product, err := p.builder.BuildProduct(p.extractor.Extract(doc))
	if err != nil {
		return record.Product{}, fmt.Errorf("build product: %w", err)
	}
	return product, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		return "not_found"
	case errors.Is(err, fetch.ErrBlocked):
		return "blocked"
	case errors.Is(err, fetch.ErrExhausted):
		return "exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "build"
	}
}

// runIdentifier tags every log line of a run. UUIDv7 sorts by time,
// which keeps log searches over many runs cheap.
func runIdentifier() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
