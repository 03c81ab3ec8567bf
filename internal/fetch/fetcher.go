// Package fetch implements the shared throttled, retrying page fetcher
// every crawl stage goes through.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Terminal fetch outcomes. Anything else is transient and retried until
// the attempt budget runs out.
var (
	// ErrNotFound marks a 404: the page is skipped, never retried.
	ErrNotFound = errors.New("fetch: page not found")
	// ErrBlocked marks a 403: the target banned us, abort immediately.
	ErrBlocked = errors.New("fetch: access forbidden")
	// ErrExhausted marks a fetch whose transient failures used up all attempts.
	ErrExhausted = errors.New("fetch: retry attempts exhausted")
)

const (
	maxAttempts  = 3
	minPacing    = 2 * time.Second
	rateCooldown = 60 * time.Second
)

// Config controls Fetcher behavior.
type Config struct {
	// SiteRoot is used as the Referer on every request.
	SiteRoot string
	// WorkerLimit caps in-flight fetches across all callers.
	WorkerLimit int
	// BaseSleep centers the per-fetch pacing delay and seeds the backoff schedule.
	BaseSleep time.Duration
	// Timeout bounds a single network attempt.
	Timeout time.Duration
}

// Fetcher fetches a URL and returns a parsed document. A single instance
// is shared by discovery, pagination and the harvest pipeline; its
// semaphore is the process-wide ceiling on simultaneous network calls.
type Fetcher struct {
	cfg       Config
	sem       *semaphore.Weighted
	headers   *HeaderGenerator
	pauser    Pauser
	base      *colly.Collector
	transport http.RoundTripper
	logger    *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.WorkerLimit <= 0 {
		cfg.WorkerLimit = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	// colly v2.1.0's Async option ignores its argument and always enables
	// async mode; set the field directly to keep the collector synchronous.
	c := colly.NewCollector()
	c.Async = false
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	transport := newHTTPTransport()
	c.WithTransport(transport)
	return &Fetcher{
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.WorkerLimit)),
		headers:   NewHeaderGenerator(cfg.SiteRoot),
		pauser:    TimerPauser{},
		base:      c,
		transport: transport,
		logger:    logger,
	}
}

// Fetch retrieves rawURL (with optional query params) and parses the body
// into a document. On failure the returned error wraps ErrNotFound,
// ErrBlocked or ErrExhausted; any other error means the call itself was
// aborted (bad URL, canceled context).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, params url.Values) (*goquery.Document, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire fetch slot: %w", err)
	}
	defer f.sem.Release(1)

	target, err := withParams(rawURL, params)
	if err != nil {
		return nil, fmt.Errorf("build fetch url: %w", err)
	}

	// Pacing keeps the steady-state request rate low even when every
	// semaphore slot is busy. Independent of the retry backoff below.
	f.pauser.Pause(ctx, f.pacingDelay())

	coolDown := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch canceled: %w", err)
		}
		if attempt > 1 {
			delay := f.backoffDelay(attempt)
			if coolDown {
				delay = rateCooldown
				coolDown = false
			}
			f.logger.Info("waiting before retry",
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			f.pauser.Pause(ctx, delay)
		}

		TotalRequests.Inc()
		status, body, reqErr := f.doRequest(ctx, target)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
		}

		switch {
		case reqErr == nil && status >= 200 && status < 300:
			doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(body))
			if parseErr != nil {
				TotalRequestErrors.Inc()
				f.logger.Warn("parse body failed",
					zap.String("url", target), zap.Int("attempt", attempt), zap.Error(parseErr))
				continue
			}
			f.logger.Debug("fetch succeeded", zap.String("url", target), zap.Int("attempt", attempt))
			return doc, nil
		case status == http.StatusTooManyRequests:
			TotalRateLimitHits.Inc()
			f.logger.Warn("rate limited, cooling down before next attempt", zap.String("url", target))
			coolDown = true
		case status == http.StatusForbidden:
			TotalForbiddenHits.Inc()
			f.logger.Error("forbidden response, target is banned", zap.String("url", target))
			return nil, fmt.Errorf("%w: %s", ErrBlocked, target)
		case status == http.StatusNotFound:
			f.logger.Warn("page not found", zap.String("url", target))
			return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
		case status >= 500 && status < 600:
			TotalRequestErrors.Inc()
			f.logger.Warn("server error, will retry",
				zap.String("url", target), zap.Int("status", status), zap.Int("attempt", attempt))
		default:
			TotalRequestErrors.Inc()
			f.logger.Warn("transient fetch error",
				zap.String("url", target), zap.Int("status", status),
				zap.Int("attempt", attempt), zap.Error(reqErr))
		}
	}

	TotalExhausted.Inc()
	f.logger.Error("all fetch attempts exhausted", zap.String("url", target))
	return nil, fmt.Errorf("%w: %s", ErrExhausted, target)
}

// doRequest executes a single HTTP GET through a cloned collector and
// reports the status code, body and transport error of that one attempt.
func (f *Fetcher) doRequest(ctx context.Context, target string) (int, []byte, error) {
	collector := f.base.Clone()
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	var (
		status   int
		body     []byte
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		for key, values := range f.headers.Generate() {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return 0, nil, fmt.Errorf("visit canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return status, nil, fmt.Errorf("visit %s: %w", target, err)
		}
		if fetchErr != nil {
			return status, nil, fmt.Errorf("response %s: %w", target, fetchErr)
		}
		return status, body, nil
	}
}

// pacingDelay is the mandatory pre-attempt sleep: base plus uniform
// jitter in [-0.5s, +1.0s], never below the two-second floor.
func (f *Fetcher) pacingDelay() time.Duration {
	jitter := time.Duration((rand.Float64()*1.5 - 0.5) * float64(time.Second))
	delay := f.cfg.BaseSleep + jitter
	if delay < minPacing {
		delay = minPacing
	}
	return delay
}

// backoffDelay grows exponentially per attempt with uniform(1s,5s) jitter.
func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	exp := float64(f.cfg.BaseSleep) * math.Pow(2, float64(attempt-1))
	jitter := (1 + rand.Float64()*4) * float64(time.Second)
	return time.Duration(exp + jitter)
}

func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
