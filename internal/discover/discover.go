package discover

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Selectors for the two-level category tree on the distribution page.
const (
	levelOneSelector  = "#main-rubrics .lvl-1"
	levelOneLink      = ".ttl"
	levelTwoSelector  = ".rubric-list.row.flex.flex-wrap a"
	canonicalSelector = `link[rel="canonical"]`
)

// Discoverer walks distribution root → level-1 categories → level-2
// subcategories and returns the deduplicated subcategory URL set.
type Discoverer struct {
	fetcher         Fetcher
	base            *url.URL
	distributionURL string
	logger          *zap.Logger
}

// NewDiscoverer builds a Discoverer rooted at baseURL+distributionPath.
func NewDiscoverer(fetcher Fetcher, baseURL, distributionPath string, logger *zap.Logger) (*Discoverer, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	dist, err := url.Parse(distributionPath)
	if err != nil {
		return nil, fmt.Errorf("parse distribution path: %w", err)
	}
	return &Discoverer{
		fetcher:         fetcher,
		base:            base,
		distributionURL: base.ResolveReference(dist).String(),
		logger:          logger,
	}, nil
}

// Discover returns the set of product-bearing subcategory URLs. A failed
// distribution-root fetch is fatal; failed level-1 branches contribute
// empty sets.
func (d *Discoverer) Discover(ctx context.Context) (URLSet, error) {
	d.logger.Info("discovering category urls", zap.String("root", d.distributionURL))

	doc, err := d.fetcher.Fetch(ctx, d.distributionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch distribution root: %w", err)
	}

	levelOne := d.extractLevelOne(doc)
	if len(levelOne) == 0 {
		d.logger.Warn("no level-1 categories on distribution page")
	}

	results := make(chan URLSet)
	var wg sync.WaitGroup
	for _, categoryURL := range levelOne {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			results <- d.levelTwo(ctx, u)
		}(categoryURL)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Union only here, in the single draining goroutine.
	subcategories := NewURLSet()
	for part := range results {
		subcategories.Union(part)
	}

	d.logger.Info("category discovery finished", zap.Int("subcategories", subcategories.Len()))
	return subcategories, nil
}

func (d *Discoverer) extractLevelOne(doc *goquery.Document) []string {
	var urls []string
	doc.Find(levelOneSelector).Each(func(_ int, rubric *goquery.Selection) {
		link := rubric.Find(levelOneLink).First()
		if link.Length() == 0 {
			d.logger.Warn("level-1 rubric without a title link")
			return
		}
		if resolved := resolveRef(d.base, link.AttrOr("href", "")); resolved != "" {
			urls = append(urls, resolved)
		}
	})
	return urls
}

func (d *Discoverer) levelTwo(ctx context.Context, categoryURL string) URLSet {
	set := NewURLSet()
	doc, err := d.fetcher.Fetch(ctx, categoryURL, nil)
	if err != nil {
		d.logger.Warn("level-1 category unreachable, skipping branch",
			zap.String("url", categoryURL), zap.Error(err))
		return set
	}

	links := doc.Find(levelTwoSelector)
	if links.Length() == 0 {
		canonical := doc.Find(canonicalSelector).AttrOr("href", categoryURL)
		d.logger.Warn("no subcategories found", zap.String("url", canonical))
		return set
	}

	links.Each(func(_ int, link *goquery.Selection) {
		set.Add(resolveRef(d.base, link.AttrOr("href", "")))
	})
	d.logger.Debug("level-2 extracted",
		zap.String("category", categoryURL), zap.Int("subcategories", set.Len()))
	return set
}
