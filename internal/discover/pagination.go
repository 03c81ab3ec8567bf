package discover

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	productRowSelector = ".list-prods tbody tr"
	pagerSelector      = ".pager-pages-list.line-items"
)

// PaginationWalker turns one subcategory listing into the set of product
// page URLs across all of its pages.
type PaginationWalker struct {
	fetcher   Fetcher
	base      *url.URL
	pageParam string
	logger    *zap.Logger
}

// NewPaginationWalker builds a walker. pageParam is the query parameter
// the site uses for listing pages.
func NewPaginationWalker(fetcher Fetcher, baseURL, pageParam string, logger *zap.Logger) (*PaginationWalker, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if pageParam == "" {
		pageParam = "PAGEN_1"
	}
	return &PaginationWalker{
		fetcher:   fetcher,
		base:      base,
		pageParam: pageParam,
		logger:    logger,
	}, nil
}

// Walk fetches every listing page of categoryURL and unions the product
// URLs. A category whose first page cannot be fetched is skipped with an
// empty result; individual later pages fail independently.
func (w *PaginationWalker) Walk(ctx context.Context, categoryURL string) URLSet {
	doc, err := w.fetcher.Fetch(ctx, categoryURL, nil)
	if err != nil {
		w.logger.Error("category listing unreachable, skipping",
			zap.String("url", categoryURL), zap.Error(err))
		return NewURLSet()
	}

	products := w.extractProductURLs(doc)
	maxPage := maxPageIndex(doc)
	if maxPage <= 1 {
		return products
	}

	results := make(chan URLSet)
	var wg sync.WaitGroup
	for page := 2; page <= maxPage; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			results <- w.walkPage(ctx, categoryURL, page)
		}(page)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for part := range results {
		products.Union(part)
	}

	w.logger.Info("category walked",
		zap.String("url", categoryURL),
		zap.Int("pages", maxPage),
		zap.Int("products", products.Len()),
	)
	return products
}

func (w *PaginationWalker) walkPage(ctx context.Context, categoryURL string, page int) URLSet {
	params := url.Values{w.pageParam: {strconv.Itoa(page)}}
	doc, err := w.fetcher.Fetch(ctx, categoryURL, params)
	if err != nil {
		w.logger.Warn("listing page unreachable",
			zap.String("url", categoryURL), zap.Int("page", page), zap.Error(err))
		return NewURLSet()
	}
	return w.extractProductURLs(doc)
}

func (w *PaginationWalker) extractProductURLs(doc *goquery.Document) URLSet {
	set := NewURLSet()
	doc.Find(productRowSelector).Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a").First()
		if link.Length() == 0 {
			return
		}
		set.Add(resolveRef(w.base, link.AttrOr("href", "")))
	})
	return set
}

// maxPageIndex reads the pager and returns the highest numeric label.
// Non-numeric labels (arrows, ellipses) are dropped; a missing pager
// means the category has a single page.
func maxPageIndex(doc *goquery.Document) int {
	pager := doc.Find(pagerSelector).First()
	if pager.Length() == 0 {
		return 1
	}
	maxPage := 1
	pager.Children().Each(func(_ int, label *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(label.Text()))
		if err != nil {
			return
		}
		if n > maxPage {
			maxPage = n
		}
	})
	return maxPage
}
