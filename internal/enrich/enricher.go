// Package enrich turns raw extracted fields into finished records: it
// normalizes prices into roubles and resolves brand names against the
// supplier list published on the site.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/avdeenkov/catalog-harvester/internal/extract"
	"github.com/avdeenkov/catalog-harvester/internal/record"
	"github.com/avdeenkov/catalog-harvester/internal/textutil"
)

// Fetcher loads a page through the throttled engine.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params url.Values) (*goquery.Document, error)
}

const supplierLogoSelector = "ul.row img"

const unknownBrand = "Unknown"

// minBrandWordLen filters out short tokens ("EB", "4K") when guessing a
// brand from the title.
const minBrandWordLen = 2

// Enricher carries the reference data a harvest run needs: the supplier
// brand list and the USD/RUB rate. Both refresh best-effort; a missing
// rate degrades to literal prices, a missing brand list to title guessing.
type Enricher struct {
	fetcher      Fetcher
	client       *http.Client
	suppliersURL string
	rateURL      string
	logger       *zap.Logger

	mu     sync.RWMutex
	brands []string
	rate   float64
}

// NewEnricher builds an Enricher. client may be nil; a default with a
// sane timeout is used then.
func NewEnricher(fetcher Fetcher, client *http.Client, suppliersURL, rateURL string, logger *zap.Logger) *Enricher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Enricher{
		fetcher:      fetcher,
		client:       client,
		suppliersURL: suppliersURL,
		rateURL:      rateURL,
		logger:       logger,
	}
}

// Refresh loads the brand list and the exchange rate concurrently.
// Either may fail independently; the joined error reports both.
func (e *Enricher) Refresh(ctx context.Context) error {
	var wg sync.WaitGroup
	var brandErr, rateErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		brandErr = e.RefreshBrands(ctx)
	}()
	go func() {
		defer wg.Done()
		rateErr = e.RefreshExchangeRate(ctx)
	}()
	wg.Wait()

	return errors.Join(brandErr, rateErr)
}

// RefreshBrands scrapes the supplier page and replaces the known brand
// list with the logo titles found there.
func (e *Enricher) RefreshBrands(ctx context.Context) error {
	doc, err := e.fetcher.Fetch(ctx, e.suppliersURL, nil)
	if err != nil {
		return fmt.Errorf("fetch suppliers page: %w", err)
	}

	seen := make(map[string]struct{})
	doc.Find(supplierLogoSelector).Each(func(_ int, img *goquery.Selection) {
		title := strings.TrimSpace(img.AttrOr("title", ""))
		if title != "" {
			seen[title] = struct{}{}
		}
	})
	if len(seen) == 0 {
		return errors.New("suppliers page carried no brand logos")
	}

	brands := make([]string, 0, len(seen))
	for b := range seen {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	e.mu.Lock()
	e.brands = brands
	e.mu.Unlock()
	e.logger.Info("brand list refreshed", zap.Int("brands", len(brands)))
	return nil
}

// rateResponse mirrors the converter endpoint's JSON envelope.
type rateResponse struct {
	Status int `json:"status"`
	Data   struct {
		Rate float64 `json:"rate1"`
	} `json:"data"`
}

// RefreshExchangeRate queries the currency converter for one USD in
// roubles and stores the rate rounded to kopecks.
func (e *Enricher) RefreshExchangeRate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.rateURL, nil)
	if err != nil {
		return fmt.Errorf("build rate request: %w", err)
	}
	q := url.Values{
		"currency_from": {"USD"},
		"currency_to":   {"RUR"},
		"source":        {"cbrf"},
		"sum":           {"1"},
		"date":          {""},
	}
	req.URL.RawQuery = q.Encode()

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request exchange rate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exchange rate endpoint returned %d", resp.StatusCode)
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode exchange rate: %w", err)
	}
	if payload.Data.Rate <= 0 {
		return fmt.Errorf("exchange rate endpoint returned no rate (status %d)", payload.Status)
	}

	rate := math.Round(payload.Data.Rate*100) / 100
	e.mu.Lock()
	e.rate = rate
	e.mu.Unlock()
	e.logger.Info("exchange rate refreshed", zap.Float64("usd_rub", rate))
	return nil
}

// Rate returns the current USD/RUB rate, zero when never refreshed.
func (e *Enricher) Rate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rate
}

// Brands returns the known brand list in sorted order.
func (e *Enricher) Brands() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.brands...)
}

// NormalizePrice converts a raw price string into whole roubles. Rouble
// amounts pass through as-is; USD amounts are converted at the current
// rate, rounding half up. Without a rate the literal figure is kept.
func (e *Enricher) NormalizePrice(text string) (int, error) {
	cleaned := strings.NewReplacer(" ", "", " ", "").Replace(text)
	if !strings.ContainsAny(cleaned, "0123456789") {
		return 0, fmt.Errorf("no numeric value in price %q", text)
	}
	value := textutil.ExtractInteger(cleaned, 0)

	if strings.Contains(strings.ToLower(cleaned), "р") {
		return value, nil
	}
	if strings.Contains(strings.ToUpper(cleaned), "USD") {
		rate := e.Rate()
		if rate == 0 {
			e.logger.Warn("no exchange rate loaded, keeping literal price", zap.String("price", text))
			return value, nil
		}
		return int(math.Round(float64(value) * rate)), nil
	}
	return value, nil
}

// DetectBrand matches the title against the known brand list, falling
// back to the first English-looking word of the title.
func (e *Enricher) DetectBrand(title string) string {
	lower := strings.ToLower(title)

	e.mu.RLock()
	brands := e.brands
	e.mu.RUnlock()
	for _, b := range brands {
		if strings.Contains(lower, strings.ToLower(b)) {
			return b
		}
	}

	if word := textutil.FirstEnglishWord(title, minBrandWordLen); word != "" {
		return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return unknownBrand
}

// BuildProduct finishes a raw extraction into a Product: price in
// roubles, brand resolved, nil collections replaced with empty ones.
func (e *Enricher) BuildProduct(raw extract.RawProduct) (record.Product, error) {
	price, err := e.NormalizePrice(raw.PriceText)
	if err != nil {
		return record.Product{}, fmt.Errorf("normalize price: %w", err)
	}
	return record.Product{
		Title:            strings.TrimSpace(raw.Title),
		ShortDescription: raw.ShortDescription,
		FullDescription:  raw.FullDescription,
		CatalogCode:      raw.CatalogCode,
		Article:          raw.Article,
		Price:            price,
		Brand:            e.DetectBrand(raw.Title),
		Posters:          emptyIfNil(raw.Posters),
		Characteristics:  emptyMapIfNil(raw.Characteristics),
		Specification:    emptyMapIfNil(raw.Specification),
		Documentation:    emptyIfNil(raw.Documentation),
		Accessories:      emptyIfNil(raw.Accessories),
	}, nil
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func emptyMapIfNil(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return in
}
