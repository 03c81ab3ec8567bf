package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avdeenkov/catalog-harvester/internal/extract"
)

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, _ url.Values) (*goquery.Document, error) {
	html, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("fake fetcher: no page for %s", rawURL)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

const suppliersHTML = `
<ul class="row">
  <li><img src="/logos/epson.png" title="Epson"></li>
  <li><img src="/logos/barco.png" title=" Barco "></li>
  <li><img src="/logos/blank.png" title=""></li>
  <li><img src="/logos/epson2.png" title="Epson"></li>
</ul>`

func newTestEnricher(t *testing.T, fetcher Fetcher, rateURL string) *Enricher {
	t.Helper()
	return NewEnricher(fetcher, nil, "https://digis.ru/distribution/suppliers/", rateURL, zap.NewNop())
}

func TestRefreshBrandsDeduplicatesLogos(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://digis.ru/distribution/suppliers/": suppliersHTML,
	}}
	e := newTestEnricher(t, fetcher, "")
	require.NoError(t, e.RefreshBrands(context.Background()))
	require.Equal(t, []string{"Barco", "Epson"}, e.Brands())
}

func TestRefreshBrandsEmptyPageFails(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://digis.ru/distribution/suppliers/": `<div>нет логотипов</div>`,
	}}
	e := newTestEnricher(t, fetcher, "")
	require.Error(t, e.RefreshBrands(context.Background()))
}

func TestRefreshExchangeRate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "USD", r.URL.Query().Get("currency_from"))
		require.Equal(t, "RUR", r.URL.Query().Get("currency_to"))
		require.Equal(t, "cbrf", r.URL.Query().Get("source"))
		require.Equal(t, "1", r.URL.Query().Get("sum"))
		fmt.Fprint(w, `{"status":200,"data":{"rate1":90.554}}`)
	}))
	defer srv.Close()

	e := newTestEnricher(t, &fakeFetcher{}, srv.URL)
	require.NoError(t, e.RefreshExchangeRate(context.Background()))
	require.Equal(t, 90.55, e.Rate())
}

func TestRefreshExchangeRateRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":500,"data":{}}`)
	}))
	defer srv.Close()

	e := newTestEnricher(t, &fakeFetcher{}, srv.URL)
	require.Error(t, e.RefreshExchangeRate(context.Background()))
	require.Zero(t, e.Rate())
}

func TestNormalizePrice(t *testing.T) {
	t.Parallel()

	e := newTestEnricher(t, &fakeFetcher{}, "")
	e.rate = 90.00

	cases := []struct {
		in   string
		want int
	}{
		{"1 234 р", 1234},
		{"1 350 руб", 1350},
		{"15 USD", 1350},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := e.NormalizePrice(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizePriceWithoutRateKeepsLiteral(t *testing.T) {
	t.Parallel()

	e := newTestEnricher(t, &fakeFetcher{}, "")
	got, err := e.NormalizePrice("15 USD")
	require.NoError(t, err)
	require.Equal(t, 15, got)
}

func TestNormalizePriceRejectsNonNumeric(t *testing.T) {
	t.Parallel()

	e := newTestEnricher(t, &fakeFetcher{}, "")
	_, err := e.NormalizePrice("цена по запросу")
	require.Error(t, err)
}

func TestDetectBrand(t *testing.T) {
	t.Parallel()

	e := newTestEnricher(t, &fakeFetcher{}, "")
	e.brands = []string{"Barco", "Epson"}

	require.Equal(t, "Epson", e.DetectBrand("Проектор EPSON EB-L530U"))
	require.Equal(t, "Projecta", e.DetectBrand("Экран Projecta моторизованный"))
	require.Equal(t, unknownBrand, e.DetectBrand("Кронштейн настенный"))
}

func TestBuildProduct(t *testing.T) {
	t.Parallel()

	e := newTestEnricher(t, &fakeFetcher{}, "")
	e.rate = 90.00
	e.brands = []string{"Epson"}

	p, err := e.BuildProduct(extract.RawProduct{
		Title:       " Проектор Epson EB-L530U ",
		CatalogCode: 123456,
		Article:     "V11HA27040",
		PriceText:   "15 USD",
	})
	require.NoError(t, err)
	require.Equal(t, "Проектор Epson EB-L530U", p.Title)
	require.Equal(t, 1350, p.Price)
	require.Equal(t, "Epson", p.Brand)
	require.NotNil(t, p.Posters)
	require.NotNil(t, p.Characteristics)
}

func TestBuildProductBadPriceFails(t *testing.T) {
	t.Parallel()

	e := newTestEnricher(t, &fakeFetcher{}, "")
	_, err := e.BuildProduct(extract.RawProduct{Title: "X", PriceText: "нет цены"})
	require.Error(t, err)
}
