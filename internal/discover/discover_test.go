package discover

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFetcher serves canned HTML keyed by URL (plus encoded params when
// present) and records every fetch it saw.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, params url.Values) (*goquery.Document, error) {
	key := rawURL
	if len(params) > 0 {
		key = rawURL + "?" + params.Encode()
	}
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	html, ok := f.pages[key]
	if !ok {
		return nil, fmt.Errorf("fake fetcher: no page for %s", key)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeFetcher) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const distributionHTML = `
<div id="main-rubrics">
  <div class="lvl-1"><a class="ttl" href="/distribution/av">AV</a></div>
  <div class="lvl-1"><a class="ttl" href="/distribution/it">IT</a></div>
  <div class="lvl-1"><span>no link here</span></div>
</div>`

func rubricListHTML(hrefs ...string) string {
	var sb strings.Builder
	sb.WriteString(`<div class="rubric-list row flex flex-wrap">`)
	for _, href := range hrefs {
		sb.WriteString(`<a href="` + href + `">x</a>`)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

func TestDiscoverUnionsLevelTwoBranches(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://digis.ru/distribution":    distributionHTML,
			"https://digis.ru/distribution/av": rubricListHTML("/distribution/av/projectors", "/distribution/av/screens"),
			// The shared subcategory appears under both branches and must
			// collapse to a single frontier entry.
			"https://digis.ru/distribution/it": rubricListHTML("/distribution/it/displays", "/distribution/av/screens"),
		},
	}
	d, err := NewDiscoverer(fetcher, "https://digis.ru", "/distribution", zap.NewNop())
	require.NoError(t, err)

	set, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://digis.ru/distribution/av/projectors",
		"https://digis.ru/distribution/av/screens",
		"https://digis.ru/distribution/it/displays",
	}, set.Values())
}

func TestDiscoverRootFailureIsFatal(t *testing.T) {
	t.Parallel()

	rootErr := errors.New("boom")
	fetcher := &fakeFetcher{
		pages: map[string]string{},
		errs:  map[string]error{"https://digis.ru/distribution": rootErr},
	}
	d, err := NewDiscoverer(fetcher, "https://digis.ru", "/distribution", zap.NewNop())
	require.NoError(t, err)

	_, err = d.Discover(context.Background())
	require.ErrorIs(t, err, rootErr)
}

func TestDiscoverBranchFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://digis.ru/distribution":    distributionHTML,
			"https://digis.ru/distribution/av": rubricListHTML("/distribution/av/projectors"),
		},
		errs: map[string]error{
			"https://digis.ru/distribution/it": errors.New("branch down"),
		},
	}
	d, err := NewDiscoverer(fetcher, "https://digis.ru", "/distribution", zap.NewNop())
	require.NoError(t, err)

	set, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"https://digis.ru/distribution/av/projectors"}, set.Values())
}

func TestDiscoverBranchWithoutSubcategories(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://digis.ru/distribution":    distributionHTML,
			"https://digis.ru/distribution/av": rubricListHTML("/distribution/av/projectors"),
			"https://digis.ru/distribution/it": `<div class="other">nothing</div>`,
		},
	}
	d, err := NewDiscoverer(fetcher, "https://digis.ru", "/distribution", zap.NewNop())
	require.NoError(t, err)

	set, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
}
