package fetch

import (
	"fmt"
	"math/rand"
	"net/http"
)

// Chrome-on-Windows fingerprints. Keep versions plausible and recent;
// sites fingerprint the UA against the sec-ch-ua hints.
var chromeVersions = []int{120, 121, 122, 123, 124}

var acceptLanguages = []string{
	"ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
	"ru-RU,ru;q=0.9,en;q=0.8",
	"ru,en-US;q=0.9,en;q=0.8",
}

const acceptValue = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

// HeaderGenerator produces randomized realistic browser headers with a
// fixed Referer pointing at the site root.
type HeaderGenerator struct {
	referer string
}

// NewHeaderGenerator builds a generator whose Referer is the site root.
func NewHeaderGenerator(siteRoot string) *HeaderGenerator {
	return &HeaderGenerator{referer: siteRoot}
}

// Generate returns a fresh header set for one request attempt.
func (g *HeaderGenerator) Generate() http.Header {
	major := chromeVersions[rand.Intn(len(chromeVersions))]
	h := http.Header{}
	h.Set("User-Agent", fmt.Sprintf(
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36",
		major,
	))
	h.Set("Accept", acceptValue)
	h.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))])
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Referer", g.referer)
	h.Set("Sec-Ch-Ua", fmt.Sprintf(`"Chromium";v="%d", "Google Chrome";v="%d", "Not-A.Brand";v="99"`, major, major))
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}
