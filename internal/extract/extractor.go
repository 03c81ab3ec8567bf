// Package extract reads typed product fields out of parsed catalog pages.
// The pipeline only ever depends on the Extractor interface; the concrete
// selectors live here and are swappable per site revision.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/avdeenkov/catalog-harvester/internal/textutil"
)

// RawProduct is the untyped harvest of one product page. Every field
// carries a safe default when the markup is missing; extraction never
// fails outright.
type RawProduct struct {
	Title            string
	ShortDescription string
	FullDescription  string
	CatalogCode      int
	Article          string
	PriceText        string
	Posters          []string
	Characteristics  map[string]string
	Specification    map[string]string
	Documentation    []string
	Accessories      []string
}

// Extractor pulls raw product fields from a parsed document. Extraction
// must be deterministic: the same document always yields the same fields.
type Extractor interface {
	Extract(doc *goquery.Document) RawProduct
}

// Selectors for the product detail page.
const (
	titleSelector         = "h1"
	shortDescSelector     = "div.prod-detail-head-desc"
	fullDescSelector      = "#tab_description p"
	skuListSelector       = "div.prod-detail-box-buy-head .list-props"
	priceSelector         = "div.price"
	gallerySelector       = "#prod-gallery .swiper-slide"
	fallbackImgSelector   = ".prod-detail-img img"
	featuresSelector      = "#tab_features tr"
	specificationSelector = "#tab_specification tr"
	documentationSelector = "#tab_documentation tr"
	accessoriesSelector   = "#tab_accessories tr"
)

// SKU list keys as they appear on the site.
const (
	skuKeyCode    = "Код DIGIS"
	skuKeyArticle = "Артикул"
)

const defaultTitle = "Неизвестный товар"

// defaultPosterURL is the site's placeholder image, used when a product
// page carries no gallery at all.
const defaultPosterURL = "https://digis.ru/bitrix_personal/templates/ia_pegas_digis/images/tmp/42_282.jpg"

// SiteExtractor is the goquery implementation of Extractor for the
// catalog's product pages.
type SiteExtractor struct {
	base   *url.URL
	logger *zap.Logger
}

// NewSiteExtractor builds an extractor that resolves relative links
// against baseURL.
func NewSiteExtractor(baseURL string, logger *zap.Logger) (*SiteExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &SiteExtractor{base: base, logger: logger}, nil
}

// Extract reads every product field from doc, degrading missing markup
// to defaults.
func (e *SiteExtractor) Extract(doc *goquery.Document) RawProduct {
	sku := e.extractSKU(doc)
	return RawProduct{
		Title:            e.extractTitle(doc),
		ShortDescription: strings.TrimSpace(doc.Find(shortDescSelector).First().Text()),
		FullDescription:  e.extractFullDescription(doc),
		CatalogCode:      textutil.ExtractInteger(sku[skuKeyCode], 0),
		Article:          sku[skuKeyArticle],
		PriceText:        e.extractPriceText(doc),
		Posters:          e.extractPosters(doc),
		Characteristics:  e.extractPairs(doc, featuresSelector),
		Specification:    e.extractPairs(doc, specificationSelector),
		Documentation:    e.extractLinks(doc, documentationSelector, ".td-btn a"),
		Accessories:      e.extractLinks(doc, accessoriesSelector, ".col-body a"),
	}
}

func (e *SiteExtractor) extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find(titleSelector).First().Text())
	if title == "" {
		return defaultTitle
	}
	return title
}

func (e *SiteExtractor) extractFullDescription(doc *goquery.Document) string {
	var parts []string
	doc.Find(fullDescSelector).Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// extractSKU reads the "key: value" identifier list next to the buy box.
func (e *SiteExtractor) extractSKU(doc *goquery.Document) map[string]string {
	sku := make(map[string]string)
	props := doc.Find(skuListSelector).First()
	if props.Length() == 0 {
		e.logger.Warn("no sku identifiers on product page")
		return sku
	}
	props.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		parts := strings.SplitN(strings.TrimSpace(li.Text()), ":", 2)
		if len(parts) != 2 {
			e.logger.Warn("unrecognized sku attribute", zap.String("text", li.Text()))
			return
		}
		sku[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	})
	return sku
}

// extractPriceText prefers the rouble figure, falls back to USD. The
// returned string keeps the currency marker for the enrichment step.
func (e *SiteExtractor) extractPriceText(doc *goquery.Document) string {
	box := doc.Find(priceSelector).First()
	if box.Length() == 0 {
		return "0"
	}

	prices := make(map[string]string)
	value := box.Find(".val").First()
	currency := box.Find(".currency").First()
	if value.Length() > 0 && currency.Length() > 0 {
		prices[strings.TrimSpace(currency.Text())] = strings.TrimSpace(value.Text())
	}
	box.Find("li").Each(func(_ int, li *goquery.Selection) {
		v := li.Find(".val").First()
		c := li.Find(".currency").First()
		if v.Length() == 0 || c.Length() == 0 {
			return
		}
		prices[strings.TrimSpace(c.Text())] = strings.TrimSpace(v.Text())
	})

	if rub, ok := prices["руб"]; ok {
		return rub + " руб"
	}
	usd, ok := prices["USD"]
	if !ok {
		usd = "0"
	}
	return usd + " USD"
}

func (e *SiteExtractor) extractPosters(doc *goquery.Document) []string {
	var urls []string
	doc.Find(gallerySelector).Each(func(_ int, slide *goquery.Selection) {
		if href := slide.Find("a").First().AttrOr("href", ""); href != "" {
			urls = appendResolved(urls, e.base, href)
			return
		}
		if src := slide.Find("img").First().AttrOr("src", ""); src != "" {
			urls = appendResolved(urls, e.base, src)
		}
	})
	if len(urls) > 0 {
		return urls
	}

	doc.Find(fallbackImgSelector).Each(func(_ int, img *goquery.Selection) {
		urls = appendResolved(urls, e.base, img.AttrOr("src", ""))
	})
	if len(urls) > 0 {
		return urls
	}
	return []string{defaultPosterURL}
}

// extractPairs reads a two-column table into a key/value map, skipping
// rows that do not have exactly two cells.
func (e *SiteExtractor) extractPairs(doc *goquery.Document, selector string) map[string]string {
	pairs := make(map[string]string)
	doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) != 2 {
			return
		}
		pairs[cells[0]] = cells[1]
	})
	return pairs
}

func (e *SiteExtractor) extractLinks(doc *goquery.Document, rowSelector, linkSelector string) []string {
	var urls []string
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		link := row.Find(linkSelector).First()
		if link.Length() == 0 {
			return
		}
		urls = appendResolved(urls, e.base, link.AttrOr("href", ""))
	})
	return urls
}

func appendResolved(urls []string, base *url.URL, href string) []string {
	href = strings.TrimSpace(href)
	if href == "" {
		return urls
	}
	ref, err := url.Parse(href)
	if err != nil {
		return urls
	}
	return append(urls, base.ResolveReference(ref).String())
}
