// Package record holds the finished product record and its export forms.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Product is one fully enriched catalog record, ready for a sink.
type Product struct {
	Title            string            `json:"title"`
	ShortDescription string            `json:"short_description"`
	FullDescription  string            `json:"full_description"`
	CatalogCode      int               `json:"catalog_code"`
	Article          string            `json:"article"`
	Price            int               `json:"price"`
	Brand            string            `json:"brand"`
	Posters          []string          `json:"posters"`
	Characteristics  map[string]string `json:"characteristics"`
	Specification    map[string]string `json:"specification"`
	Documentation    []string          `json:"documentation"`
	Accessories      []string          `json:"accessories"`
}

const emptyCell = "-"

// listSeparator joins multi-value cells in the flat export row.
const listSeparator = "|| "

// Fingerprint returns a stable hex digest of the record. List order is
// canonicalized first, so two records with the same content always hash
// the same.
func (p Product) Fingerprint() string {
	canonical := p
	canonical.Posters = sortedCopy(p.Posters)
	canonical.Documentation = sortedCopy(p.Documentation)
	canonical.Accessories = sortedCopy(p.Accessories)

	// encoding/json writes map keys in sorted order and struct fields in
	// declaration order, which makes the encoding deterministic.
	payload, err := json.Marshal(canonical)
	if err != nil {
		// Product only holds strings, ints, slices and maps; Marshal
		// cannot fail on it.
		panic(err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Headers returns the column names matching FlatRow.
func Headers() []string {
	return []string{
		"Название",
		"Короткое описание",
		"Полное описание",
		"Код Digis",
		"Артикул",
		"Цена",
		"Бренд",
		"Изображения",
		"Характеристики",
		"Спецификации",
		"Документации",
		"Аксессуары",
	}
}

// FlatRow renders the record as one row of display-ready cells, in the
// Headers order. Empty fields render as "-".
func (p Product) FlatRow() []string {
	return []string{
		orDash(p.Title),
		orDash(p.ShortDescription),
		orDash(p.FullDescription),
		orDash(formatNonZero(p.CatalogCode)),
		orDash(p.Article),
		FormatPrice(p.Price),
		orDash(p.Brand),
		orDash(strings.Join(p.Posters, listSeparator)),
		orDash(formatPairs(p.Characteristics)),
		orDash(formatPairs(p.Specification)),
		orDash(strings.Join(p.Documentation, listSeparator)),
		orDash(strings.Join(p.Accessories, listSeparator)),
	}
}

// FormatPrice renders a rouble amount with thin spaces between thousand
// groups, e.g. 1234567 -> "1 234 567 ₽".
func FormatPrice(price int) string {
	digits := strconv.Itoa(price)
	neg := false
	if strings.HasPrefix(digits, "-") {
		neg = true
		digits = digits[1:]
	}

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	out := strings.Join(groups, " ")
	if neg {
		out = "-" + out
	}
	return out + " ₽"
}

func formatPairs(pairs map[string]string) string {
	if len(pairs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+pairs[k])
	}
	return strings.Join(parts, "; ")
}

func formatNonZero(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyCell
	}
	return s
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
