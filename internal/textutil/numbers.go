// Package textutil provides helpers for pulling structured values out of
// noisy catalog text (prices, SKU codes, brand candidates).
package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

// Grouped forms first so "1 234 567" is not read as "1".
var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-?\d{1,3}(?:[ ,]\d{3})+\.\d+`),
	regexp.MustCompile(`-?\d{1,3}(?:[ ,]\d{3})+`),
	regexp.MustCompile(`-?\d+\.\d+`),
	regexp.MustCompile(`-?\d+`),
}

var englishWord = regexp.MustCompile(`^[A-Za-z]+$`)

// ExtractInteger returns the first integer found in text. Grouping
// separators (space or comma) are stripped, fractional parts truncated.
// Returns def when no number is present.
func ExtractInteger(text string, def int) int {
	if text == "" {
		return def
	}
	for _, pattern := range numberPatterns {
		match := pattern.FindString(text)
		if match == "" {
			continue
		}
		cleaned := strings.NewReplacer(" ", "", ",", "").Replace(match)
		if dot := strings.IndexByte(cleaned, '.'); dot >= 0 {
			cleaned = cleaned[:dot]
		}
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			continue
		}
		return n
	}
	return def
}

// IsEnglishWord reports whether s consists solely of ASCII letters.
func IsEnglishWord(s string) bool {
	return s != "" && englishWord.MatchString(s)
}

// FirstEnglishWord returns the first purely-English word in text longer
// than minLen runes, or "" when none exists. Used as the brand fallback
// for titles that mix scripts.
func FirstEnglishWord(text string, minLen int) string {
	for _, word := range strings.Fields(text) {
		trimmed := strings.Trim(word, ".,!?;:()\"'")
		if len(trimmed) > minLen && IsEnglishWord(trimmed) {
			return trimmed
		}
	}
	return ""
}
