package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reWhitespace = regexp.MustCompile(`\s+`)

func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// firstText tries selectors in priority order and returns the first
// non-empty text. Sites rename CSS classes often, so every field carries
// a fallback ladder; the first hit wins, matches are never merged.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		text := normalizeText(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// firstTexts returns the texts of all elements matched by the first
// selector that yields at least one non-empty entry.
func firstTexts(doc *goquery.Document, selectors ...string) []string {
	for _, selector := range selectors {
		var texts []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if t := normalizeText(s.Text()); t != "" {
				texts = append(texts, t)
			}
		})
		if len(texts) > 0 {
			return texts
		}
	}
	return nil
}

// truncate caps s at max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
