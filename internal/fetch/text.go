// Package fetch - text.go reduces page HTML to the lines a prompt needs.
package fetch

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageNoise is removed from every page before text extraction.
const pageNoise = "nav, footer, header, script, style, noscript, iframe, svg, " +
	".ad, .ads, .sidebar, .cookie-banner, .cookie-consent, .newsletter-signup, .popup"

// CompanyPageSelectors returns selectors for company pages (about, values, culture).
func CompanyPageSelectors() []string {
	return []string{
		"main",
		"article",
		".about-content",
		".about-us",
		"#about",
		".values-content",
		".culture-content",
		".content",
		"#content",
	}
}

// extractText removes noise, then returns the text of the first element
// matching a selector, falling back to the body.
func extractText(html string, selectors, noise []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(pageNoise).Remove()
	if len(noise) > 0 {
		doc.Find(strings.Join(noise, ", ")).Remove()
	}

	content := doc.Find("body")
	for _, selector := range selectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			content = selection.First()
			break
		}
	}

	doc.Find("br").ReplaceWithHtml("\n")
	return cleanWhitespace(content.Text()), nil
}

// cleanWhitespace collapses runs of spaces and drops blank lines.
func cleanWhitespace(text string) string {
	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
