// Package research - filter.go ranks search hits before the agent reads them.
package research

import (
	"net/url"
	"sort"
	"strings"

	"github.com/jonathan/recruit-reach/internal/search"
)

// extractDomainFromURL extracts the domain from a URL
func extractDomainFromURL(urlStr string) string {
	if urlStr == "" {
		return ""
	}

	// Prepend scheme if missing
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// AssignPathPriority scores a URL by how likely its path is to describe the company.
func AssignPathPriority(urlStr string) float64 {
	urlLower := strings.ToLower(urlStr)

	// About pages and mission statements answer most of an overview
	highValuePatterns := []string{
		"about", "who-we-are", "our-story", "company", "mission", "values",
	}
	for _, pattern := range highValuePatterns {
		if strings.Contains(urlLower, pattern) {
			return 0.95
		}
	}

	goodPatterns := []string{
		"culture", "careers", "press", "news", "newsroom", "investors", "leadership",
	}
	for _, pattern := range goodPatterns {
		if strings.Contains(urlLower, pattern) {
			return 0.8
		}
	}

	// Product and store pages rarely help
	skipPatterns := []string{
		"/p/", "/product/", "/shop", "/stores", "/order", "/cart", "/login",
	}
	for _, pattern := range skipPatterns {
		if strings.Contains(urlLower, pattern) {
			return 0.1
		}
	}

	return 0.5
}

var thirdPartyDomains = []string{
	"greenhouse.io",
	"lever.co",
	"workday.com",
	"myworkdayjobs.com",
	"linkedin.com",
	"indeed.com",
	"glassdoor.com",
	"ziprecruiter.com",
	"facebook.com",
	"instagram.com",
	"x.com",
	"twitter.com",
	"youtube.com",
	"tiktok.com",
}

// IsThirdParty checks if a URL is from a job board or social network.
// Their pages are mostly login walls and do not render without a session.
func IsThirdParty(urlStr string) bool {
	domain := extractDomainFromURL(urlStr)
	if domain == "" {
		return false
	}
	for _, tp := range thirdPartyDomains {
		if domain == tp || strings.HasSuffix(domain, "."+tp) {
			return true
		}
	}
	return false
}

// rankResults drops third-party and already-read links and orders the rest by path priority.
// Ties keep the search engine's order.
func rankResults(results []search.Result, seen map[string]bool) []search.Result {
	ranked := make([]search.Result, 0, len(results))
	for _, r := range results {
		if r.Link == "" || seen[r.Link] || IsThirdParty(r.Link) {
			continue
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return AssignPathPriority(ranked[i].Link) > AssignPathPriority(ranked[j].Link)
	})
	return ranked
}
