// Package fetch downloads company pages and job postings and reduces them
// to readable text for research and extraction prompts.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonathan/recruit-reach/internal/logger"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// UserAgent is sent with every page request.
const UserAgent = "Mozilla/5.0 (compatible; RecruitReach/1.0)"

// maxPageBytes caps how much of a page body is read.
const maxPageBytes = 4 << 20

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// TextFetcher retrieves a page and returns its readable text.
type TextFetcher struct {
	Client *http.Client
	// Selectors picks the main content; nil means CompanyPageSelectors.
	Selectors []string
	Noise     []string
	// UseBrowser re-renders pages whose static text is too short.
	UseBrowser     bool
	BrowserTimeout time.Duration
	Logger         logger.Logger
}

// NewTextFetcher returns a fetcher tuned for company pages.
func NewTextFetcher(useBrowser bool, log logger.Logger) *TextFetcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &TextFetcher{
		Client:         &http.Client{Timeout: DefaultTimeout},
		Selectors:      CompanyPageSelectors(),
		UseBrowser:     useBrowser,
		BrowserTimeout: DefaultBrowserTimeout,
		Logger:         log,
	}
}

// FetchText downloads url and returns its main text.
func (f *TextFetcher) FetchText(ctx context.Context, url string) (string, error) {
	log := f.Logger
	if log == nil {
		log = logger.NewNop()
	}

	html, err := f.get(ctx, url)
	if err != nil {
		return "", err
	}

	selectors := f.Selectors
	if selectors == nil {
		selectors = CompanyPageSelectors()
	}

	text, err := extractText(html, selectors, f.Noise)
	if err != nil {
		return "", &Error{URL: url, Message: "failed to extract text", Cause: err}
	}

	if f.UseBrowser && ShouldUseBrowser(text) {
		log.Info("Static page text too short, rendering with browser",
			logger.String("url", url),
			logger.Int("chars", len(text)),
		)

		timeout := f.BrowserTimeout
		if timeout == 0 {
			timeout = DefaultBrowserTimeout
		}

		rendered, browserErr := WithBrowser(ctx, url, timeout, log)
		if browserErr != nil {
			// Keep the static text; rendering is best effort
			log.Warn("Browser rendering failed", logger.String("url", url), logger.Err(browserErr))
			return text, nil
		}

		renderedText, extractErr := extractText(rendered, selectors, f.Noise)
		if extractErr == nil && len(renderedText) > len(text) {
			text = renderedText
		}
	}

	return text, nil
}

func (f *TextFetcher) get(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}
	return string(body), nil
}
