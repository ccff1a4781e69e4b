// Package search provides web search backends used for company research.
package search

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/jonathan/recruit-reach/internal/config"
)

// MaxResults is the largest page size the Custom Search API accepts.
const MaxResults = 10

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Engine runs a web search and returns at most n results in ranking order.
type Engine interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// GoogleEngine implements Engine with Google Programmable Search.
type GoogleEngine struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleEngine creates a Custom Search client.
// Extra options are passed to the service (endpoint overrides in tests).
func NewGoogleEngine(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleEngine, error) {
	if apiKey == "" {
		return nil, &config.MissingSettingError{Setting: "search.api_key"}
	}
	if cx == "" {
		return nil, &config.MissingSettingError{Setting: "search.cx"}
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}

	return &GoogleEngine{svc: svc, cx: cx}, nil
}

// Search runs query and returns up to n results.
func (e *GoogleEngine) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if n < 1 {
		n = 1
	}
	if n > MaxResults {
		n = MaxResults
	}

	resp, err := e.svc.Cse.List().Cx(e.cx).Q(query).Num(int64(n)).Context(ctx).Do()
	if err != nil {
		return nil, &Error{Query: query, Cause: err}
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

// Error is returned when the search backend fails.
type Error struct {
	Query string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("search %q failed: %v", e.Query, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
