package research

import (
	"context"
	"fmt"

	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/prompts"
	"github.com/jonathan/recruit-reach/internal/search"
	"github.com/jonathan/recruit-reach/internal/types"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// searchStrategy scrapes the top web search hit for the company.
// Only the first result is used; if it cannot be fetched the lookup fails.
type searchStrategy struct {
	engine    search.Engine
	pages     PageFetcher
	client    llm.Client
	summarize bool
	maxChars  int
}

func (s *searchStrategy) Name() types.ResearchStrategy {
	return types.StrategySearch
}

// SearchQuery is the query used to find a company's overview page.
func SearchQuery(company string) string {
	return fmt.Sprintf("%s company overview", company)
}

func (s *searchStrategy) Lookup(ctx context.Context, company string) (string, error) {
	results, err := s.engine.Search(ctx, SearchQuery(company), 1)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", &StrategyError{Strategy: types.StrategySearch, Message: "no search results"}
	}

	link := results[0].Link
	text, err := s.pages.FetchText(ctx, link)
	if err != nil {
		return "", err
	}
	text = truncate(validation.ScrubExternal(text), s.maxChars)

	if !s.summarize || s.client == nil {
		return text, nil
	}

	template := prompts.MustGet("research.json", "summarize-page")
	prompt := prompts.Format(template, map[string]string{
		"CompanyName": company,
		"SourceURL":   link,
		"PageText":    validation.QuoteExternal("company page", text),
	})
	return s.client.GenerateContent(ctx, prompt, llm.TierStandard)
}
