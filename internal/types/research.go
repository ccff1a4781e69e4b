package types

import (
	"fmt"
	"strings"
)

// ResearchStrategy identifies how company information is obtained.
type ResearchStrategy string

const (
	// StrategyLLM asks the language model directly.
	StrategyLLM ResearchStrategy = "llm"
	// StrategySearch scrapes the first web search result.
	StrategySearch ResearchStrategy = "search"
	// StrategyAgent lets the language model drive web searches.
	StrategyAgent ResearchStrategy = "agent"
)

// ParseResearchStrategy converts a configuration value into a ResearchStrategy.
// "bs4" and "google" are accepted as aliases for the search strategy.
func ParseResearchStrategy(s string) (ResearchStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "llm", "openai":
		return StrategyLLM, nil
	case "search", "bs4", "google":
		return StrategySearch, nil
	case "agent":
		return StrategyAgent, nil
	default:
		return "", fmt.Errorf("unknown research strategy %q (expected llm, search or agent)", s)
	}
}
