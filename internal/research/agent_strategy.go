package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/prompts"
	"github.com/jonathan/recruit-reach/internal/search"
	"github.com/jonathan/recruit-reach/internal/types"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// agentStrategy lets the model decide which web searches to run before it answers.
type agentStrategy struct {
	client     llm.Client
	engine     search.Engine
	pages      PageFetcher
	maxSteps   int
	fetchLimit int
	maxChars   int
	log        logger.Logger
}

// agentAction is the JSON reply expected from the model on each turn.
type agentAction struct {
	Action  string `json:"action"`
	Query   string `json:"query,omitempty"`
	Summary string `json:"summary,omitempty"`
}

const (
	actionSearch = "search"
	actionAnswer = "answer"
)

func (s *agentStrategy) Name() types.ResearchStrategy {
	return types.StrategyAgent
}

func (s *agentStrategy) Lookup(ctx context.Context, company string) (string, error) {
	var findings []string
	seen := make(map[string]bool)

	for step := 1; step <= s.maxSteps; step++ {
		final := step == s.maxSteps
		prompt := s.buildPrompt(company, findings, s.maxSteps-step+1, final)

		raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierLite)
		if err != nil {
			return "", err
		}

		var action agentAction
		if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &action); err != nil {
			return "", &llm.ParseError{Message: "failed to parse agent action", Cause: err}
		}

		switch strings.ToLower(action.Action) {
		case actionAnswer:
			if strings.TrimSpace(action.Summary) == "" {
				return "", &StrategyError{Strategy: types.StrategyAgent, Message: "agent answered with an empty summary"}
			}
			return action.Summary, nil

		case actionSearch:
			if final {
				return "", &StrategyError{Strategy: types.StrategyAgent, Message: "agent kept searching after its last turn"}
			}
			query := strings.TrimSpace(action.Query)
			if query == "" {
				return "", &StrategyError{Strategy: types.StrategyAgent, Message: "agent requested an empty search"}
			}
			s.log.Debug("Agent search", logger.Int("step", step), logger.String("query", query))
			findings = append(findings, s.runSearch(ctx, query, seen))

		default:
			return "", &llm.ParseError{Message: fmt.Sprintf("unknown agent action %q", action.Action)}
		}
	}

	return "", &StrategyError{Strategy: types.StrategyAgent, Message: "agent did not produce an answer"}
}

func (s *agentStrategy) buildPrompt(company string, findings []string, stepsLeft int, final bool) string {
	summary := "(none yet)"
	if len(findings) > 0 {
		summary = strings.Join(findings, "\n\n")
	}

	key := "agent-step"
	if final {
		key = "agent-final"
	}

	return prompts.Format(prompts.MustGet("research.json", key), map[string]string{
		"CompanyName": company,
		"StepsLeft":   strconv.Itoa(stepsLeft),
		"Findings":    summary,
	})
}

// runSearch executes one agent search and reads the top pages concurrently.
// Failures become part of the findings so the model can adjust its next query.
func (s *agentStrategy) runSearch(ctx context.Context, query string, seen map[string]bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search: %s\n", query)

	results, err := s.engine.Search(ctx, query, DefaultAgentResults)
	if err != nil {
		s.log.Warn("Agent search failed", logger.String("query", query), logger.Err(err))
		sb.WriteString("The search failed; try different terms.")
		return sb.String()
	}

	ranked := rankResults(results, seen)
	if len(ranked) == 0 {
		sb.WriteString("No new usable results.")
		return sb.String()
	}

	pageTexts := make([]string, len(ranked))
	perPage := s.maxChars / len(ranked)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchLimit)
	for i, r := range ranked {
		seen[r.Link] = true
		g.Go(func() error {
			text, err := s.pages.FetchText(gctx, r.Link)
			if err != nil {
				s.log.Debug("Agent page fetch failed", logger.String("url", r.Link), logger.Err(err))
				return nil
			}
			pageTexts[i] = truncate(validation.ScrubExternal(text), perPage)
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range ranked {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", r.Title, r.Link, r.Snippet)
		if pageTexts[i] != "" {
			fmt.Fprintf(&sb, "  Page excerpt: %s\n", pageTexts[i])
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
