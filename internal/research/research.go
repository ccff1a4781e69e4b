// Package research looks up background information about a hiring company.
// Each lookup method is a Strategy; the Researcher picks one per call and
// never fails outright: on error it returns a user-facing message instead.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/search"
	"github.com/jonathan/recruit-reach/internal/types"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// Defaults for Options fields left at zero.
const (
	DefaultMaxAgentSteps   = 4
	DefaultMaxPageChars    = 12000
	DefaultAgentFetchLimit = 3
	DefaultAgentResults    = 3
)

// PageFetcher downloads a page and returns its readable text.
type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Options tunes the research strategies.
type Options struct {
	// FallbackToLLM retries with the llm strategy when another strategy fails or returns nothing.
	FallbackToLLM bool
	// Summarize runs scraped search pages through the model instead of returning raw text.
	Summarize       bool
	MaxAgentSteps   int
	MaxPageChars    int
	AgentFetchLimit int
}

func (o *Options) applyDefaults() {
	if o.MaxAgentSteps <= 0 {
		o.MaxAgentSteps = DefaultMaxAgentSteps
	}
	if o.MaxPageChars <= 0 {
		o.MaxPageChars = DefaultMaxPageChars
	}
	if o.AgentFetchLimit <= 0 {
		o.AgentFetchLimit = DefaultAgentFetchLimit
	}
}

// Result is the outcome of one research call.
// Text is always set: either the overview or FailureMessage(company).
type Result struct {
	Text     string                 `json:"text"`
	Strategy types.ResearchStrategy `json:"strategy"`
	Fallback bool                   `json:"fallback"`
	Err      error                  `json:"-"`
}

// OK reports whether Text holds research rather than the failure message.
func (r Result) OK() bool {
	return r.Err == nil
}

// FailureMessage is the text shown when no strategy produced an overview.
func FailureMessage(company string) string {
	return fmt.Sprintf("Unable to retrieve information about %s. Please try again later.", company)
}

// Researcher runs company research with a registered set of strategies.
type Researcher struct {
	strategies map[types.ResearchStrategy]Strategy
	opts       Options
	log        logger.Logger
}

// NewResearcher creates a Researcher. The llm strategy is always registered;
// search and agent need both a search engine and a page fetcher.
func NewResearcher(client llm.Client, engine search.Engine, pages PageFetcher, opts Options, log logger.Logger) *Researcher {
	if log == nil {
		log = logger.NewNop()
	}
	opts.applyDefaults()

	r := &Researcher{
		strategies: make(map[types.ResearchStrategy]Strategy),
		opts:       opts,
		log:        log,
	}

	r.Register(&llmStrategy{client: client})
	if engine != nil && pages != nil {
		r.Register(&searchStrategy{
			engine:    engine,
			pages:     pages,
			client:    client,
			summarize: opts.Summarize,
			maxChars:  opts.MaxPageChars,
		})
		r.Register(&agentStrategy{
			client:     client,
			engine:     engine,
			pages:      pages,
			maxSteps:   opts.MaxAgentSteps,
			fetchLimit: opts.AgentFetchLimit,
			maxChars:   opts.MaxPageChars,
			log:        log,
		})
	}
	return r
}

// Register adds or replaces the strategy for its name.
func (r *Researcher) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Strategies lists the registered strategy names.
func (r *Researcher) Strategies() []types.ResearchStrategy {
	names := make([]types.ResearchStrategy, 0, len(r.strategies))
	for _, name := range []types.ResearchStrategy{types.StrategyLLM, types.StrategySearch, types.StrategyAgent} {
		if _, ok := r.strategies[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Research returns an overview of company using strategy.
// It never returns an error directly; failures are carried in Result.Err.
func (r *Researcher) Research(ctx context.Context, company string, strategy types.ResearchStrategy) Result {
	company = strings.TrimSpace(company)
	log := r.log.With(logger.String("company", company), logger.String("strategy", string(strategy)))

	if company == "" {
		return Result{
			Text:     FailureMessage(company),
			Strategy: strategy,
			Err:      validation.Required("company_name"),
		}
	}

	text, err := r.run(ctx, company, strategy)
	if err == nil {
		if report := validation.ScanForInjection(text); report.Suspicious() {
			log.Warn("Company research contains instruction-like text", logger.String("phrases", report.String()))
		}
		log.Info("Company research complete", logger.Int("chars", len(text)))
		return Result{Text: text, Strategy: strategy}
	}

	log.Warn("Company research failed", logger.Err(err))

	if r.opts.FallbackToLLM && strategy != types.StrategyLLM && ctx.Err() == nil {
		fallbackText, fallbackErr := r.run(ctx, company, types.StrategyLLM)
		if fallbackErr == nil {
			log.Info("Company research recovered with llm strategy", logger.Int("chars", len(fallbackText)))
			return Result{Text: fallbackText, Strategy: types.StrategyLLM, Fallback: true}
		}
		log.Error("Fallback company research failed", logger.Err(fallbackErr))
		err = fmt.Errorf("%w (llm fallback: %v)", err, fallbackErr)
	}

	return Result{
		Text:     FailureMessage(company),
		Strategy: strategy,
		Err:      err,
	}
}

func (r *Researcher) run(ctx context.Context, company string, name types.ResearchStrategy) (string, error) {
	strategy, ok := r.strategies[name]
	if !ok {
		return "", &StrategyError{Strategy: name, Message: "strategy not available (is search configured?)"}
	}

	text, err := strategy.Lookup(ctx, company)
	if err != nil {
		var strategyErr *StrategyError
		if errors.As(err, &strategyErr) {
			return "", err
		}
		return "", &StrategyError{Strategy: name, Message: "lookup failed", Cause: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &StrategyError{Strategy: name, Message: "empty result"}
	}
	return text, nil
}
