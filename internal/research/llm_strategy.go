package research

import (
	"context"

	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/prompts"
	"github.com/jonathan/recruit-reach/internal/types"
)

// llmStrategy asks the model directly for an overview.
type llmStrategy struct {
	client llm.Client
}

func (s *llmStrategy) Name() types.ResearchStrategy {
	return types.StrategyLLM
}

func (s *llmStrategy) Lookup(ctx context.Context, company string) (string, error) {
	template := prompts.MustGet("research.json", "company-overview")
	prompt := prompts.Format(template, map[string]string{
		"CompanyName": company,
	})

	return s.client.GenerateContent(ctx, prompt, llm.TierStandard)
}
