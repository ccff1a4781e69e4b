package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentKind(t *testing.T) {
	tests := []struct {
		input   string
		want    ContentKind
		wantErr bool
	}{
		{"email", KindEmail, false},
		{"Email", KindEmail, false},
		{"", KindEmail, false},
		{"Cover Letter", KindCoverLetter, false},
		{"cover-letter", KindCoverLetter, false},
		{"cover_letter", KindCoverLetter, false},
		{"memo", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseContentKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResearchStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    ResearchStrategy
		wantErr bool
	}{
		{"llm", StrategyLLM, false},
		{"", StrategyLLM, false},
		{"bs4", StrategySearch, false},
		{"Search", StrategySearch, false},
		{"agent", StrategyAgent, false},
		{"telepathy", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseResearchStrategy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJobDetails_NormalizeAndEmpty(t *testing.T) {
	d := JobDetails{CompanyName: "  Acme ", JobPosition: "\tEngineer\n"}.Normalize()

	assert.Equal(t, "Acme", d.CompanyName)
	assert.Equal(t, "Engineer", d.JobPosition)
	assert.False(t, d.IsEmpty())
	assert.True(t, JobDetails{}.IsEmpty())
}
