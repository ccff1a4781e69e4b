package research

import (
	"fmt"

	"github.com/jonathan/recruit-reach/internal/types"
)

// StrategyError is returned when a research strategy cannot produce an overview.
type StrategyError struct {
	Strategy types.ResearchStrategy
	Message  string
	Cause    error
}

func (e *StrategyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s research: %s: %v", e.Strategy, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s research: %s", e.Strategy, e.Message)
}

func (e *StrategyError) Unwrap() error {
	return e.Cause
}
