package research

import (
	"context"

	"github.com/jonathan/recruit-reach/internal/types"
)

// Strategy is one way of producing a company overview.
type Strategy interface {
	Name() types.ResearchStrategy
	Lookup(ctx context.Context, company string) (string, error)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
