package types

import (
	"fmt"
	"strings"
)

// ContentKind selects what the content generator drafts.
type ContentKind string

const (
	// KindEmail is a recruiter outreach email with a subject line.
	KindEmail ContentKind = "email"
	// KindCoverLetter is a cover letter (no subject line).
	KindCoverLetter ContentKind = "cover_letter"
)

// ParseContentKind converts user input into a ContentKind.
// Accepts the UI labels ("Email", "Cover Letter") as well as the canonical values.
func ParseContentKind(s string) (ContentKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	switch ContentKind(normalized) {
	case KindEmail, "":
		return KindEmail, nil
	case KindCoverLetter:
		return KindCoverLetter, nil
	default:
		return "", fmt.Errorf("unknown content kind %q (expected email or cover_letter)", s)
	}
}

// GeneratedContent is one drafted email or cover letter.
// Values are never mutated after generation; a regeneration yields a new value.
type GeneratedContent struct {
	Kind     ContentKind `json:"kind"`
	Subject  string      `json:"subject,omitempty"`
	BodyText string      `json:"body_text"`
	BodyHTML string      `json:"body_html"`
}
