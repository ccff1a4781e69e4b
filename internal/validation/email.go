// Package validation provides input checks applied at the pipeline boundary.
package validation

import (
	"regexp"
	"strings"
)

// emailPattern requires a local part, a domain and an alphabetic TLD of at least two letters.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// emailSearchPattern finds email-shaped substrings inside free text.
var emailSearchPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// IsValidEmail reports whether email looks like a deliverable address.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// FindEmails returns every email-shaped substring of text, lower-cased and de-duplicated,
// in order of first appearance.
func FindEmails(text string) []string {
	matches := emailSearchPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		m = strings.ToLower(strings.TrimRight(m, "."))
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
