// Package jobsource reads job descriptions from files and job board URLs.
package jobsource

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/recruit-reach/internal/fetch"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// Separator starts each job description in a multi-posting file.
const Separator = "=== JD START ==="

// Posting is one job description ready for extraction.
type Posting struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// Split breaks content on Separator and drops blank blocks.
// Content without a separator is returned as a single description.
func Split(content string) []string {
	var out []string
	for _, block := range strings.Split(content, Separator) {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}

// LoadFile reads every job description in the file at path.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job description file: %w", err)
	}
	jds := Split(string(data))
	if len(jds) == 0 {
		return nil, fmt.Errorf("no job descriptions found in %s", path)
	}
	return jds, nil
}

// FromURL downloads a posting and labels it with the job board it came from.
func FromURL(ctx context.Context, url string, useBrowser bool, log logger.Logger) (*Posting, error) {
	text, err := fetch.JobPosting(ctx, url, useBrowser, log)
	if err != nil {
		return nil, err
	}
	if report := validation.ScanForInjection(text); report.Suspicious() && log != nil {
		log.Warn("Job posting contains instruction-like text", logger.String("url", url), logger.String("phrases", report.String()))
	}
	return &Posting{Text: validation.ScrubExternal(text), Source: fetch.JobSource(url), URL: url}, nil
}
