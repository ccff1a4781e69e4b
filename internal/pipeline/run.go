package pipeline

import (
	"context"
	"fmt"

	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/session"
	"github.com/jonathan/recruit-reach/internal/types"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// RunOptions holds configuration for running the whole chain
type RunOptions struct {
	Kind       types.ContentKind
	Strategy   types.ResearchStrategy
	Feedback   string
	OnProgress ProgressCallback
}

// Run extracts details, researches the company and loads the resume, then
// generates content. Steps run one after another. Details and research
// already on the session are reused, so a feedback rerun keeps its inputs.
func (p *Pipeline) Run(ctx context.Context, s *session.Session, opts RunOptions) (*types.GeneratedContent, error) {
	if err := p.acquire(s); err != nil {
		return nil, err
	}
	defer s.Release()

	events := newEmitter(s.ID, opts.OnProgress)
	log := p.sessionLog(s)

	if jd, _ := s.Job(); jd == "" {
		return nil, validation.Required("job_description")
	}

	cfg := p.resolve(s)
	client, err := p.llm(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if s.Details().IsEmpty() {
		events.emit(StepExtract, CategoryStarted, "Extracting job details", nil)
		details, err := p.extract(ctx, s, client)
		if err != nil {
			events.emit(StepExtract, CategoryWarning, "Could not extract job details: "+err.Error(), details)
		} else {
			events.emit(StepExtract, CategoryCompleted,
				fmt.Sprintf("Found %s at %s", orUnknown(details.JobPosition), orUnknown(details.CompanyName)), details)
		}
	}

	if stored := s.Research(); stored != nil {
		events.emit(StepResearch, CategoryCompleted,
			fmt.Sprintf("Using earlier %s research", stored.Strategy), stored)
	} else {
		events.emit(StepResearch, CategoryStarted, "Researching company", nil)
		result := p.research(ctx, s, client, opts.Strategy)
		if !result.OK() {
			events.emit(StepResearch, CategoryWarning, result.Text, nil)
		} else {
			msg := fmt.Sprintf("Researched company with %s strategy", result.Strategy)
			if result.Fallback {
				msg += " (fallback)"
			}
			events.emit(StepResearch, CategoryCompleted, msg, result)
		}
	}

	events.emit(StepResume, CategoryStarted, "Loading resume", nil)
	doc, err := p.ensureResume(s)
	if err != nil {
		log.Warn("Pipeline stopped before generation", logger.Err(err))
		return nil, err
	}
	events.emit(StepResume, CategoryCompleted,
		fmt.Sprintf("Loaded %s (%d characters)", doc.Filename, len(doc.Text)), nil)

	kind := opts.Kind
	if kind == "" {
		kind = types.KindEmail
	}
	events.emit(StepGenerate, CategoryStarted, fmt.Sprintf("Generating %s", kindLabel(kind)), nil)
	content, err := p.generate(ctx, s, client, cfg, GenerateOptions{Kind: kind, Feedback: opts.Feedback})
	if err != nil {
		return nil, err
	}
	events.emit(StepGenerate, CategoryCompleted, fmt.Sprintf("Generated %s", kindLabel(kind)), content)
	return content, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}

func kindLabel(kind types.ContentKind) string {
	if kind == types.KindCoverLetter {
		return "cover letter"
	}
	return "email"
}
