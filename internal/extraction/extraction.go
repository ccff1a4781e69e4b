// Package extraction pulls the company name, recruiter email and job title out of a job description.
package extraction

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/prompts"
	"github.com/jonathan/recruit-reach/internal/schemas"
	"github.com/jonathan/recruit-reach/internal/types"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// Extractor fills JobDetails from job description text using a language model.
type Extractor struct {
	client llm.Client
	log    logger.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(client llm.Client, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{client: client, log: log}
}

// Schema returns the extraction schema for the three outreach fields.
func Schema() llm.ExtractionSchema {
	return llm.ExtractionSchema{
		Name:        "JobDetails",
		Description: prompts.MustGet("extraction.json", "job-details"),
		Fields: []llm.SchemaField{
			{
				Name:        "company_name",
				Type:        "\"string\"",
				Description: "Official name of the hiring company, or empty",
				Required:    true,
			},
			{
				Name:        "recruiter_email",
				Type:        "\"string\"",
				Description: "Email address for applications or recruiter contact, copied exactly, or empty",
				Required:    true,
			},
			{
				Name:        "job_position",
				Type:        "\"string\"",
				Description: "Exact title of the position, or empty",
				Required:    true,
			},
		},
		Rules: []string{
			"If a value is not clearly present in the text, return an empty string for it.",
		},
	}
}

// BuildPrompt returns the exact prompt sent to the model for jobDescription.
func BuildPrompt(jobDescription string) string {
	return llm.BuildExtractionPrompt(Schema(), jobDescription)
}

// Extract returns the details found in jobDescription.
// On a model or parse failure it returns blank JobDetails together with the error,
// so callers can fall back to manual entry.
func (e *Extractor) Extract(ctx context.Context, jobDescription string) (types.JobDetails, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return types.JobDetails{}, validation.Required("job_description")
	}

	raw, err := e.client.GenerateJSON(ctx, BuildPrompt(jobDescription), llm.TierLite)
	if err != nil {
		e.log.Warn("Job detail extraction failed", logger.Err(err))
		return types.JobDetails{}, err
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.JobDetails, []byte(cleaned)); err != nil {
		e.log.Warn("Job detail response did not match schema", logger.Err(err))
		return types.JobDetails{}, &llm.ParseError{Message: "job details response did not match schema", Cause: err}
	}

	var details types.JobDetails
	if err := json.Unmarshal([]byte(cleaned), &details); err != nil {
		return types.JobDetails{}, &llm.ParseError{Message: "failed to decode job details", Cause: err}
	}

	details = Sanitize(details, jobDescription)
	e.log.Info("Extracted job details",
		logger.String("company", details.CompanyName),
		logger.String("position", details.JobPosition),
		logger.Bool("has_email", details.RecruiterEmail != ""),
	)
	return details, nil
}

// Sanitize trims every field and blanks a recruiter email that is malformed
// or does not appear in the job description.
func Sanitize(details types.JobDetails, jobDescription string) types.JobDetails {
	details = details.Normalize()

	if details.RecruiterEmail == "" {
		return details
	}
	if !validation.IsValidEmail(details.RecruiterEmail) {
		details.RecruiterEmail = ""
		return details
	}

	found := false
	for _, candidate := range validation.FindEmails(jobDescription) {
		if strings.EqualFold(candidate, details.RecruiterEmail) {
			found = true
			break
		}
	}
	if !found {
		details.RecruiterEmail = ""
	}
	return details
}
