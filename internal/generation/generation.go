// Package generation writes recruiter outreach emails and cover letters with a language model.
package generation

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

const promptFile = "generation.json"

// unknownSender stands in for a sender identity that has not been configured yet.
const unknownSender = "the applicant named in the resume"

// Request carries everything needed to write one piece of content.
type Request struct {
	Kind           types.ContentKind `json:"kind"`
	JobDescription string            `json:"job_description"`
	CompanyInfo    string            `json:"company_info"`
	ResumeText     string            `json:"resume_text"`
	JobPosition    string            `json:"job_position"`
	CompanyName    string            `json:"company_name"`
	RecruiterEmail string            `json:"recruiter_email"`
	JobSource      string            `json:"job_source"`
	SenderName     string            `json:"sender_name"`
	SenderEmail    string            `json:"sender_email"`
	// Feedback, when set, asks for a revision and is passed to the model verbatim.
	Feedback string `json:"feedback,omitempty"`
}

// Validate reports the first missing or malformed field as a *validation.InputError.
func (r Request) Validate() error {
	switch r.Kind {
	case types.KindEmail, types.KindCoverLetter:
	default:
		return &validation.InputError{Field: "kind", Message: "must be email or cover_letter"}
	}

	type field struct{ name, value string }
	required := []field{
		{"job_description", r.JobDescription},
		{"resume_text", r.ResumeText},
		{"company_name", r.CompanyName},
		{"job_position", r.JobPosition},
	}
	if r.Kind == types.KindEmail {
		required = append(required,
			field{"recruiter_email", r.RecruiterEmail},
			field{"job_source", r.JobSource},
		)
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return validation.Required(f.name)
		}
	}

	if r.Kind == types.KindEmail && !validation.IsValidEmail(strings.TrimSpace(r.RecruiterEmail)) {
		return &validation.InputError{Field: "recruiter_email", Message: "must be a valid email address"}
	}
	return nil
}

// BuildPrompt returns the exact instruction payload sent to the model for r.
func BuildPrompt(r Request) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	templateKey, feedbackKey := "email", "email-feedback"
	if r.Kind == types.KindCoverLetter {
		templateKey, feedbackKey = "cover-letter", "cover-letter-feedback"
	}

	senderName := strings.TrimSpace(r.SenderName)
	if senderName == "" {
		senderName = unknownSender
	}

	data := map[string]string{
		"CompanyName":    strings.TrimSpace(r.CompanyName),
		"RecruiterEmail": strings.TrimSpace(r.RecruiterEmail),
		"JobPosition":    strings.TrimSpace(r.JobPosition),
		"JobSource":      strings.TrimSpace(r.JobSource),
		"ResumeText":     r.ResumeText,
		"JobDescription": r.JobDescription,
		"CompanyInfo":    quoteCompanyInfo(r.CompanyInfo),
		"SenderName":     senderName,
		"SenderEmail":    strings.TrimSpace(r.SenderEmail),
	}

	prompt := prompts.Format(prompts.MustGet(promptFile, templateKey), data)

	if strings.TrimSpace(r.Feedback) != "" {
		prompt += prompts.Format(prompts.MustGet(promptFile, feedbackKey), map[string]string{
			"Feedback": r.Feedback,
		})
	}

	return prompt, nil
}

// quoteCompanyInfo marks research text, which may come from scraped pages, as data.
func quoteCompanyInfo(info string) string {
	if info = strings.TrimSpace(info); info == "" {
		return ""
	}
	return validation.QuoteExternal("company overview", info)
}

// Generator produces outreach content.
type Generator struct {
	client llm.Client
	log    logger.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(client llm.Client, log logger.Logger) *Generator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{client: client, log: log}
}

// generatedJSON is the model's structured reply.
type generatedJSON struct {
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html"`
}

// Generate makes one fresh model call for r.
// Any model or output-shape failure is returned; content is never defaulted.
func (g *Generator) Generate(ctx context.Context, r Request) (*types.GeneratedContent, error) {
	prompt, err := BuildPrompt(r)
	if err != nil {
		return nil, err
	}

	log := g.log.With(
		logger.String("kind", string(r.Kind)),
		logger.String("company", r.CompanyName),
		logger.Bool("feedback", r.Feedback != ""),
	)
	log.Info("Generating content")

	raw, err := g.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		log.Error("Content generation failed", logger.Err(err))
		return nil, err
	}

	content, err := parseContent(r.Kind, llm.CleanJSONBlock(raw))
	if err != nil {
		log.Error("Generated content was malformed", logger.Err(err))
		return nil, err
	}

	log.Info("Generated content",
		logger.Int("text_chars", len(content.BodyText)),
		logger.Int("html_chars", len(content.BodyHTML)),
	)
	return content, nil
}

func parseContent(kind types.ContentKind, raw string) (*types.GeneratedContent, error) {
	schemaName := schemas.EmailContent
	if kind == types.KindCoverLetter {
		schemaName = schemas.CoverLetterContent
	}

	if err := schemas.Validate(schemaName, []byte(raw)); err != nil {
		return nil, &llm.ParseError{Message: "generated content did not match schema", Cause: err}
	}

	var out generatedJSON
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &llm.ParseError{Message: "failed to decode generated content", Cause: err}
	}

	content := &types.GeneratedContent{
		Kind:     kind,
		BodyText: strings.TrimSpace(out.BodyText),
		BodyHTML: strings.TrimSpace(out.BodyHTML),
	}

	if kind == types.KindEmail {
		content.Subject = strings.TrimSpace(out.Subject)
		if !HasDoctype(content.BodyHTML) {
			return nil, &llm.ParseError{Message: "email HTML must start with <!DOCTYPE html>"}
		}
	}

	return content, nil
}

// HasDoctype reports whether html begins with an HTML5 doctype, ignoring case and leading space.
func HasDoctype(html string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(html)), "<!doctype html")
}
