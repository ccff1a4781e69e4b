// Package pipeline runs the outreach workflow for one session: extract job
// details, research the company, load the resume, generate content and send it.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/recruit-reach/internal/config"
	"github.com/jonathan/recruit-reach/internal/db"
	"github.com/jonathan/recruit-reach/internal/extraction"
	"github.com/jonathan/recruit-reach/internal/fetch"
	"github.com/jonathan/recruit-reach/internal/generation"
	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/mailer"
	"github.com/jonathan/recruit-reach/internal/research"
	"github.com/jonathan/recruit-reach/internal/resume"
	"github.com/jonathan/recruit-reach/internal/search"
	"github.com/jonathan/recruit-reach/internal/session"
	"github.com/jonathan/recruit-reach/internal/types"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// LLMFactory creates a model client for the configuration resolved for one operation.
type LLMFactory func(ctx context.Context, cfg config.Config) (llm.Client, error)

// DefaultLLMFactory builds a client for the configured provider.
func DefaultLLMFactory(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	return llm.NewClient(ctx, llm.ConfigFor(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.Temperature), cfg.LLMAPIKey())
}

// History records delivered emails.
type History interface {
	RecordDispatch(ctx context.Context, d *db.Dispatch) error
	HasContacted(ctx context.Context, recipient string) (bool, error)
}

// Deps are the collaborators of a Pipeline. Only Config is required.
type Deps struct {
	Config  config.Config
	LLM     LLMFactory
	Search  search.Engine
	Pages   research.PageFetcher
	Mailer  *mailer.Mailer
	History History
	Logger  logger.Logger
}

// Pipeline runs workflow operations against sessions.
type Pipeline struct {
	cfg     config.Config
	llm     LLMFactory
	engine  search.Engine
	pages   research.PageFetcher
	mailer  *mailer.Mailer
	history History
	log     logger.Logger
	now     func() time.Time
}

// New creates a Pipeline, filling in default collaborators.
func New(d Deps) *Pipeline {
	log := d.Logger
	if log == nil {
		log = logger.NewNop()
	}
	p := &Pipeline{
		cfg:     d.Config,
		llm:     d.LLM,
		engine:  d.Search,
		pages:   d.Pages,
		mailer:  d.Mailer,
		history: d.History,
		log:     log,
		now:     time.Now,
	}
	if p.llm == nil {
		p.llm = DefaultLLMFactory
	}
	if p.pages == nil {
		p.pages = fetch.NewTextFetcher(d.Config.Research.UseBrowser, log)
	}
	if p.mailer == nil {
		p.mailer = mailer.New(mailer.SMTPFactory(d.Config.Email.SMTPServer, d.Config.Email.SMTPPort), log)
	}
	return p
}

// DefaultStrategy returns the configured research strategy, or llm.
func (p *Pipeline) DefaultStrategy() types.ResearchStrategy {
	strategy, err := types.ParseResearchStrategy(p.cfg.Research.Strategy)
	if err != nil {
		return types.StrategyLLM
	}
	return strategy
}

func (p *Pipeline) acquire(s *session.Session) error {
	if !s.TryAcquire() {
		return ErrSessionBusy
	}
	return nil
}

func (p *Pipeline) resolve(s *session.Session) config.Config {
	return s.Settings().Resolve(p.cfg)
}

func (p *Pipeline) sessionLog(s *session.Session) logger.Logger {
	return p.log.With(logger.SessionID(s.ID))
}

// UpdateSettings validates and stores per-session settings.
func (p *Pipeline) UpdateSettings(s *session.Session, settings session.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := p.acquire(s); err != nil {
		return err
	}
	defer s.Release()

	s.SetSettings(settings)
	return nil
}

// SetJob stores a job description and where it was found.
func (p *Pipeline) SetJob(s *session.Session, description, source string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return validation.Required("job_description")
	}
	if err := p.acquire(s); err != nil {
		return err
	}
	defer s.Release()

	s.SetJob(description, strings.TrimSpace(source))
	return nil
}

// SetDetails replaces the job details with values corrected by the user.
func (p *Pipeline) SetDetails(s *session.Session, details types.JobDetails) error {
	details = details.Normalize()
	if details.RecruiterEmail != "" && !validation.IsValidEmail(details.RecruiterEmail) {
		return &validation.InputError{Field: "recruiter_email", Message: "must be a valid email address"}
	}
	if err := p.acquire(s); err != nil {
		return err
	}
	defer s.Release()

	s.SetDetails(details)
	return nil
}

// Extract pulls job details from the session's job description. On a model
// failure the blank details are stored and returned along with the error.
func (p *Pipeline) Extract(ctx context.Context, s *session.Session) (types.JobDetails, error) {
	if err := p.acquire(s); err != nil {
		return types.JobDetails{}, err
	}
	defer s.Release()

	client, err := p.llm(ctx, p.resolve(s))
	if err != nil {
		return types.JobDetails{}, err
	}
	defer client.Close()

	return p.extract(ctx, s, client)
}

func (p *Pipeline) extract(ctx context.Context, s *session.Session, client llm.Client) (types.JobDetails, error) {
	jd, _ := s.Job()
	if strings.TrimSpace(jd) == "" {
		return types.JobDetails{}, validation.Required("job_description")
	}

	details, err := extraction.NewExtractor(client, p.sessionLog(s)).Extract(ctx, jd)
	s.SetDetails(details)
	return details, err
}

// Research looks up the company named in the session's job details. Research
// failures are reported in the result; the error covers setup problems only.
func (p *Pipeline) Research(ctx context.Context, s *session.Session, strategy types.ResearchStrategy) (research.Result, error) {
	if err := p.acquire(s); err != nil {
		return research.Result{}, err
	}
	defer s.Release()

	client, err := p.llm(ctx, p.resolve(s))
	if err != nil {
		return research.Result{}, err
	}
	defer client.Close()

	return p.research(ctx, s, client, strategy), nil
}

func (p *Pipeline) research(ctx context.Context, s *session.Session, client llm.Client, strategy types.ResearchStrategy) research.Result {
	if strategy == "" {
		strategy = p.DefaultStrategy()
	}

	researcher := research.NewResearcher(client, p.engine, p.pages, research.Options{
		FallbackToLLM: p.cfg.Research.FallbackToLLM,
		Summarize:     p.cfg.Research.Summarize,
		MaxAgentSteps: p.cfg.Research.MaxAgentSteps,
		MaxPageChars:  p.cfg.Research.MaxPageChars,
	}, p.sessionLog(s))

	result := researcher.Research(ctx, s.Details().CompanyName, strategy)

	stored := session.Research{Text: result.Text, Strategy: result.Strategy, Fallback: result.Fallback}
	if result.Err != nil {
		stored.Error = result.Err.Error()
	}
	s.SetResearch(stored)
	return result
}

// UploadResume parses an uploaded resume and stores it on the session.
func (p *Pipeline) UploadResume(s *session.Session, data []byte, filename string) (*resume.Document, error) {
	if err := p.acquire(s); err != nil {
		return nil, err
	}
	defer s.Release()

	doc, err := resume.LoadBytes(data, filename)
	if err != nil {
		return nil, err
	}
	s.SetResume(doc)
	p.sessionLog(s).Info("Resume uploaded",
		logger.String("filename", doc.Filename),
		logger.Int("chars", len(doc.Text)),
	)
	return doc, nil
}

// UseDefaultResume loads the resume configured under resume.path.
func (p *Pipeline) UseDefaultResume(s *session.Session) (*resume.Document, error) {
	if err := p.acquire(s); err != nil {
		return nil, err
	}
	defer s.Release()

	return p.loadDefaultResume(s)
}

func (p *Pipeline) loadDefaultResume(s *session.Session) (*resume.Document, error) {
	if p.cfg.Resume.Path == "" {
		return nil, &config.MissingSettingError{Setting: "resume.path"}
	}
	doc, err := resume.LoadFile(p.cfg.Resume.Path)
	if err != nil {
		return nil, err
	}
	s.SetResume(doc)
	return doc, nil
}

// ensureResume returns the session resume, loading the default when none was uploaded.
func (p *Pipeline) ensureResume(s *session.Session) (*resume.Document, error) {
	if doc := s.Resume(); doc != nil {
		return doc, nil
	}
	return p.loadDefaultResume(s)
}

// GenerateOptions selects what to write.
type GenerateOptions struct {
	Kind     types.ContentKind
	Feedback string
	// Strategy is used when the session has no research yet.
	Strategy types.ResearchStrategy
}

// Generate writes an email or cover letter from the session state. Missing
// research and a missing resume are filled in first.
func (p *Pipeline) Generate(ctx context.Context, s *session.Session, opts GenerateOptions) (*types.GeneratedContent, error) {
	if err := p.acquire(s); err != nil {
		return nil, err
	}
	defer s.Release()

	cfg := p.resolve(s)
	client, err := p.llm(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if s.Research() == nil {
		p.research(ctx, s, client, opts.Strategy)
	}
	if _, err := p.ensureResume(s); err != nil {
		return nil, err
	}

	return p.generate(ctx, s, client, cfg, opts)
}

func (p *Pipeline) generate(ctx context.Context, s *session.Session, client llm.Client, cfg config.Config, opts GenerateOptions) (*types.GeneratedContent, error) {
	kind := opts.Kind
	if kind == "" {
		kind = types.KindEmail
	}

	jd, source := s.Job()
	details := s.Details()

	var companyInfo string
	if r := s.Research(); r != nil {
		companyInfo = r.Text
	}
	var resumeText string
	if doc := s.Resume(); doc != nil {
		resumeText = doc.Text
	}

	content, err := generation.NewGenerator(client, p.sessionLog(s)).Generate(ctx, generation.Request{
		Kind:           kind,
		JobDescription: jd,
		CompanyInfo:    companyInfo,
		ResumeText:     resumeText,
		JobPosition:    details.JobPosition,
		CompanyName:    details.CompanyName,
		RecruiterEmail: details.RecruiterEmail,
		JobSource:      source,
		SenderName:     cfg.Email.SenderName,
		SenderEmail:    cfg.Email.SenderEmail,
		Feedback:       opts.Feedback,
	})
	if err != nil {
		return nil, err
	}

	s.SetContent(content)
	return content, nil
}

// Send emails the last generated email to the recruiter with the resume attached.
func (p *Pipeline) Send(ctx context.Context, s *session.Session) error {
	if err := p.acquire(s); err != nil {
		return err
	}
	defer s.Release()

	content := s.Content()
	if content == nil || content.Kind != types.KindEmail {
		return &validation.InputError{Field: "content", Message: "generate an email before sending"}
	}

	details := s.Details()
	if details.RecruiterEmail == "" {
		return validation.Required("recruiter_email")
	}

	cfg := p.resolve(s)
	if err := cfg.RequireEmail(); err != nil {
		return err
	}

	doc, err := p.ensureResume(s)
	if err != nil {
		return err
	}

	log := p.sessionLog(s).With(logger.String("recipient", details.RecruiterEmail))
	if p.history != nil {
		contacted, err := p.history.HasContacted(ctx, details.RecruiterEmail)
		if err != nil {
			log.Warn("Could not check outreach history", logger.Err(err))
		} else if contacted {
			log.Warn("Recipient was contacted before")
		}
	}

	err = p.mailer.Send(ctx, cfg.SenderCredentials(), types.EmailDispatchRequest{
		Recipient: details.RecruiterEmail,
		Subject:   content.Subject,
		HTMLBody:  content.BodyHTML,
		TextBody:  content.BodyText,
		Attachment: &types.Attachment{
			Data:        doc.Data,
			Filename:    doc.Filename,
			ContentType: doc.ContentType(),
		},
	})
	if err != nil {
		return err
	}
	s.MarkSent(p.now())

	if p.history != nil {
		dispatch := &db.Dispatch{
			Recipient:   details.RecruiterEmail,
			Subject:     content.Subject,
			CompanyName: details.CompanyName,
			JobPosition: details.JobPosition,
			Kind:        string(content.Kind),
		}
		if err := p.history.RecordDispatch(ctx, dispatch); err != nil {
			log.Warn("Failed to record dispatch", logger.Err(err))
		}
	}
	return nil
}

// Describe summarizes the collaborators for startup logs.
func (p *Pipeline) Describe() string {
	return fmt.Sprintf("provider=%s strategy=%s search=%t history=%t",
		p.cfg.LLM.Provider, p.DefaultStrategy(), p.engine != nil, p.history != nil)
}
