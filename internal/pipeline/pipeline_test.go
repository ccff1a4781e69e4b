package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jonathan/recruit-reach/internal/config"
	"github.com/jonathan/recruit-reach/internal/db"
	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/mailer"
	"github.com/jonathan/recruit-reach/internal/research"
	"github.com/jonathan/recruit-reach/internal/resume"
	"github.com/jonathan/recruit-reach/internal/session"
	"github.com/jonathan/recruit-reach/internal/types"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	mu                  sync.Mutex
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	prompts             []string
	closed              int
}

func (m *MockLLMClient) record(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "Acme Rockets builds reusable launch vehicles.", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	if strings.Contains(prompt, "body_html") {
		if strings.Contains(prompt, `"subject"`) {
			return emailJSON, nil
		}
		return coverLetterJSON, nil
	}
	return detailsJSON, nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string {
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

const (
	sampleJD = "Acme Rockets is hiring a Senior Go Engineer.\nApply at careers@acmerockets.com."

	detailsJSON     = `{"company_name": "Acme Rockets", "recruiter_email": "careers@acmerockets.com", "job_position": "Senior Go Engineer"}`
	emailJSON       = `{"subject": "Senior Go Engineer", "body_text": "Hello Acme", "body_html": "<!DOCTYPE html><html><body>Hello Acme</body></html>"}`
	coverLetterJSON = `{"body_text": "Dear Hiring Manager", "body_html": "<p>Dear Hiring Manager</p>"}`
)

// recordingTransport captures sent mail.
type recordingTransport struct {
	mu    sync.Mutex
	sent  [][]byte
	fails error
}

func (r *recordingTransport) Dial(context.Context) (gomail.SendCloser, error) { return r, nil }
func (r *recordingTransport) Host() string                                    { return "smtp.test" }
func (r *recordingTransport) Close() error                                    { return nil }

func (r *recordingTransport) Send(_ string, _ []string, msg io.WriterTo) error {
	if r.fails != nil {
		return r.fails
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return err
	}
	r.mu.Lock()
	r.sent = append(r.sent, buf.Bytes())
	r.mu.Unlock()
	return nil
}

// fakeHistory implements History
type fakeHistory struct {
	contacted map[string]bool
	recorded  []db.Dispatch
}

func (f *fakeHistory) RecordDispatch(_ context.Context, d *db.Dispatch) error {
	f.recorded = append(f.recorded, *d)
	return nil
}

func (f *fakeHistory) HasContacted(_ context.Context, recipient string) (bool, error) {
	return f.contacted[recipient], nil
}

func testConfig() config.Config {
	return config.Config{
		LLM:      config.LLMConfig{Provider: "openai", Temperature: 0.2},
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test"},
		Email:    config.EmailConfig{SenderEmail: "jane@example.com", SenderName: "Jane Doe", AppPassword: "app-pass", SMTPServer: "smtp.test", SMTPPort: 587},
		Research: config.ResearchConfig{Strategy: "llm", FallbackToLLM: true},
	}
}

type harness struct {
	pipeline  *Pipeline
	client    *MockLLMClient
	transport *recordingTransport
	history   *fakeHistory
	store     *session.Store
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{
		client:    &MockLLMClient{},
		transport: &recordingTransport{},
		history:   &fakeHistory{contacted: map[string]bool{}},
		store:     session.NewStore(0, nil),
	}
	h.pipeline = New(Deps{
		Config: cfg,
		LLM: func(context.Context, config.Config) (llm.Client, error) {
			return h.client, nil
		},
		Mailer:  mailer.New(func(types.SenderCredentials) mailer.Transport { return h.transport }, nil),
		History: h.history,
	})
	return h
}

func (h *harness) readySession(t *testing.T) *session.Session {
	t.Helper()
	s := h.store.Create()
	require.NoError(t, h.pipeline.SetJob(s, sampleJD, "LinkedIn"))
	s.SetResume(&resume.Document{Filename: "jane.pdf", Format: resume.FormatPDF, Text: "Jane Doe, Go engineer", Data: []byte("%PDF-1.4")})
	return s
}

func buildDOCX(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRun_FullChain(t *testing.T) {
	h := newHarness(t, testConfig())
	s := h.readySession(t)

	var events []ProgressEvent
	content, err := h.pipeline.Run(context.Background(), s, RunOptions{
		OnProgress: func(e ProgressEvent) { events = append(events, e) },
	})
	require.NoError(t, err)

	assert.Equal(t, types.KindEmail, content.Kind)
	assert.Equal(t, "Senior Go Engineer", content.Subject)
	assert.Same(t, content, s.Content())

	assert.Equal(t, types.JobDetails{
		CompanyName:    "Acme Rockets",
		RecruiterEmail: "careers@acmerockets.com",
		JobPosition:    "Senior Go Engineer",
	}, s.Details())
	require.NotNil(t, s.Research())
	assert.Equal(t, "Acme Rockets builds reusable launch vehicles.", s.Research().Text)

	completed := map[string]bool{}
	for _, e := range events {
		assert.Equal(t, s.ID, e.SessionID)
		if e.Category == CategoryCompleted {
			completed[e.Step] = true
		}
	}
	for _, step := range []string{StepExtract, StepResearch, StepResume, StepGenerate} {
		assert.True(t, completed[step], "missing completed event for %s", step)
	}
	assert.Equal(t, StepGenerate, events[len(events)-1].Step)

	prompts := h.client.Prompts()
	generationPrompt := prompts[len(prompts)-1]
	assert.Contains(t, generationPrompt, "Jane Doe, Go engineer")
	assert.Contains(t, generationPrompt, "Acme Rockets builds reusable launch vehicles.")
	assert.Contains(t, generationPrompt, "JOB SOURCE: LinkedIn")
	assert.Equal(t, 1, h.client.closed)
}

func TestRun_KeepsExistingDetails(t *testing.T) {
	h := newHarness(t, testConfig())
	s := h.readySession(t)
	require.NoError(t, h.pipeline.SetDetails(s, types.JobDetails{
		CompanyName:    "Globex",
		RecruiterEmail: "hr@globex.com",
		JobPosition:    "Platform Engineer",
	}))

	_, err := h.pipeline.Run(context.Background(), s, RunOptions{Kind: types.KindCoverLetter})
	require.NoError(t, err)

	assert.Equal(t, "Globex", s.Details().CompanyName)
	for _, p := range h.client.Prompts() {
		assert.NotContains(t, p, "leave it blank", "extraction skipped when details exist")
	}
	assert.Equal(t, types.KindCoverLetter, s.Content().Kind)
}

func TestRun_ExtractionFailureStopsAtGeneration(t *testing.T) {
	h := newHarness(t, testConfig())
	h.client.GenerateJSONFunc = func(context.Context, string, llm.ModelTier) (string, error) {
		return "", &llm.APICallError{Provider: "openai", Model: "mock-model", Cause: errors.New("timeout")}
	}
	s := h.readySession(t)

	var warnings []string
	_, err := h.pipeline.Run(context.Background(), s, RunOptions{
		OnProgress: func(e ProgressEvent) {
			if e.Category == CategoryWarning {
				warnings = append(warnings, e.Step)
			}
		},
	})

	var inputErr *validation.InputError
	require.True(t, errors.As(err, &inputErr), "got %v", err)
	assert.Contains(t, warnings, StepExtract)
	assert.Contains(t, warnings, StepResearch, "no company to research")
	assert.True(t, s.Details().IsEmpty())
}

func TestRun_ResumeFailureDoesNotCancelExtraction(t *testing.T) {
	cfg := testConfig()
	cfg.Resume.Path = filepath.Join(t.TempDir(), "missing.pdf")
	h := newHarness(t, cfg)

	var extractionCanceled bool
	h.client.GenerateJSONFunc = func(ctx context.Context, _ string, _ llm.ModelTier) (string, error) {
		select {
		case <-ctx.Done():
			extractionCanceled = true
			return "", ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
		return detailsJSON, nil
	}

	s := h.store.Create()
	require.NoError(t, h.pipeline.SetJob(s, sampleJD, "LinkedIn"))

	var started []string
	_, err := h.pipeline.Run(context.Background(), s, RunOptions{
		OnProgress: func(e ProgressEvent) {
			if e.Category == CategoryStarted {
				started = append(started, e.Step)
			}
		},
	})

	require.ErrorIs(t, err, resume.ErrNotFound)
	assert.False(t, extractionCanceled, "extraction finishes before the resume is loaded")
	assert.Equal(t, "Acme Rockets", s.Details().CompanyName)
	require.NotNil(t, s.Research())
	assert.Equal(t, []string{StepExtract, StepResearch, StepResume}, started)
	assert.Nil(t, s.Content())
}

func TestRun_ReusesStoredResearch(t *testing.T) {
	h := newHarness(t, testConfig())
	lookups := 0
	h.client.GenerateContentFunc = func(context.Context, string, llm.ModelTier) (string, error) {
		lookups++
		return fmt.Sprintf("Acme overview #%d", lookups), nil
	}
	s := h.readySession(t)

	_, err := h.pipeline.Run(context.Background(), s, RunOptions{})
	require.NoError(t, err)

	var messages []string
	_, err = h.pipeline.Run(context.Background(), s, RunOptions{
		Feedback:   "shorter please",
		OnProgress: func(e ProgressEvent) { messages = append(messages, e.Step+": "+e.Message) },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, lookups, "feedback rerun keeps the first research")
	assert.Contains(t, messages, StepResearch+": Using earlier llm research")

	prompts := h.client.Prompts()
	last := prompts[len(prompts)-1]
	assert.Contains(t, last, "Acme overview #1")
	assert.Contains(t, last, "shorter please")
}

func TestRun_Preconditions(t *testing.T) {
	t.Run("busy", func(t *testing.T) {
		h := newHarness(t, testConfig())
		s := h.readySession(t)
		require.True(t, s.TryAcquire())
		defer s.Release()

		_, err := h.pipeline.Run(context.Background(), s, RunOptions{})
		assert.ErrorIs(t, err, ErrSessionBusy)
	})

	t.Run("no job", func(t *testing.T) {
		h := newHarness(t, testConfig())
		_, err := h.pipeline.Run(context.Background(), h.store.Create(), RunOptions{})
		var inputErr *validation.InputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "job_description", inputErr.Field)
	})

	t.Run("no resume", func(t *testing.T) {
		h := newHarness(t, testConfig())
		s := h.store.Create()
		require.NoError(t, h.pipeline.SetJob(s, sampleJD, "LinkedIn"))

		_, err := h.pipeline.Run(context.Background(), s, RunOptions{})
		var missing *config.MissingSettingError
		require.True(t, errors.As(err, &missing), "got %v", err)
		assert.Equal(t, "resume.path", missing.Setting)
	})

	t.Run("no api key", func(t *testing.T) {
		cfg := testConfig()
		cfg.OpenAI.APIKey = ""
		p := New(Deps{Config: cfg})
		s := session.NewStore(0, nil).Create()
		require.NoError(t, p.SetJob(s, sampleJD, ""))

		_, err := p.Run(context.Background(), s, RunOptions{})
		var missing *config.MissingSettingError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "openai.api_key", missing.Setting)
	})
}

func TestExtract_StoresBlankOnFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.client.GenerateJSONFunc = func(context.Context, string, llm.ModelTier) (string, error) {
		return "not json at all", nil
	}
	s := h.readySession(t)
	s.SetDetails(types.JobDetails{CompanyName: "Stale"})

	details, err := h.pipeline.Extract(context.Background(), s)
	require.Error(t, err)
	assert.True(t, details.IsEmpty())
	assert.True(t, s.Details().IsEmpty())
}

func TestResearch_Strategies(t *testing.T) {
	cfg := testConfig()
	cfg.Research.FallbackToLLM = false
	h := newHarness(t, cfg)
	s := h.readySession(t)
	require.NoError(t, h.pipeline.SetDetails(s, types.JobDetails{CompanyName: "Acme Rockets"}))

	result, err := h.pipeline.Research(context.Background(), s, types.StrategySearch)
	require.NoError(t, err)
	assert.Error(t, result.Err, "search needs an engine")
	assert.Equal(t, research.FailureMessage("Acme Rockets"), result.Text)
	assert.NotEmpty(t, s.Research().Error)

	result, err = h.pipeline.Research(context.Background(), s, "")
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, types.StrategyLLM, result.Strategy)
	assert.Empty(t, s.Research().Error)
}

func TestGenerate_FeedbackRegeneration(t *testing.T) {
	h := newHarness(t, testConfig())
	s := h.readySession(t)
	require.NoError(t, h.pipeline.SetDetails(s, types.JobDetails{
		CompanyName:    "Acme Rockets",
		RecruiterEmail: "careers@acmerockets.com",
		JobPosition:    "Senior Go Engineer",
	}))

	first, err := h.pipeline.Generate(context.Background(), s, GenerateOptions{Kind: types.KindEmail})
	require.NoError(t, err)

	second, err := h.pipeline.Generate(context.Background(), s, GenerateOptions{Kind: types.KindEmail, Feedback: "Mention my Kubernetes work"})
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Same(t, second, s.Content())

	prompts := h.client.Prompts()
	assert.Contains(t, prompts[len(prompts)-1], "Mention my Kubernetes work")
	assert.NotContains(t, prompts[len(prompts)-2], "Mention my Kubernetes work")
}

func TestSend(t *testing.T) {
	h := newHarness(t, testConfig())
	s := h.readySession(t)

	_, err := h.pipeline.Run(context.Background(), s, RunOptions{})
	require.NoError(t, err)

	require.NoError(t, h.pipeline.Send(context.Background(), s))
	require.Len(t, h.transport.sent, 1)
	raw := string(h.transport.sent[0])
	assert.Contains(t, raw, "careers@acmerockets.com")
	assert.Contains(t, raw, `filename="jane.pdf"`)

	require.Len(t, h.history.recorded, 1)
	assert.Equal(t, "Acme Rockets", h.history.recorded[0].CompanyName)
	assert.NotNil(t, s.Snapshot().SentAt)
}

func TestSend_Preconditions(t *testing.T) {
	t.Run("nothing generated", func(t *testing.T) {
		h := newHarness(t, testConfig())
		err := h.pipeline.Send(context.Background(), h.readySession(t))
		var inputErr *validation.InputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "content", inputErr.Field)
	})

	t.Run("cover letter", func(t *testing.T) {
		h := newHarness(t, testConfig())
		s := h.readySession(t)
		s.SetDetails(types.JobDetails{RecruiterEmail: "careers@acmerockets.com"})
		s.SetContent(&types.GeneratedContent{Kind: types.KindCoverLetter, BodyHTML: "<p>x</p>"})

		var inputErr *validation.InputError
		require.True(t, errors.As(h.pipeline.Send(context.Background(), s), &inputErr))
	})

	t.Run("missing sender password", func(t *testing.T) {
		cfg := testConfig()
		cfg.Email.AppPassword = ""
		h := newHarness(t, cfg)
		s := h.readySession(t)
		s.SetDetails(types.JobDetails{RecruiterEmail: "careers@acmerockets.com"})
		s.SetContent(&types.GeneratedContent{Kind: types.KindEmail, Subject: "Hi", BodyHTML: "<!DOCTYPE html>"})

		var missing *config.MissingSettingError
		require.True(t, errors.As(h.pipeline.Send(context.Background(), s), &missing))
		assert.Equal(t, "email.app_password", missing.Setting)

		require.NoError(t, h.pipeline.UpdateSettings(s, session.Settings{AppPassword: "from-panel"}))
		assert.NoError(t, h.pipeline.Send(context.Background(), s))
	})

	t.Run("transport failure", func(t *testing.T) {
		h := newHarness(t, testConfig())
		h.transport.fails = errors.New("550 rejected")
		s := h.readySession(t)
		s.SetDetails(types.JobDetails{RecruiterEmail: "careers@acmerockets.com"})
		s.SetContent(&types.GeneratedContent{Kind: types.KindEmail, Subject: "Hi", BodyHTML: "<!DOCTYPE html>"})

		var sendErr *mailer.SendError
		require.True(t, errors.As(h.pipeline.Send(context.Background(), s), &sendErr))
		assert.Empty(t, h.history.recorded)
		assert.Nil(t, s.Snapshot().SentAt)
	})
}

func TestSetDetails_InvalidEmail(t *testing.T) {
	h := newHarness(t, testConfig())
	err := h.pipeline.SetDetails(h.store.Create(), types.JobDetails{RecruiterEmail: "not-an-email"})
	var inputErr *validation.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "recruiter_email", inputErr.Field)
}

func TestResumeOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.docx")
	require.NoError(t, os.WriteFile(path, buildDOCX(t, "Default resume text"), 0644))

	cfg := testConfig()
	cfg.Resume.Path = path
	h := newHarness(t, cfg)
	s := h.store.Create()

	doc, err := h.pipeline.UseDefaultResume(s)
	require.NoError(t, err)
	assert.Equal(t, "Default resume text", doc.Text)

	_, err = h.pipeline.UploadResume(s, []byte("{\\rtf1}"), "resume.rtf")
	assert.ErrorIs(t, err, resume.ErrUnsupportedFormat)
	assert.Same(t, doc, s.Resume(), "failed upload keeps the previous resume")

	uploaded, err := h.pipeline.UploadResume(s, buildDOCX(t, "Uploaded resume"), "mine.docx")
	require.NoError(t, err)
	assert.Same(t, uploaded, s.Resume())
}
