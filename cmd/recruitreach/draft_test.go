package main

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruit-reach/internal/config"
	"github.com/jonathan/recruit-reach/internal/jobsource"
	"github.com/jonathan/recruit-reach/internal/llm"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/pipeline"
	"github.com/jonathan/recruit-reach/internal/types"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	mu      sync.Mutex
	prompts []string
}

func (m *MockLLMClient) record(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
}

func (m *MockLLMClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	m.record(prompt)
	return "Acme Rockets builds reusable launch vehicles.", nil
}

func (m *MockLLMClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	m.record(prompt)
	if strings.Contains(prompt, "body_html") {
		if strings.Contains(prompt, `"subject"`) {
			return `{"subject": "Senior Go Engineer", "body_text": "Hello Acme", "body_html": "<!DOCTYPE html><html><body>Hello Acme</body></html>"}`, nil
		}
		return `{"body_text": "Dear Hiring Manager", "body_html": "<p>Dear Hiring Manager</p>"}`, nil
	}
	if strings.Contains(prompt, "Globex") {
		return `{"company_name": "Globex", "recruiter_email": "", "job_position": "SRE"}`, nil
	}
	return `{"company_name": "Acme Rockets", "recruiter_email": "careers@acmerockets.com", "job_position": "Senior Go Engineer"}`, nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }
func (m *MockLLMClient) Close() error                    { return nil }

func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func useMockLLM(t *testing.T) *MockLLMClient {
	t.Helper()
	client := &MockLLMClient{}
	previous := llmFactory
	llmFactory = func(context.Context, config.Config) (llm.Client, error) { return client, nil }
	t.Cleanup(func() { llmFactory = previous })
	return client
}

// isolateEnv keeps outside services out of command tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "RECRUITREACH_DATABASE_URL",
		"GOOGLE_SEARCH_API_KEY", "RECRUITREACH_SEARCH_API_KEY",
		"GOOGLE_SEARCH_CX", "RECRUITREACH_SEARCH_CX",
		"RECRUITREACH_RESUME_PATH",
	} {
		t.Setenv(key, "")
	}
}

func resetDraftFlags() {
	draftJob, draftResume, draftKind, draftStrategy = "", "", "email", ""
	draftSource, draftFeedback, draftAPIKey, draftOut = "", "", "", ""
	draftSend = false
	configPath = config.DefaultConfigPath
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

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetDraftFlags()
	t.Cleanup(resetDraftFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestDraftCommand_WritesDrafts(t *testing.T) {
	client := useMockLLM(t)
	isolateEnv(t)
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[openai]
api_key = "sk-test"

[email]
sender_email = "jane@example.com"
sender_name = "Jane Doe"

[research]
strategy = "llm"

[log]
level = "error"
`), 0644))

	jobPath := filepath.Join(dir, "jobs.txt")
	require.NoError(t, os.WriteFile(jobPath, []byte(
		jobsource.Separator+"\nAcme Rockets is hiring a Senior Go Engineer. Apply at careers@acmerockets.com.\n"+
			jobsource.Separator+"\nGlobex needs an SRE.\n"), 0644))

	resumePath := filepath.Join(dir, "jane.docx")
	require.NoError(t, os.WriteFile(resumePath, buildDOCX(t, "Jane Doe, Go engineer"), 0644))

	outDir := filepath.Join(dir, "out")
	output, err := executeRoot(t, "draft",
		"--config", cfgPath,
		"--job", jobPath,
		"--resume", resumePath,
		"--source", "LinkedIn",
		"--feedback", "mention my Kubernetes work",
		"--out", outDir,
	)

	// The Globex posting names no recruiter email, so its email draft is rejected
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 drafts failed")
	assert.Contains(t, output, "=== Job 1 of 2 ===")
	assert.Contains(t, output, "Subject: Senior Go Engineer")
	assert.Contains(t, output, "Error: job 2:")

	txt, err := os.ReadFile(filepath.Join(outDir, "1-acme-rockets-senior-go-engineer-email.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(txt), "Subject: Senior Go Engineer")
	assert.Contains(t, string(txt), "Hello Acme")

	html, err := os.ReadFile(filepath.Join(outDir, "1-acme-rockets-senior-go-engineer-email.html"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(html), "<!DOCTYPE html>"))

	var sawFeedback bool
	for _, prompt := range client.Prompts() {
		if strings.Contains(prompt, "mention my Kubernetes work") {
			sawFeedback = true
		}
	}
	assert.True(t, sawFeedback, "feedback should reach the model verbatim")
}

func TestDraftCommand_CoverLetter(t *testing.T) {
	useMockLLM(t)
	isolateEnv(t)
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[openai]\napi_key = \"sk-test\"\n[log]\nlevel = \"error\"\n"), 0644))
	jobPath := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(jobPath, []byte("Acme Rockets is hiring a Senior Go Engineer."), 0644))
	resumePath := filepath.Join(dir, "jane.docx")
	require.NoError(t, os.WriteFile(resumePath, buildDOCX(t, "Jane Doe"), 0644))

	output, err := executeRoot(t, "draft", "--config", cfgPath, "--job", jobPath, "--resume", resumePath, "--kind", "cover-letter")
	require.NoError(t, err)
	assert.Contains(t, output, "Dear Hiring Manager")
	assert.NotContains(t, output, "Subject:")
}

func TestDraftCommand_FlagErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing job", args: []string{"draft"}, wantErr: "--job is required"},
		{name: "bad kind", args: []string{"draft", "--job", "x.txt", "--kind", "haiku"}, wantErr: "unknown content kind"},
		{name: "bad strategy", args: []string{"draft", "--job", "x.txt", "--strategy", "crystal-ball"}, wantErr: "unknown research strategy"},
		{name: "send cover letter", args: []string{"draft", "--job", "x.txt", "--kind", "cover_letter", "--send"}, wantErr: "--send requires --kind email"},
		{name: "missing resume", args: []string{"draft", "--job", "x.txt", "--resume", "/nonexistent/cv.pdf"}, wantErr: "failed to read resume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeRoot(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadPostings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.txt")
	require.NoError(t, os.WriteFile(path, []byte("First job\n"+jobsource.Separator+"\nSecond job\n"), 0644))

	postings, err := loadPostings(context.Background(), path, "Indeed", false, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, "First job", postings[0].Text)
	assert.Equal(t, "Indeed", postings[1].Source)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><main><h1>Platform Engineer</h1><p>` +
			strings.Repeat("Build reliable systems with Go. ", 30) + `</p></main></body></html>`))
	}))
	defer srv.Close()

	postings, err = loadPostings(context.Background(), srv.URL+"/jobs/1", "Referral", false, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Contains(t, postings[0].Text, "Platform Engineer")
	assert.Equal(t, "Referral", postings[0].Source)
	assert.Equal(t, srv.URL+"/jobs/1", postings[0].URL)

	_, err = loadPostings(context.Background(), filepath.Join(dir, "missing.txt"), "", false, logger.NewNop())
	assert.Error(t, err)
}

func TestWriteOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	content := &types.GeneratedContent{
		Kind:     types.KindEmail,
		Subject:  "Hello",
		BodyText: "Plain body",
		BodyHTML: "<!DOCTYPE html><p>Hi</p>",
	}

	paths, err := writeOutputs(dir, "1-acme-email", content)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	txt, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "Subject: Hello\n\nPlain body\n", string(txt))

	html, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, content.BodyHTML, string(html))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"Acme Rockets", "Senior Go Engineer"}, "acme-rockets-senior-go-engineer"},
		{[]string{"C++ Co.", ""}, "c-co"},
		{[]string{"", ""}, "draft"},
		{[]string{"Zürich AG", "Dev/Ops"}, "zürich-ag-dev-ops"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.parts...))
	}
}

func TestOutputBase(t *testing.T) {
	assert.Equal(t, "1", outputBase(0, 1))
	assert.Equal(t, "03", outputBase(2, 12))
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	printer := progressPrinter(&buf)
	printer(pipeline.ProgressEvent{Step: pipeline.StepExtract, Category: pipeline.CategoryStarted, Message: "Extracting job details"})
	printer(pipeline.ProgressEvent{Step: pipeline.StepResearch, Category: pipeline.CategoryWarning, Message: "Unable to retrieve"})

	assert.Contains(t, buf.String(), "  [extract] Extracting job details")
	assert.Contains(t, buf.String(), "! [research] Unable to retrieve")
}
