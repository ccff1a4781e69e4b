package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruit-reach/internal/jobsource"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/pipeline"
	"github.com/jonathan/recruit-reach/internal/session"
	"github.com/jonathan/recruit-reach/internal/types"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft outreach for one or more job descriptions",
	Long: `Runs the whole pipeline once: extract job details, research the company,
load the resume and generate an email or cover letter.

--job takes a text file or a job posting URL. A file may hold several job
descriptions, each starting with a line "=== JD START ===".`,
	RunE: runDraft,
}

var (
	draftJob      string
	draftResume   string
	draftKind     string
	draftStrategy string
	draftSource   string
	draftFeedback string
	draftAPIKey   string
	draftOut      string
	draftSend     bool
)

func init() {
	draftCmd.Flags().StringVarP(&draftJob, "job", "j", "", "Job description file or posting URL (required)")
	draftCmd.Flags().StringVarP(&draftResume, "resume", "r", "", "Resume file, PDF or DOCX (defaults to resume.path)")
	draftCmd.Flags().StringVarP(&draftKind, "kind", "k", "email", "What to write: email or cover-letter")
	draftCmd.Flags().StringVar(&draftStrategy, "strategy", "", "Company research strategy: llm, search or agent (defaults to research.strategy)")
	draftCmd.Flags().StringVar(&draftSource, "source", "", "Where the job was found, e.g. LinkedIn")
	draftCmd.Flags().StringVar(&draftFeedback, "feedback", "", "Extra instructions applied to the draft")
	draftCmd.Flags().StringVar(&draftAPIKey, "api-key", "", "Model API key (overrides the config file)")
	draftCmd.Flags().StringVarP(&draftOut, "out", "o", "", "Directory to write .txt and .html drafts into")
	draftCmd.Flags().BoolVar(&draftSend, "send", false, "Email each draft to the recruiter with the resume attached")

	rootCmd.AddCommand(draftCmd)
}

// draftRequest is the validated form of the draft flags.
type draftRequest struct {
	kind       types.ContentKind
	strategy   types.ResearchStrategy
	feedback   string
	apiKey     string
	resumeName string
	resumeData []byte
	outDir     string
	send       bool
}

func runDraft(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(draftJob) == "" {
		return fmt.Errorf("--job is required")
	}

	req := draftRequest{feedback: draftFeedback, apiKey: draftAPIKey, outDir: draftOut, send: draftSend}

	var err error
	if req.kind, err = types.ParseContentKind(draftKind); err != nil {
		return err
	}
	if draftStrategy != "" {
		if req.strategy, err = types.ParseResearchStrategy(draftStrategy); err != nil {
			return err
		}
	}
	if req.send && req.kind != types.KindEmail {
		return fmt.Errorf("--send requires --kind email")
	}
	if draftResume != "" {
		if req.resumeData, err = os.ReadFile(draftResume); err != nil {
			return fmt.Errorf("failed to read resume: %w", err)
		}
		req.resumeName = filepath.Base(draftResume)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	postings, err := loadPostings(ctx, draftJob, draftSource, cfg.Research.UseBrowser, a.log)
	if err != nil {
		return err
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	store := session.NewStore(0, a.log)

	failed := 0
	for i, posting := range postings {
		if len(postings) > 1 {
			_, _ = fmt.Fprintf(out, "\n=== Job %d of %d ===\n", i+1, len(postings))
		}
		if err := draftOne(ctx, a.pipeline, store, req, posting, outputBase(i, len(postings)), out, errOut); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: job %d: %v\n", i+1, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d drafts failed", failed, len(postings))
	}
	return nil
}

// draftOne runs the pipeline for a single posting in its own session.
func draftOne(ctx context.Context, p *pipeline.Pipeline, store *session.Store, req draftRequest,
	posting jobsource.Posting, base string, out, errOut io.Writer) error {

	s := store.Create()
	defer store.Delete(s.ID) //nolint:errcheck

	if req.apiKey != "" {
		if err := p.UpdateSettings(s, session.Settings{APIKey: req.apiKey}); err != nil {
			return err
		}
	}
	if err := p.SetJob(s, posting.Text, posting.Source); err != nil {
		return err
	}
	if req.resumeData != nil {
		if _, err := p.UploadResume(s, req.resumeData, req.resumeName); err != nil {
			return err
		}
	}

	content, err := p.Run(ctx, s, pipeline.RunOptions{
		Kind:       req.kind,
		Strategy:   req.strategy,
		Feedback:   req.feedback,
		OnProgress: progressPrinter(errOut),
	})
	if err != nil {
		return err
	}

	details := s.Details()
	printContent(out, details, content)

	if req.outDir != "" {
		name := base + "-" + slugify(details.CompanyName, details.JobPosition) + "-" + strings.ReplaceAll(string(content.Kind), "_", "-")
		paths, err := writeOutputs(req.outDir, name, content)
		if err != nil {
			return err
		}
		for _, path := range paths {
			_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
		}
	}

	if req.send {
		if err := p.Send(ctx, s); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Sent to %s\n", details.RecruiterEmail)
	}
	return nil
}

// loadPostings reads job descriptions from a URL or a file.
func loadPostings(ctx context.Context, job, source string, useBrowser bool, log logger.Logger) ([]jobsource.Posting, error) {
	if strings.HasPrefix(job, "http://") || strings.HasPrefix(job, "https://") {
		posting, err := jobsource.FromURL(ctx, job, useBrowser, log)
		if err != nil {
			return nil, err
		}
		if source != "" {
			posting.Source = source
		}
		return []jobsource.Posting{*posting}, nil
	}

	texts, err := jobsource.LoadFile(job)
	if err != nil {
		return nil, err
	}
	postings := make([]jobsource.Posting, len(texts))
	for i, text := range texts {
		postings[i] = jobsource.Posting{Text: text, Source: source}
	}
	return postings, nil
}

func progressPrinter(w io.Writer) pipeline.ProgressCallback {
	return func(event pipeline.ProgressEvent) {
		marker := "  "
		switch event.Category {
		case pipeline.CategoryCompleted:
			marker = "✓ "
		case pipeline.CategoryWarning:
			marker = "! "
		}
		_, _ = fmt.Fprintf(w, "%s[%s] %s\n", marker, event.Step, event.Message)
	}
}

func printContent(w io.Writer, details types.JobDetails, content *types.GeneratedContent) {
	_, _ = fmt.Fprintf(w, "Company:   %s\n", orDash(details.CompanyName))
	_, _ = fmt.Fprintf(w, "Position:  %s\n", orDash(details.JobPosition))
	_, _ = fmt.Fprintf(w, "Recruiter: %s\n\n", orDash(details.RecruiterEmail))
	if content.Subject != "" {
		_, _ = fmt.Fprintf(w, "Subject: %s\n\n", content.Subject)
	}
	_, _ = fmt.Fprintln(w, content.BodyText)
}

// writeOutputs writes name.txt and name.html into dir and returns their paths.
func writeOutputs(dir, name string, content *types.GeneratedContent) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	text := content.BodyText
	if content.Subject != "" {
		text = "Subject: " + content.Subject + "\n\n" + text
	}

	files := []struct {
		path string
		body string
	}{
		{filepath.Join(dir, name+".txt"), text + "\n"},
		{filepath.Join(dir, name+".html"), content.BodyHTML},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.body), 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		paths = append(paths, f.path)
	}
	return paths, nil
}

func outputBase(index, total int) string {
	width := len(fmt.Sprint(total))
	return fmt.Sprintf("%0*d", width, index+1)
}

// slugify joins parts into a lowercase file name fragment.
func slugify(parts ...string) string {
	var b strings.Builder
	dash := false
	for _, part := range parts {
		for _, r := range strings.ToLower(part) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
				dash = false
			} else if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "draft"
	}
	return slug
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
