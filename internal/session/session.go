// Package session holds the private, in-memory state of one user's outreach workflow.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/jonathan/recruit-reach/internal/resume"
	"github.com/jonathan/recruit-reach/internal/types"
)

// Research is the last company research stored on a session.
type Research struct {
	Text     string                 `json:"text"`
	Strategy types.ResearchStrategy `json:"strategy"`
	Fallback bool                   `json:"fallback"`
	Error    string                 `json:"error,omitempty"`
}

// Session is one user's workflow state. Field access is synchronized;
// callers serialize whole operations with TryAcquire and Release.
type Session struct {
	ID        string
	CreatedAt time.Time

	op sync.Mutex

	mu             sync.RWMutex
	lastAccess     time.Time
	settings       Settings
	jobDescription string
	jobSource      string
	details        types.JobDetails
	research       *Research
	resume         *resume.Document
	content        *types.GeneratedContent
	sentAt         time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, lastAccess: now}
}

// TryAcquire claims the session for one operation. It reports false when
// another operation is already running.
func (s *Session) TryAcquire() bool {
	return s.op.TryLock()
}

// Release ends the operation started by a successful TryAcquire.
func (s *Session) Release() {
	s.op.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

// Settings returns the session settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings replaces the session settings.
func (s *Session) SetSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// SetJob stores a new job description. Details, research and content derived
// from the previous description are cleared.
func (s *Session) SetJob(description, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobDescription = description
	s.jobSource = source
	s.details = types.JobDetails{}
	s.research = nil
	s.content = nil
}

// Job returns the job description and where it was found.
func (s *Session) Job() (description, source string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobDescription, s.jobSource
}

// Details returns the current job details.
func (s *Session) Details() types.JobDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.details
}

// SetDetails replaces the job details, either extracted or entered by hand.
// Stored research is dropped when the company changes.
func (s *Session) SetDetails(d types.JobDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d = d.Normalize()
	if !strings.EqualFold(d.CompanyName, s.details.CompanyName) {
		s.research = nil
	}
	s.details = d
}

// Research returns the stored company research, or nil.
func (s *Session) Research() *Research {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.research == nil {
		return nil
	}
	r := *s.research
	return &r
}

// SetResearch stores company research.
func (s *Session) SetResearch(r Research) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.research = &r
}

// Resume returns the loaded resume, or nil.
func (s *Session) Resume() *resume.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resume
}

// SetResume stores a loaded resume.
func (s *Session) SetResume(doc *resume.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = doc
}

// Content returns the last generated content, or nil.
func (s *Session) Content() *types.GeneratedContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// SetContent stores newly generated content, replacing the previous value.
func (s *Session) SetContent(c *types.GeneratedContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = c
}

// MarkSent records a successful dispatch.
func (s *Session) MarkSent(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentAt = at
}

// Snapshot is a read-only view of a session for API responses.
type Snapshot struct {
	ID             string                  `json:"session_id"`
	CreatedAt      time.Time               `json:"created_at"`
	Settings       Settings                `json:"settings"`
	JobDescription string                  `json:"job_description,omitempty"`
	JobSource      string                  `json:"job_source,omitempty"`
	Details        types.JobDetails        `json:"details"`
	Research       *Research               `json:"research,omitempty"`
	ResumeFile     string                  `json:"resume_file,omitempty"`
	ResumeChars    int                     `json:"resume_chars,omitempty"`
	Content        *types.GeneratedContent `json:"content,omitempty"`
	SentAt         *time.Time              `json:"sent_at,omitempty"`
}

// Snapshot copies the current state. Secrets in the settings are redacted.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		Settings:       s.settings.Redacted(),
		JobDescription: s.jobDescription,
		JobSource:      s.jobSource,
		Details:        s.details,
		Content:        s.content,
	}
	if s.research != nil {
		r := *s.research
		snap.Research = &r
	}
	if s.resume != nil {
		snap.ResumeFile = s.resume.Filename
		snap.ResumeChars = len(s.resume.Text)
	}
	if !s.sentAt.IsZero() {
		t := s.sentAt
		snap.SentAt = &t
	}
	return snap
}
