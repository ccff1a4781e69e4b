package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/recruit-reach/internal/db"
	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/pipeline"
	"github.com/jonathan/recruit-reach/internal/resume"
	"github.com/jonathan/recruit-reach/internal/server/middleware"
	"github.com/jonathan/recruit-reach/internal/session"
	"github.com/jonathan/recruit-reach/internal/types"
)

const (
	maxJSONBytes   = 1 << 20
	maxUploadBytes = 10 << 20
)

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JobRequest is the body of PUT /sessions/{id}/job.
type JobRequest struct {
	JobDescription string `json:"job_description"`
	JobSource      string `json:"job_source,omitempty"`
}

// ExtractResponse carries the extracted details. Warning is set when the
// model failed and the details are blank.
type ExtractResponse struct {
	Details types.JobDetails `json:"details"`
	Warning string           `json:"warning,omitempty"`
}

// ResearchRequest is the optional body of POST /sessions/{id}/research.
type ResearchRequest struct {
	Strategy string `json:"strategy,omitempty"`
}

// ResearchResponse reports a research result.
type ResearchResponse struct {
	Text     string                 `json:"text"`
	Strategy types.ResearchStrategy `json:"strategy"`
	Fallback bool                   `json:"fallback"`
	Warning  string                 `json:"warning,omitempty"`
}

// ResumeResponse describes the resume stored on a session.
type ResumeResponse struct {
	Filename string        `json:"filename"`
	Format   resume.Format `json:"format"`
	Chars    int           `json:"chars"`
}

// GenerateRequest is the body of both generate endpoints.
type GenerateRequest struct {
	Kind     string `json:"kind,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// SendResponse confirms a dispatched email.
type SendResponse struct {
	Status    string     `json:"status"`
	Recipient string     `json:"recipient"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// OutreachResponse lists past dispatches, newest first.
type OutreachResponse struct {
	Dispatches []db.Dispatch `json:"dispatches"`
	Count      int           `json:"count"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()

	token, expiresAt, err := s.jwtService.GenerateToken(sess.ID)
	if err != nil {
		_ = s.sessions.Delete(sess.ID)
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, CreateSessionResponse{
		SessionID: sess.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// session loads the session the request's token belongs to.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := middleware.GetSessionID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.GetSessionID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var settings session.Settings
	if err := decodeJSON(w, r, &settings, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.pipeline.UpdateSettings(sess, settings); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Settings().Redacted())
}

func (s *Server) handleSetJob(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req JobRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.pipeline.SetJob(sess, req.JobDescription, req.JobSource); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	details, err := s.pipeline.Extract(r.Context(), sess)
	if err != nil {
		if !isUpstreamFailure(err) {
			s.writeError(w, r, err)
			return
		}
		s.log.Warn("Extraction failed, returning blank details",
			logger.SessionID(sess.ID), logger.Err(err))
		s.jsonResponse(w, http.StatusOK, ExtractResponse{Details: details, Warning: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, ExtractResponse{Details: details})
}

func (s *Server) handleSetDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var details types.JobDetails
	if err := decodeJSON(w, r, &details, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.pipeline.SetDetails(sess, details); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Details())
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req ResearchRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	strategy, err := parseStrategy(req.Strategy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.pipeline.Research(r.Context(), sess, strategy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := ResearchResponse{Text: result.Text, Strategy: result.Strategy, Fallback: result.Fallback}
	if !result.OK() {
		resp.Warning = result.Err.Error()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleResume stores an uploaded resume, or the configured default when the
// request is not a multipart upload.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		doc *resume.Document
		err error
	)
	if isMultipart(r) {
		doc, err = s.uploadResume(w, r, sess)
	} else {
		doc, err = s.pipeline.UseDefaultResume(sess)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, ResumeResponse{
		Filename: doc.Filename,
		Format:   doc.Format,
		Chars:    len(doc.Text),
	})
}

func (s *Server) uploadResume(w http.ResponseWriter, r *http.Request, sess *session.Session) (*resume.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, &ErrValidation{Field: "file", Message: err.Error()}
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &ErrValidation{Field: "file", Message: "a resume file is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &ErrValidation{Field: "file", Message: err.Error()}
	}
	return s.pipeline.UploadResume(sess, data, header.Filename)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	opts, err := s.generateOptions(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	content, err := s.pipeline.Generate(r.Context(), sess, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, content)
}

// handleGenerateStream runs the whole chain and streams progress as SSE.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	opts, err := s.generateOptions(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	content, err := s.pipeline.Run(r.Context(), sess, pipeline.RunOptions{
		Kind:     opts.Kind,
		Strategy: opts.Strategy,
		Feedback: opts.Feedback,
		OnProgress: func(event pipeline.ProgressEvent) {
			if werr := sse.WriteProgress(event); werr != nil {
				s.log.Debug("Dropped progress event", logger.SessionID(sess.ID), logger.Err(werr))
			}
		},
	})
	if err != nil {
		status := HTTPStatus(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			s.log.Error("Streaming generation failed", logger.SessionID(sess.ID), logger.Err(err))
			message = "internal server error"
		}
		sse.WriteError(status, message)
		sse.WriteComplete(sess.ID, "failed")
		return
	}

	sse.WriteEvent(eventContent, content) //nolint:errcheck
	sse.WriteComplete(sess.ID, "completed")
}

func (s *Server) generateOptions(w http.ResponseWriter, r *http.Request) (pipeline.GenerateOptions, error) {
	var req GenerateRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		return pipeline.GenerateOptions{}, err
	}

	kind, err := types.ParseContentKind(req.Kind)
	if err != nil {
		return pipeline.GenerateOptions{}, &ErrValidation{Field: "kind", Message: err.Error()}
	}
	strategy, err := parseStrategy(req.Strategy)
	if err != nil {
		return pipeline.GenerateOptions{}, err
	}

	return pipeline.GenerateOptions{Kind: kind, Feedback: req.Feedback, Strategy: strategy}, nil
}

// parseStrategy returns "" for an empty value so the configured default applies.
func parseStrategy(value string) (types.ResearchStrategy, error) {
	if value == "" {
		return "", nil
	}
	strategy, err := types.ParseResearchStrategy(value)
	if err != nil {
		return "", &ErrValidation{Field: "strategy", Message: err.Error()}
	}
	return strategy, nil
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := s.pipeline.Send(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}

	snap := sess.Snapshot()
	s.jsonResponse(w, http.StatusOK, SendResponse{
		Status:    "sent",
		Recipient: snap.Details.RecruiterEmail,
		SentAt:    snap.SentAt,
	})
}

func (s *Server) handleListOutreach(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.errorResponse(w, http.StatusNotFound, "outreach history is not configured")
		return
	}

	limit := db.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	dispatches, err := s.history.ListDispatches(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if dispatches == nil {
		dispatches = []db.Dispatch{}
	}
	s.jsonResponse(w, http.StatusOK, OutreachResponse{Dispatches: dispatches, Count: len(dispatches)})
}
