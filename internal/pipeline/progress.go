package pipeline

import "sync"

// Progress categories
const (
	CategoryStarted   = "started"
	CategoryCompleted = "completed"
	CategoryWarning   = "warning"
)

// Pipeline steps reported through progress events
const (
	StepExtract  = "extract"
	StepResearch = "research"
	StepResume   = "resume"
	StepGenerate = "generate"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step      string `json:"step"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Content   any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// emitter serializes callbacks coming from concurrent branches.
type emitter struct {
	mu        sync.Mutex
	sessionID string
	fn        ProgressCallback
}

func newEmitter(sessionID string, fn ProgressCallback) *emitter {
	return &emitter{sessionID: sessionID, fn: fn}
}

func (e *emitter) emit(step, category, message string, content any) {
	if e.fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fn(ProgressEvent{
		Step:      step,
		Category:  category,
		Message:   message,
		SessionID: e.sessionID,
		Content:   content,
	})
}
