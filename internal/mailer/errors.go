package mailer

import "fmt"

// AttachmentError reports an attachment that could not be prepared.
type AttachmentError struct {
	Path    string
	Message string
	Cause   error
}

func (e *AttachmentError) Error() string {
	msg := "attachment error: " + e.Message
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AttachmentError) Unwrap() error {
	return e.Cause
}

// SendError reports a failure while talking to the mail server.
type SendError struct {
	Host      string
	Recipient string
	Cause     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send email to %s via %s: %v", e.Recipient, e.Host, e.Cause)
}

func (e *SendError) Unwrap() error {
	return e.Cause
}
