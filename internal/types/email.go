package types

// SenderCredentials identifies the mailbox that sends outreach emails.
type SenderCredentials struct {
	Email    string `json:"sender_email" validate:"required,outreach_email"`
	Name     string `json:"sender_name" validate:"required"`
	Password string `json:"-" validate:"required"`
}

// Attachment is a file attached to an outreach email.
// Exactly one of Path and Data must be set.
type Attachment struct {
	Path        string `json:"path,omitempty"`
	Data        []byte `json:"-"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// EmailDispatchRequest is a single email to deliver.
// TextBody is the plain-text alternative; when blank it is derived from HTMLBody.
type EmailDispatchRequest struct {
	Recipient  string      `json:"recipient" validate:"required,outreach_email"`
	Subject    string      `json:"subject" validate:"required"`
	HTMLBody   string      `json:"html_body" validate:"required"`
	TextBody   string      `json:"text_body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}
