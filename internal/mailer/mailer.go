// Package mailer delivers outreach emails over SMTP.
package mailer

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/gomail.v2"

	"github.com/jonathan/recruit-reach/internal/logger"
	"github.com/jonathan/recruit-reach/internal/types"
	"github.com/jonathan/recruit-reach/internal/validation"
)

const (
	// DefaultAttachmentName is used when an in-memory attachment has no filename.
	DefaultAttachmentName = "attachment.pdf"
	// DefaultContentType is used when the attachment type cannot be derived.
	DefaultContentType = "application/pdf"
)

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".txt":  "text/plain; charset=utf-8",
}

// TransportFactory builds a transport for one sender mailbox.
type TransportFactory func(creds types.SenderCredentials) Transport

// SMTPFactory returns a factory that dials host:port as the sender.
func SMTPFactory(host string, port int) TransportFactory {
	return func(creds types.SenderCredentials) Transport {
		return NewSMTPTransport(host, port, creds.Email, creds.Password)
	}
}

// Mailer sends one email per call. There is no retry and no connection reuse.
type Mailer struct {
	transport TransportFactory
	log       logger.Logger
}

// New creates a Mailer.
func New(transport TransportFactory, log logger.Logger) *Mailer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Mailer{transport: transport, log: log}
}

// Send validates the request, builds a MIME message and delivers it.
func (m *Mailer) Send(ctx context.Context, creds types.SenderCredentials, req types.EmailDispatchRequest) error {
	if err := validation.Struct(creds); err != nil {
		return err
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	msg, err := BuildMessage(creds, req)
	if err != nil {
		return err
	}

	transport := m.transport(creds)
	log := m.log.With(
		logger.String("recipient", req.Recipient),
		logger.String("smtp_host", transport.Host()),
	)

	sender, err := transport.Dial(ctx)
	if err != nil {
		log.Error("SMTP connection failed", logger.Err(err))
		return &SendError{Host: transport.Host(), Recipient: req.Recipient, Cause: err}
	}

	if err := gomail.Send(sender, msg); err != nil {
		_ = sender.Close()
		log.Error("Email delivery failed", logger.Err(err))
		return &SendError{Host: transport.Host(), Recipient: req.Recipient, Cause: err}
	}
	if err := sender.Close(); err != nil {
		log.Warn("SMTP session did not close cleanly", logger.Err(err))
	}

	log.Info("Email sent", logger.Bool("attachment", req.Attachment != nil))
	return nil
}

// TrySend reports whether the email was delivered, logging the failure otherwise.
func (m *Mailer) TrySend(ctx context.Context, creds types.SenderCredentials, req types.EmailDispatchRequest) bool {
	if err := m.Send(ctx, creds, req); err != nil {
		m.log.Warn("Email not sent", logger.Err(err))
		return false
	}
	return true
}

// BuildMessage assembles a multipart message: a plain-text body, exactly one
// HTML alternative and the optional attachment.
func BuildMessage(creds types.SenderCredentials, req types.EmailDispatchRequest) (*gomail.Message, error) {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", creds.Email, creds.Name)
	msg.SetHeader("To", req.Recipient)
	msg.SetHeader("Subject", req.Subject)
	msg.SetBody("text/plain", plainText(req))
	msg.AddAlternative("text/html", req.HTMLBody)

	if req.Attachment == nil {
		return msg, nil
	}

	name, contentType, data, err := resolveAttachment(req.Attachment)
	if err != nil {
		return nil, err
	}

	msg.Attach(name,
		gomail.SetHeader(map[string][]string{
			"Content-Type": {contentType},
		}),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}),
	)
	return msg, nil
}

func resolveAttachment(a *types.Attachment) (name, contentType string, data []byte, err error) {
	hasPath, hasData := a.Path != "", a.Data != nil
	switch {
	case hasPath && hasData:
		return "", "", nil, &AttachmentError{Path: a.Path, Message: "set either a path or data, not both"}
	case !hasPath && !hasData:
		return "", "", nil, &AttachmentError{Message: "attachment has neither a path nor data"}
	}

	name = strings.TrimSpace(a.Filename)
	if hasPath {
		data, err = os.ReadFile(a.Path)
		if err != nil {
			msg := "unable to read file"
			if errors.Is(err, os.ErrNotExist) {
				msg = "file not found"
			}
			return "", "", nil, &AttachmentError{Path: a.Path, Message: msg, Cause: err}
		}
		if name == "" {
			name = filepath.Base(a.Path)
		}
	} else {
		data = a.Data
	}
	if name == "" {
		name = DefaultAttachmentName
	}

	contentType = a.ContentType
	if contentType == "" {
		contentType = ContentTypeFor(name)
	}
	return name, contentType, data, nil
}

// plainText returns the text alternative, rendering the HTML body when none was given.
func plainText(req types.EmailDispatchRequest) string {
	if text := strings.TrimSpace(req.TextBody); text != "" {
		return text
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTMLBody))
	if err != nil {
		return req.HTMLBody
	}
	doc.Find("style, script, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").AppendHtml("\n")

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// ContentTypeFor derives a MIME type from a filename, defaulting to PDF.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return DefaultContentType
}
