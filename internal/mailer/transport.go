package mailer

import (
	"context"
	"crypto/tls"

	"gopkg.in/gomail.v2"
)

// Transport opens a connection to a mail server.
type Transport interface {
	Dial(ctx context.Context) (gomail.SendCloser, error)
	Host() string
}

// SMTPTransport dials an SMTP server and upgrades the connection with STARTTLS.
type SMTPTransport struct {
	dialer *gomail.Dialer
}

// NewSMTPTransport creates a transport authenticating as username.
// Port 465 uses implicit TLS; every other port negotiates STARTTLS.
func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	d := gomail.NewDialer(host, port, username, password)
	d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	return &SMTPTransport{dialer: d}
}

// Dial connects and authenticates. The caller must close the returned sender.
func (t *SMTPTransport) Dial(ctx context.Context) (gomail.SendCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.dialer.Dial()
}

// Host returns the SMTP server host name.
func (t *SMTPTransport) Host() string {
	return t.dialer.Host
}
