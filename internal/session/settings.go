package session

import (
	"github.com/jonathan/recruit-reach/internal/config"
	"github.com/jonathan/recruit-reach/internal/validation"
)

// Settings are the per-session values a user enters in the settings panel.
// Blank fields fall back to the loaded configuration.
type Settings struct {
	APIKey      string `json:"api_key,omitempty"`
	SenderEmail string `json:"sender_email,omitempty" validate:"omitempty,outreach_email"`
	SenderName  string `json:"sender_name,omitempty" validate:"omitempty,max=200"`
	AppPassword string `json:"app_password,omitempty"`
}

// Validate checks the fields that were filled in.
func (s Settings) Validate() error {
	return validation.Struct(s)
}

// Resolve returns cfg with the non-empty settings applied. cfg is not modified.
func (s Settings) Resolve(cfg config.Config) config.Config {
	return cfg.MergeWithOverrides(config.Overrides{
		APIKey:      s.APIKey,
		SenderEmail: s.SenderEmail,
		SenderName:  s.SenderName,
		AppPassword: s.AppPassword,
	})
}

// Redacted returns a copy safe to show back to the user.
func (s Settings) Redacted() Settings {
	out := s
	if out.APIKey != "" {
		out.APIKey = redact(out.APIKey)
	}
	if out.AppPassword != "" {
		out.AppPassword = "********"
	}
	return out
}

func redact(secret string) string {
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:3] + "..." + secret[len(secret)-4:]
}
