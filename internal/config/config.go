// Package config provides configuration loading and validation for RecruitReach.
// Configuration is read once at startup from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonathan/recruit-reach/internal/types"
)

// DefaultConfigPath is where the config file is looked up when no path is given.
const DefaultConfigPath = "config/config.toml"

// Config represents the application configuration.
// Missing values are empty; operations that need them check at call time.
type Config struct {
	OpenAI   OpenAIConfig    `mapstructure:"openai"`
	Gemini   GeminiConfig    `mapstructure:"gemini"`
	LLM      LLMConfig       `mapstructure:"llm"`
	Email    EmailConfig     `mapstructure:"email"`
	Search   SearchConfig    `mapstructure:"search"`
	Research ResearchConfig  `mapstructure:"research"`
	Resume   ResumeConfig    `mapstructure:"resume"`
	Server   ServerConfig    `mapstructure:"server"`
	Limits   RateLimitConfig `mapstructure:"rate_limit"`
	Database DatabaseConfig  `mapstructure:"database"`
	Log      LogConfig       `mapstructure:"log"`
}

// OpenAIConfig holds OpenAI credentials.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// GeminiConfig holds Google Gemini credentials.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LLMConfig selects the language model provider and sampling settings.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// EmailConfig holds the sender mailbox and SMTP server settings.
type EmailConfig struct {
	SenderEmail string `mapstructure:"sender_email"`
	SenderName  string `mapstructure:"sender_name"`
	AppPassword string `mapstructure:"app_password"`
	SMTPServer  string `mapstructure:"smtp_server"`
	SMTPPort    int    `mapstructure:"smtp_port"`
}

// SearchConfig holds Google Programmable Search credentials.
type SearchConfig struct {
	APIKey string `mapstructure:"api_key"`
	CX     string `mapstructure:"cx"`
}

// ResearchConfig controls company research.
type ResearchConfig struct {
	Strategy      string `mapstructure:"strategy"`
	FallbackToLLM bool   `mapstructure:"fallback_to_llm"`
	UseBrowser    bool   `mapstructure:"use_browser"`
	Summarize     bool   `mapstructure:"summarize"`
	MaxAgentSteps int    `mapstructure:"max_agent_steps"`
	MaxPageChars  int    `mapstructure:"max_page_chars"`
}

// ResumeConfig points at the default resume used when none is uploaded.
type ResumeConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenHours int           `mapstructure:"token_hours"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// RateLimitConfig throttles the HTTP API per client address.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultLimit    int           `mapstructure:"default_limit"`
	DefaultWindow   time.Duration `mapstructure:"default_window"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Whitelist       []string      `mapstructure:"whitelist"`
	Blacklist       []string      `mapstructure:"blacklist"`
}

// DatabaseConfig enables the optional outreach history store.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig loads configuration from the TOML file at path, with environment overrides.
// An empty path means DefaultConfigPath. A missing file is not an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigPath
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RECRUITREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvironmentVariables(v); err != nil {
		return nil, err
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// The original layout stored the key as [openai] OPENAI_API_KEY.
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = v.GetString("openai.openai_api_key")
	}

	return &cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.api_key", "")
	v.SetDefault("gemini.api_key", "")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.2)

	v.SetDefault("email.sender_email", "")
	v.SetDefault("email.sender_name", "")
	v.SetDefault("email.app_password", "")
	v.SetDefault("email.smtp_server", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)

	v.SetDefault("search.api_key", "")
	v.SetDefault("search.cx", "")

	v.SetDefault("research.strategy", "llm")
	v.SetDefault("research.fallback_to_llm", true)
	v.SetDefault("research.use_browser", false)
	v.SetDefault("research.summarize", false)
	v.SetDefault("research.max_agent_steps", 4)
	v.SetDefault("research.max_page_chars", 12000)

	v.SetDefault("resume.path", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_hours", 12)
	v.SetDefault("server.session_ttl", "2h")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 300)
	v.SetDefault("rate_limit.default_window", "1m")
	v.SetDefault("rate_limit.cleanup_interval", "5m")
	v.SetDefault("rate_limit.whitelist", []string{})
	v.SetDefault("rate_limit.blacklist", []string{})

	v.SetDefault("database.url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// bindEnvironmentVariables binds well-known variable names that do not follow the prefix scheme.
func bindEnvironmentVariables(v *viper.Viper) error {
	bindings := map[string][]string{
		"openai.api_key": {"RECRUITREACH_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"gemini.api_key": {"RECRUITREACH_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"search.api_key": {"RECRUITREACH_SEARCH_API_KEY", "GOOGLE_SEARCH_API_KEY"},
		"search.cx":      {"RECRUITREACH_SEARCH_CX", "GOOGLE_SEARCH_CX"},
		"database.url":   {"RECRUITREACH_DATABASE_URL", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks that the configuration has valid values.
// It does not require credentials; see RequireLLM and RequireEmail.
func (c *Config) Validate() error {
	if _, err := types.ParseResearchStrategy(c.Research.Strategy); err != nil {
		return fmt.Errorf("config error: research.strategy: %w", err)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("config error: llm.provider must be openai or gemini, got %q", c.LLM.Provider)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config error: llm.temperature must be between 0 and 2")
	}
	if c.Email.SMTPPort < 0 || c.Email.SMTPPort > 65535 {
		return fmt.Errorf("config error: email.smtp_port out of range")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: server.port out of range")
	}
	if c.Limits.Enabled && c.Limits.DefaultLimit < 0 {
		return fmt.Errorf("config error: rate_limit.default_limit must be non-negative")
	}
	if c.Research.MaxAgentSteps < 0 {
		return fmt.Errorf("config error: research.max_agent_steps must be non-negative")
	}

	if c.Resume.Path != "" {
		if _, err := os.Stat(c.Resume.Path); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume file not found: %s", c.Resume.Path)
		}
	}

	return nil
}

// LLMAPIKey returns the credential for the configured provider.
func (c *Config) LLMAPIKey() string {
	if strings.EqualFold(c.LLM.Provider, "gemini") {
		return c.Gemini.APIKey
	}
	return c.OpenAI.APIKey
}

// RequireLLM reports a *MissingSettingError when no model credential is configured.
func (c *Config) RequireLLM() error {
	if c.LLMAPIKey() != "" {
		return nil
	}
	if strings.EqualFold(c.LLM.Provider, "gemini") {
		return &MissingSettingError{Setting: "gemini.api_key"}
	}
	return &MissingSettingError{Setting: "openai.api_key"}
}

// RequireEmail reports a *MissingSettingError for the first unset sender setting.
func (c *Config) RequireEmail() error {
	switch {
	case c.Email.SenderEmail == "":
		return &MissingSettingError{Setting: "email.sender_email"}
	case c.Email.SenderName == "":
		return &MissingSettingError{Setting: "email.sender_name"}
	case c.Email.AppPassword == "":
		return &MissingSettingError{Setting: "email.app_password"}
	case c.Email.SMTPServer == "":
		return &MissingSettingError{Setting: "email.smtp_server"}
	}
	return nil
}

// Overrides are per-session values entered by the user that take precedence over the file.
type Overrides struct {
	APIKey      string `json:"api_key,omitempty"`
	SenderEmail string `json:"sender_email,omitempty" validate:"omitempty,outreach_email"`
	SenderName  string `json:"sender_name,omitempty"`
	AppPassword string `json:"app_password,omitempty"`
}

// MergeWithOverrides returns a copy of c with non-empty override fields applied.
func (c Config) MergeWithOverrides(o Overrides) Config {
	result := c

	if o.APIKey != "" {
		if strings.EqualFold(result.LLM.Provider, "gemini") {
			result.Gemini.APIKey = o.APIKey
		} else {
			result.OpenAI.APIKey = o.APIKey
		}
	}
	if o.SenderEmail != "" {
		result.Email.SenderEmail = o.SenderEmail
	}
	if o.SenderName != "" {
		result.Email.SenderName = o.SenderName
	}
	if o.AppPassword != "" {
		result.Email.AppPassword = o.AppPassword
	}

	return result
}

// SenderCredentials returns the configured sender identity.
func (c *Config) SenderCredentials() types.SenderCredentials {
	return types.SenderCredentials{
		Email:    c.Email.SenderEmail,
		Name:     c.Email.SenderName,
		Password: c.Email.AppPassword,
	}
}
