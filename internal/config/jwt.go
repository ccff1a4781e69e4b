package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// JWTConfig holds configuration for session token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig creates a JWT configuration from the server settings.
// When no secret is configured a random one is generated, so tokens do not survive a restart.
func NewJWTConfig(server ServerConfig) (*JWTConfig, error) {
	secret := server.JWTSecret
	if secret == "" {
		generated, err := randomSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
	}

	expirationHours := server.TokenHours
	if expirationHours == 0 {
		expirationHours = 12
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("server.jwt_secret must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("server.token_hours must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
