package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	cfg, err := NewJWTConfig(ServerConfig{JWTSecret: "test-secret-key-0123456789"})
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "test-secret-key-0123456789", cfg.Secret)
	assert.Equal(t, 12, cfg.ExpirationHours, "should use default expiration of 12 hours")
}

func TestNewJWTConfig_GeneratedSecret(t *testing.T) {
	first, err := NewJWTConfig(ServerConfig{})
	require.NoError(t, err)
	second, err := NewJWTConfig(ServerConfig{})
	require.NoError(t, err)

	assert.Len(t, first.Secret, 64)
	assert.NotEqual(t, first.Secret, second.Secret)
}

func TestNewJWTConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		server  ServerConfig
		wantErr string
	}{
		{
			name:   "custom expiration",
			server: ServerConfig{JWTSecret: "0123456789abcdef", TokenHours: 48},
		},
		{
			name:    "short secret",
			server:  ServerConfig{JWTSecret: "short"},
			wantErr: "at least 16 characters",
		},
		{
			name:    "negative expiration",
			server:  ServerConfig{JWTSecret: "0123456789abcdef", TokenHours: -1},
			wantErr: "at least 1 hour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewJWTConfig(tt.server)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.server.TokenHours, cfg.ExpirationHours)
		})
	}
}
