package config

import (
	"testing"
	"time"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     JWTConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg:  JWTConfig{Secret: "s", Algorithm: "hs384", AccessTTL: 30 * time.Minute, RefreshTTL: 24 * time.Hour},
		},
		{
			name:    "empty secret",
			cfg:     JWTConfig{Algorithm: "HS256", AccessTTL: 30 * time.Minute, RefreshTTL: 24 * time.Hour},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "access ttl too short",
			cfg:     JWTConfig{Secret: "s", AccessTTL: time.Second, RefreshTTL: 24 * time.Hour},
			wantErr: "ACCESS_TOKEN_TTL",
		},
		{
			name:    "asymmetric algorithm",
			cfg:     JWTConfig{Secret: "s", Algorithm: "ES256", AccessTTL: 30 * time.Minute, RefreshTTL: 24 * time.Hour},
			wantErr: "JWT_ALGORITHM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "HS384", cfg.Algorithm)
				return
			}
			var cfgErr *apperr.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantErr, cfgErr.Key)
		})
	}
}

func TestJWTConfig_DefaultsAlgorithm(t *testing.T) {
	cfg := JWTConfig{Secret: "s", AccessTTL: 30 * time.Minute, RefreshTTL: time.Hour}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "HS256", cfg.Algorithm)
}
