package config

import (
	"strings"
	"time"

	"github.com/jonathan/portreviewer/internal/apperr"
)

// JWTConfig holds configuration for access and refresh token signing.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Algorithm  string        `mapstructure:"algorithm"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

var supportedAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

func (c *JWTConfig) normalizeAlgorithm() error {
	c.Algorithm = strings.ToUpper(strings.TrimSpace(c.Algorithm))
	if c.Algorithm == "" {
		c.Algorithm = "HS256"
	}
	if !supportedAlgorithms[c.Algorithm] {
		return &apperr.ConfigurationError{Key: "JWT_ALGORITHM", Message: "unsupported algorithm " + c.Algorithm}
	}
	return nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return &apperr.ConfigurationError{Key: "JWT_SECRET"}
	}
	if c.AccessTTL < time.Minute {
		return &apperr.ConfigurationError{Key: "ACCESS_TOKEN_TTL", Message: "must be at least 1m"}
	}
	if c.RefreshTTL <= c.AccessTTL {
		return &apperr.ConfigurationError{Key: "REFRESH_TOKEN_TTL", Message: "must exceed ACCESS_TOKEN_TTL"}
	}
	return c.normalizeAlgorithm()
}

// Validate reports whether the JWT settings can sign tokens.
func (c *JWTConfig) Validate() error {
	return c.normalize()
}
