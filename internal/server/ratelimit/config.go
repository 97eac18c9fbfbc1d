package ratelimit

import (
	"net/http"
	"time"

	"github.com/jonathan/portreviewer/internal/config"
)

// Rule limits one route family. A Path ending in "/" matches by prefix.
type Rule struct {
	Path   string
	Method string
	Limit  int           // requests per Window
	Window time.Duration
	Burst  int // bucket capacity; Limit when 0
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	Default         Rule
	Rules           []Rule
	Whitelist       map[string]bool
	CleanupInterval time.Duration
	IdleTTL         time.Duration
}

// FromConfig builds the limiter configuration from the service settings.
func FromConfig(cfg config.RateLimitConfig) *Config {
	whitelist := make(map[string]bool, len(cfg.Whitelist))
	for _, ip := range cfg.Whitelist {
		whitelist[ip] = true
	}
	return &Config{
		Enabled:         cfg.Enabled,
		Default:         Rule{Limit: cfg.DefaultLimit, Window: cfg.DefaultWindow},
		Rules:           DefaultRules(cfg),
		Whitelist:       whitelist,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
	}
}

// DefaultRules returns the route-specific limits. Auth routes are the
// strictest per minute; analysis routes call GitHub and the model and are
// limited per hour.
func DefaultRules(cfg config.RateLimitConfig) []Rule {
	auth := func(path string) Rule {
		return Rule{Path: path, Method: http.MethodPost, Limit: cfg.AuthLimit, Window: cfg.AuthWindow, Burst: min(cfg.AuthLimit, 5)}
	}
	analysis := func(path string) Rule {
		return Rule{Path: path, Method: http.MethodPost, Limit: cfg.AnalysisLimit, Window: cfg.AnalysisWindow, Burst: min(cfg.AnalysisLimit, 5)}
	}
	return []Rule{
		auth("/auth/"),
		analysis("/github/analyze"),
		analysis("/portfolios/auto"),
		analysis("/portfolios/"),
		analysis("/recruiter/analyze-batch"),
		{Path: "/search", Method: http.MethodPost, Limit: 60, Window: time.Minute, Burst: 20},
		{Path: "/search/saved/", Method: http.MethodPost, Limit: 60, Window: time.Minute, Burst: 20},
	}
}
