// Package config provides configuration loading and validation for the service.
// A single Config value is built at process start and passed by constructor to
// each component.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/spf13/viper"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the complete service configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Password  PasswordConfig  `mapstructure:"password"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Environment string   `mapstructure:"environment"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the Redis connection settings used by the login guard and repository cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GitHubConfig holds GitHub API and OAuth settings.
type GitHubConfig struct {
	Token        string        `mapstructure:"token"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURI  string        `mapstructure:"redirect_uri"`
	APIURL       string        `mapstructure:"api_url"`
	OAuthURL     string        `mapstructure:"oauth_url"`
	MaxPages     int           `mapstructure:"max_pages"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// GeminiConfig holds LLM provider settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// CacheConfig holds TTLs for narrative results and raw repository listings.
type CacheConfig struct {
	AnalysisTTL   time.Duration `mapstructure:"analysis_ttl"`
	RepositoryTTL time.Duration `mapstructure:"repository_ttl"`
}

// AuthConfig holds failed-login lockout policy.
type AuthConfig struct {
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	LockoutDuration   time.Duration `mapstructure:"lockout_duration"`
}

// RateLimitConfig holds per-client token bucket limits. Auth limits apply to
// /auth/*; analysis limits apply to routes that call GitHub and the model.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	DefaultLimit   int           `mapstructure:"default_limit"`
	DefaultWindow  time.Duration `mapstructure:"default_window"`
	AuthLimit      int           `mapstructure:"auth_limit"`
	AuthWindow     time.Duration `mapstructure:"auth_window"`
	AnalysisLimit  int           `mapstructure:"analysis_limit"`
	AnalysisWindow time.Duration `mapstructure:"analysis_window"`
	Whitelist      []string      `mapstructure:"whitelist"`
}

// LogConfig selects the log encoder and level.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// envBindings maps config keys to environment variables.
var envBindings = map[string]string{
	"app.environment":            "ENVIRONMENT",
	"app.port":                   "PORT",
	"app.cors_origins":           "CORS_ORIGINS",
	"database.url":               "DATABASE_URL",
	"redis.addr":                 "REDIS_ADDR",
	"redis.password":             "REDIS_PASSWORD",
	"redis.db":                   "REDIS_DB",
	"jwt.secret":                 "JWT_SECRET",
	"jwt.algorithm":              "JWT_ALGORITHM",
	"jwt.access_ttl":             "ACCESS_TOKEN_TTL",
	"jwt.refresh_ttl":            "REFRESH_TOKEN_TTL",
	"password.bcrypt_cost":       "BCRYPT_COST",
	"password.pepper":            "PASSWORD_PEPPER",
	"github.token":               "GITHUB_TOKEN",
	"github.client_id":           "GITHUB_CLIENT_ID",
	"github.client_secret":       "GITHUB_CLIENT_SECRET",
	"github.redirect_uri":        "GITHUB_REDIRECT_URI",
	"github.api_url":             "GITHUB_API_URL",
	"github.oauth_url":           "GITHUB_OAUTH_URL",
	"github.max_pages":           "GITHUB_MAX_PAGES",
	"github.timeout":             "GITHUB_TIMEOUT",
	"gemini.api_key":             "GEMINI_API_KEY",
	"gemini.model":               "GEMINI_MODEL",
	"cache.analysis_ttl":         "ANALYSIS_CACHE_TTL",
	"cache.repository_ttl":       "REPOSITORY_CACHE_TTL",
	"auth.max_failed_attempts":   "AUTH_MAX_FAILED_ATTEMPTS",
	"auth.lockout_duration":      "AUTH_LOCKOUT_DURATION",
	"rate_limit.enabled":         "RATE_LIMIT_ENABLED",
	"rate_limit.default_limit":   "RATE_LIMIT_DEFAULT_LIMIT",
	"rate_limit.default_window":  "RATE_LIMIT_DEFAULT_WINDOW",
	"rate_limit.auth_limit":      "RATE_LIMIT_AUTH_LIMIT",
	"rate_limit.auth_window":     "RATE_LIMIT_AUTH_WINDOW",
	"rate_limit.analysis_limit":  "RATE_LIMIT_ANALYSIS_LIMIT",
	"rate_limit.analysis_window": "RATE_LIMIT_ANALYSIS_WINDOW",
	"rate_limit.whitelist":       "RATE_LIMIT_WHITELIST",
	"log.json":                   "LOG_JSON",
	"log.debug":                  "LOG_DEBUG",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", EnvDevelopment)
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_origins", []string{})
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.access_ttl", 30*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("password.bcrypt_cost", 12)
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.oauth_url", "https://github.com/login/oauth/access_token")
	v.SetDefault("github.max_pages", 10)
	v.SetDefault("github.timeout", 30*time.Second)
	v.SetDefault("cache.analysis_ttl", 6*time.Hour)
	v.SetDefault("cache.repository_ttl", 45*time.Minute)
	v.SetDefault("auth.max_failed_attempts", 5)
	v.SetDefault("auth.lockout_duration", 30*time.Minute)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 300)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.auth_limit", 10)
	v.SetDefault("rate_limit.auth_window", time.Minute)
	v.SetDefault("rate_limit.analysis_limit", 30)
	v.SetDefault("rate_limit.analysis_window", time.Hour)
	v.SetDefault("rate_limit.whitelist", []string{})
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads configuration from environment variables and, when path is not
// empty, from a YAML file. Environment variables win over file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.App.CORSOrigins = splitList(cfg.App.CORSOrigins)
	cfg.RateLimit.Whitelist = splitList(cfg.RateLimit.Whitelist)
	cfg.App.Environment = strings.ToLower(strings.TrimSpace(cfg.App.Environment))

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList flattens comma-separated entries, since env values arrive as one string.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, origin := range strings.Split(entry, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

func (c *Config) normalize() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return &apperr.ConfigurationError{Key: "PORT", Message: fmt.Sprintf("invalid port %d", c.App.Port)}
	}
	if c.App.Environment != EnvDevelopment && c.App.Environment != EnvProduction {
		return &apperr.ConfigurationError{Key: "ENVIRONMENT", Message: fmt.Sprintf("unknown environment %q", c.App.Environment)}
	}
	if c.GitHub.MaxPages < 1 {
		c.GitHub.MaxPages = 1
	}
	if c.Auth.MaxFailedAttempts < 1 {
		return &apperr.ConfigurationError{Key: "AUTH_MAX_FAILED_ATTEMPTS", Message: "must be at least 1"}
	}
	if err := c.Password.normalize(); err != nil {
		return &apperr.ConfigurationError{Key: "BCRYPT_COST", Message: err.Error()}
	}
	return c.JWT.normalizeAlgorithm()
}

// Validate checks the secrets required to serve requests.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return &apperr.ConfigurationError{Key: "DATABASE_URL"}
	}
	if err := c.JWT.normalize(); err != nil {
		return err
	}
	if c.Gemini.APIKey == "" {
		return &apperr.ConfigurationError{Key: "GEMINI_API_KEY"}
	}
	return nil
}

// IsProduction reports whether strict CORS and secure cookies apply.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}
