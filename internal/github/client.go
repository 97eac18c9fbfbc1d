// Package github fetches public repository metadata and account data from the GitHub REST API
// and normalizes it into the records used by analysis and search.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/config"
	"github.com/jonathan/portreviewer/internal/logger"
	"go.uber.org/zap"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string sent with every request.
const DefaultUserAgent = "portreviewer/1.0"

// DefaultMaxPages bounds repository listing to 1000 repositories.
const DefaultMaxPages = 10

const (
	defaultBaseURL  = "https://api.github.com"
	defaultOAuthURL = "https://github.com/login/oauth/access_token"
	acceptHeader    = "application/vnd.github.v3+json"
	serviceName     = "github"
)

// Options configures the client.
type Options struct {
	BaseURL      string
	OAuthURL     string
	Token        string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	MaxPages     int
	Timeout      time.Duration
	UserAgent    string
	HTTPClient   *http.Client
}

// OptionsFromConfig builds Options from the service configuration.
func OptionsFromConfig(cfg config.GitHubConfig) Options {
	return Options{
		BaseURL:      cfg.APIURL,
		OAuthURL:     cfg.OAuthURL,
		Token:        cfg.Token,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		MaxPages:     cfg.MaxPages,
		Timeout:      cfg.Timeout,
	}
}

// Client talks to the GitHub REST API. It performs no retries.
type Client struct {
	http         *http.Client
	baseURL      string
	oauthURL     string
	token        string
	clientID     string
	clientSecret string
	redirectURI  string
	maxPages     int
	userAgent    string
	log          *zap.Logger
}

// NewClient creates a client, filling unset options with defaults.
func NewClient(opts Options, log *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.OAuthURL == "" {
		opts.OAuthURL = defaultOAuthURL
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{
		http:         opts.HTTPClient,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		oauthURL:     opts.OAuthURL,
		token:        opts.Token,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		redirectURI:  opts.RedirectURI,
		maxPages:     opts.MaxPages,
		userAgent:    opts.UserAgent,
		log:          logger.Named(log, "github"),
	}
}

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// get issues an authenticated GET against the API. token overrides the configured token when set.
func (c *Client) get(ctx context.Context, path string, token string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, token)
	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
}

func (c *Client) do(req *http.Request) (*response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.ExternalServiceError{Service: serviceName, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.ExternalServiceError{Service: serviceName, Message: "failed to read response body", Cause: err}
	}
	return &response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// statusError converts a non-2xx response into an ExternalServiceError.
func statusError(resp *response) error {
	msg := http.StatusText(resp.StatusCode)
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(resp.Body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}
	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		msg = "API rate limit exceeded"
	}
	return &apperr.ExternalServiceError{Service: serviceName, StatusCode: resp.StatusCode, Message: msg}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
