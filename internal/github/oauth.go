package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/types"
)

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode trades an OAuth authorization code for a user access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if c.clientID == "" {
		return "", &apperr.ConfigurationError{Key: "GITHUB_CLIENT_ID"}
	}
	if c.clientSecret == "" {
		return "", &apperr.ConfigurationError{Key: "GITHUB_CLIENT_SECRET"}
	}
	if strings.TrimSpace(code) == "" {
		return "", &apperr.ValidationError{Field: "code", Message: "required"}
	}

	payload, err := json.Marshal(tokenRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Code:         code,
		RedirectURI:  c.redirectURI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", statusError(resp)
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return "", &apperr.ExternalServiceError{Service: serviceName, Message: "failed to decode token response", Cause: err}
	}
	if tok.Error != "" {
		msg := tok.ErrorDescription
		if msg == "" {
			msg = tok.Error
		}
		return "", &apperr.AuthenticationError{Message: "github authorization failed: " + msg}
	}
	if tok.AccessToken == "" {
		return "", &apperr.AuthenticationError{Message: "github authorization failed: no access token"}
	}
	return tok.AccessToken, nil
}

// GetAuthenticatedUser returns the account that owns accessToken.
func (c *Client) GetAuthenticatedUser(ctx context.Context, accessToken string) (*types.GitHubUser, error) {
	resp, err := c.get(ctx, "/user", accessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &apperr.AuthenticationError{Message: "github token rejected"}
	}
	if !isSuccess(resp.StatusCode) {
		return nil, statusError(resp)
	}
	var u apiUser
	if err := json.Unmarshal(resp.Body, &u); err != nil {
		return nil, &apperr.ExternalServiceError{Service: serviceName, Message: "failed to decode user", Cause: err}
	}
	return u.normalize(), nil
}
