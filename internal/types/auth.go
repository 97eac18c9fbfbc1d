package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Account roles.
const (
	RoleDeveloper = "developer"
	RoleRecruiter = "recruiter"
)

// CreationSource records how an account was created.
type CreationSource string

const (
	// SourcePassword accounts sign in with email and password.
	SourcePassword CreationSource = "password"
	// SourceGitHub accounts were created through GitHub OAuth and have no password.
	SourceGitHub CreationSource = "github"
)

// User represents a user profile for API responses. The password hash never leaves the store.
type User struct {
	ID             uuid.UUID      `json:"id"`
	Email          string         `json:"email,omitempty"`
	Name           string         `json:"name"`
	UserType       string         `json:"user_type"`
	GitHubUsername string         `json:"github_username,omitempty"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
	Source         CreationSource `json:"source"`
	PasswordSet    bool           `json:"password_set"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	LastLoginAt    *time.Time     `json:"last_login_at,omitempty"`
}

// CreateUserRequest represents the request to create a new user with password authentication.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	UserType string `json:"user_type" validate:"required,oneof=developer recruiter"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GitHubLoginRequest carries the OAuth authorization code returned by GitHub.
type GitHubLoginRequest struct {
	Code     string `json:"code" validate:"required"`
	UserType string `json:"user_type,omitempty" validate:"omitempty,oneof=developer recruiter"`
}

// RefreshRequest carries a refresh token when the cookie is not available.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdatePasswordRequest represents a password update request.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// TokenPair is an access token with its rotating refresh token.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResponse represents the login/register response with user data and tokens.
type LoginResponse struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

// Validate validates the CreateUserRequest using the validator.
func (r *CreateUserRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the LoginRequest using the validator.
func (r *LoginRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdatePasswordRequest using the validator.
func (r *UpdatePasswordRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
