package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/config"
	"github.com/jonathan/portreviewer/internal/db"
	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/types"
)

// UserStore is the account persistence the service needs. Lookups return nil, nil when absent.
type UserStore interface {
	CreateUser(ctx context.Context, u *db.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByGitHubUsername(ctx context.Context, username string) (*db.User, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	LinkGitHub(ctx context.Context, id uuid.UUID, username string, githubID int64, avatarURL string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// GitHubOAuth completes the GitHub OAuth code flow.
type GitHubOAuth interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	GetAuthenticatedUser(ctx context.Context, accessToken string) (*types.GitHubUser, error)
}

// PasswordIdentity is the credential of a password account.
type PasswordIdentity struct {
	Email    string
	Password string
}

// GitHubIdentity is the GitHub account behind an OAuth sign-up.
type GitHubIdentity struct {
	Username  string
	ID        int64
	Email     string
	AvatarURL string
}

// NewUser describes an account to create. Source selects which identity must
// be set: Password for SourcePassword, GitHub for SourceGitHub.
type NewUser struct {
	Source   types.CreationSource
	Name     string
	UserType string
	Password *PasswordIdentity
	GitHub   *GitHubIdentity
}

func (n NewUser) validate() error {
	if n.UserType != types.RoleDeveloper && n.UserType != types.RoleRecruiter {
		return &apperr.ValidationError{Field: "user_type", Message: "must be developer or recruiter"}
	}
	switch n.Source {
	case types.SourcePassword:
		if n.Password == nil || n.GitHub != nil {
			return &apperr.ValidationError{Field: "source", Message: "password accounts take an email and password only"}
		}
		if strings.TrimSpace(n.Password.Email) == "" {
			return &apperr.ValidationError{Field: "email", Message: "required"}
		}
		if len(n.Password.Password) < minPasswordLength {
			return &apperr.ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
		}
	case types.SourceGitHub:
		if n.GitHub == nil || n.Password != nil {
			return &apperr.ValidationError{Field: "source", Message: "github accounts take a github identity only"}
		}
		if strings.TrimSpace(n.GitHub.Username) == "" || n.GitHub.ID == 0 {
			return &apperr.ValidationError{Field: "github_username", Message: "required"}
		}
	default:
		return &apperr.ValidationError{Field: "source", Message: fmt.Sprintf("unknown source %q", n.Source)}
	}
	return nil
}

const minPasswordLength = 8

// Deps wires a Service.
type Deps struct {
	Users     UserStore
	Guard     GuardStore
	Tokens    *TokenService
	GitHub    GitHubOAuth
	Passwords config.PasswordConfig
	Policy    config.AuthConfig
	Logger    *zap.Logger
}

// Service owns account creation, sign-in, token rotation and revocation.
type Service struct {
	users     UserStore
	guard     GuardStore
	tokens    *TokenService
	github    GitHubOAuth
	passwords config.PasswordConfig
	policy    config.AuthConfig
	now       func() time.Time
	log       *zap.Logger
}

// NewService creates a Service. GitHub may be nil, which disables GitHub sign-in.
func NewService(d Deps) (*Service, error) {
	if d.Users == nil || d.Guard == nil || d.Tokens == nil {
		return nil, errors.New("auth: users, guard and tokens are required")
	}
	if d.Policy.MaxFailedAttempts < 1 {
		d.Policy.MaxFailedAttempts = 5
	}
	if d.Policy.LockoutDuration <= 0 {
		d.Policy.LockoutDuration = 30 * time.Minute
	}
	return &Service{
		users:     d.Users,
		guard:     d.Guard,
		tokens:    d.Tokens,
		github:    d.GitHub,
		passwords: d.Passwords,
		policy:    d.Policy,
		now:       time.Now,
		log:       logger.Named(d.Logger, "auth"),
	}, nil
}

// Create persists a new account from n.
func (s *Service) Create(ctx context.Context, n NewUser) (*db.User, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}
	u := &db.User{
		Name:     strings.TrimSpace(n.Name),
		UserType: n.UserType,
		Source:   n.Source,
	}
	switch n.Source {
	case types.SourcePassword:
		hash, err := s.passwords.HashPassword(n.Password.Password)
		if err != nil {
			return nil, err
		}
		u.Email = n.Password.Email
		u.PasswordHash = hash
	case types.SourceGitHub:
		u.Email = n.GitHub.Email
		u.GitHubUsername = n.GitHub.Username
		u.GitHubID = n.GitHub.ID
		u.AvatarURL = n.GitHub.AvatarURL
		if u.Name == "" {
			u.Name = n.GitHub.Username
		}
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user created", logger.UserID(u.ID), zap.String("source", string(u.Source)), zap.String("user_type", u.UserType))
	return u, nil
}

// Register creates a password account and signs it in.
func (s *Service) Register(ctx context.Context, req types.CreateUserRequest, dev Device) (*types.LoginResponse, error) {
	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if existing != nil {
		return nil, &apperr.ConflictError{Message: "an account with this email already exists"}
	}

	u, err := s.Create(ctx, NewUser{
		Source:   types.SourcePassword,
		Name:     req.Name,
		UserType: req.UserType,
		Password: &PasswordIdentity{Email: req.Email, Password: req.Password},
	})
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, u, dev)
}

func lockoutIdentifier(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies email and password. Too many failures lock the email out for
// the configured duration.
func (s *Service) Login(ctx context.Context, req types.LoginRequest, dev Device) (*types.LoginResponse, error) {
	id := lockoutIdentifier(req.Email)

	attempts, remaining, err := s.guard.FailedAttempts(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempts >= s.policy.MaxFailedAttempts {
		return nil, &apperr.RateLimitError{Message: "account temporarily locked", RetryAfter: remaining}
	}

	u, err := s.users.GetUserByEmail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if u == nil || !s.passwords.VerifyPassword(req.Password, u.PasswordHash) {
		n, err := s.guard.RecordFailure(ctx, id, s.policy.LockoutDuration)
		if err != nil {
			return nil, err
		}
		if n >= s.policy.MaxFailedAttempts {
			s.log.Warn("login locked out", zap.Int("attempts", n), zap.Duration("duration", s.policy.LockoutDuration))
		}
		return nil, &apperr.AuthenticationError{Message: "invalid email or password"}
	}

	if err := s.guard.ClearFailures(ctx, id); err != nil {
		s.log.Warn("failed to clear login failures", zap.Error(err))
	}
	return s.signIn(ctx, u, dev)
}

// LoginWithGitHub completes the OAuth code flow. The account is found by
// GitHub username, linked by email, or created.
func (s *Service) LoginWithGitHub(ctx context.Context, req types.GitHubLoginRequest, dev Device) (*types.LoginResponse, error) {
	if s.github == nil {
		return nil, &apperr.ConfigurationError{Key: "GITHUB_CLIENT_ID"}
	}
	token, err := s.github.ExchangeCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	gh, err := s.github.GetAuthenticatedUser(ctx, token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByGitHubUsername(ctx, gh.Login)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by github username: %w", err)
	}
	if u == nil && gh.Email != "" {
		u, err = s.users.GetUserByEmail(ctx, gh.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to get user by email: %w", err)
		}
		if u != nil {
			if err := s.users.LinkGitHub(ctx, u.ID, gh.Login, gh.ID, gh.AvatarURL); err != nil {
				return nil, err
			}
			u.GitHubUsername = strings.ToLower(gh.Login)
			u.GitHubID = gh.ID
			s.log.Info("linked github account", logger.UserID(u.ID), logger.Username(gh.Login))
		}
	}
	if u == nil {
		userType := req.UserType
		if userType == "" {
			userType = types.RoleDeveloper
		}
		u, err = s.Create(ctx, NewUser{
			Source:   types.SourceGitHub,
			Name:     gh.Name,
			UserType: userType,
			GitHub:   &GitHubIdentity{Username: gh.Login, ID: gh.ID, Email: gh.Email, AvatarURL: gh.AvatarURL},
		})
		if err != nil {
			return nil, err
		}
	}
	return s.signIn(ctx, u, dev)
}

func (s *Service) signIn(ctx context.Context, u *db.User, dev Device) (*types.LoginResponse, error) {
	now := s.now().UTC()
	if err := s.users.RecordLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("failed to record login", logger.UserID(u.ID), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}
	pair, err := s.issuePair(u, dev)
	if err != nil {
		return nil, err
	}
	return &types.LoginResponse{User: u.Public(), Tokens: pair}, nil
}

func (s *Service) issuePair(u *db.User, dev Device) (*types.TokenPair, error) {
	access, accessClaims, err := s.tokens.IssueAccess(u.ID, u.UserType)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := s.tokens.IssueRefresh(u.ID, u.UserType, dev.Hash())
	if err != nil {
		return nil, err
	}
	return &types.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresAt:        accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// checkNotRevoked rejects tokens whose jti was revoked or that predate a
// revoke-all for their user.
func (s *Service) checkNotRevoked(ctx context.Context, c *Claims) error {
	revoked, err := s.guard.IsRevoked(ctx, c.ID)
	if err != nil {
		return err
	}
	if revoked {
		return &apperr.AuthenticationError{Message: "token has been revoked"}
	}
	cutoff, ok, err := s.guard.TokensRevokedBefore(ctx, c.UserID)
	if err != nil {
		return err
	}
	if ok && !c.IssuedAtTime().After(cutoff) {
		return &apperr.AuthenticationError{Message: "token has been revoked"}
	}
	return nil
}

func (s *Service) remaining(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return s.tokens.RefreshTTL()
	}
	d := c.ExpiresAt.Time.Sub(s.now())
	if d < time.Second {
		return time.Second
	}
	return d
}

// Refresh exchanges a refresh token for a new pair. The token must come from
// the device it was issued to and is single-use. A device mismatch revokes
// every token of the user.
func (s *Service) Refresh(ctx context.Context, refreshToken string, dev Device) (*types.LoginResponse, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if err := s.checkNotRevoked(ctx, claims); err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(claims.DeviceHash), []byte(dev.Hash())) != 1 {
		if _, err := s.guard.RevokeToken(ctx, claims.ID, s.remaining(claims)); err != nil {
			s.log.Error("failed to revoke refresh token", logger.UserID(claims.UserID), zap.Error(err))
		}
		if err := s.LogoutAll(ctx, claims.UserID); err != nil {
			s.log.Error("failed to revoke user tokens", logger.UserID(claims.UserID), zap.Error(err))
		}
		s.log.Warn("refresh token used from another device", logger.UserID(claims.UserID))
		return nil, &apperr.AuthenticationError{Message: "invalid refresh token"}
	}

	first, err := s.guard.RevokeToken(ctx, claims.ID, s.remaining(claims))
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, &apperr.AuthenticationError{Message: "token has been revoked"}
	}

	u, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, &apperr.AuthenticationError{Message: "account no longer exists"}
	}
	pair, err := s.issuePair(u, dev)
	if err != nil {
		return nil, err
	}
	return &types.LoginResponse{User: u.Public(), Tokens: pair}, nil
}

// Logout revokes the refresh token and, when given, the access token's jti.
// Invalid or expired tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string, access *Claims) error {
	if refreshToken != "" {
		if claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh); err == nil {
			if _, err := s.guard.RevokeToken(ctx, claims.ID, s.remaining(claims)); err != nil {
				return err
			}
		}
	}
	if access != nil && access.ID != "" {
		if _, err := s.guard.RevokeToken(ctx, access.ID, s.remaining(access)); err != nil {
			return err
		}
	}
	return nil
}

// LogoutAll revokes every token issued to userID up to and including now.
// Tokens issued afterwards, such as the next sign-in, stay valid.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.guard.RevokeUserTokens(ctx, userID, s.now().UTC().Truncate(time.Microsecond), s.tokens.RefreshTTL())
}

// ValidateAccessToken parses an access token and checks it was not revoked.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if err := s.checkNotRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// CurrentUser returns the profile of an authenticated user.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, &apperr.NotFoundError{Resource: "user", ID: userID.String()}
	}
	return u.Public(), nil
}

// UpdatePassword replaces the password after checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, userID uuid.UUID, req types.UpdatePasswordRequest) error {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return &apperr.NotFoundError{Resource: "user", ID: userID.String()}
	}
	if u.PasswordHash == "" {
		return &apperr.ValidationError{Field: "current_password", Message: "this account signs in with GitHub"}
	}
	if !s.passwords.VerifyPassword(req.CurrentPassword, u.PasswordHash) {
		return &apperr.AuthenticationError{Message: "current password is incorrect"}
	}
	if len(req.NewPassword) < minPasswordLength {
		return &apperr.ValidationError{Field: "new_password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	hash, err := s.passwords.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	return s.LogoutAll(ctx, userID)
}
