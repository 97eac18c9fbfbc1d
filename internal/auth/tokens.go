// Package auth issues and verifies bearer tokens, hashes passwords and guards
// sign-in against brute force.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/config"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims of both token types. DeviceHash is set on refresh tokens only.
// IssuedAtMicros repeats iat in microseconds so revoke-all cutoffs are exact.
type Claims struct {
	UserID         uuid.UUID `json:"user_id"`
	Role           string    `json:"role"`
	TokenType      string    `json:"token_type"`
	DeviceHash     string    `json:"device_hash,omitempty"`
	IssuedAtMicros int64     `json:"iat_us,omitempty"`
	jwt.RegisteredClaims
}

// GetUserID returns the user ID from the claims.
func (c *Claims) GetUserID() uuid.UUID {
	return c.UserID
}

// IssuedAtTime is the issue time at the best precision the token carries.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAtMicros > 0 {
		return time.UnixMicro(c.IssuedAtMicros).UTC()
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// GetRole returns the account role from the claims.
func (c *Claims) GetRole() string {
	return c.Role
}

// Device identifies the client a refresh token is bound to.
type Device struct {
	UserAgent string
	IP        string
}

// Hash is the hex sha256 of "user_agent:ip".
func (d Device) Hash() string {
	sum := sha256.Sum256([]byte(d.UserAgent + ":" + d.IP))
	return hex.EncodeToString(sum[:])
}

// TokenService signs and parses access and refresh tokens with an HMAC key.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a TokenService. cfg must carry a secret and valid TTLs.
func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, &apperr.ConfigurationError{Key: "JWT_ALGORITHM", Message: "unsupported algorithm " + cfg.Algorithm}
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL is the lifetime of access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the lifetime of refresh tokens.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccess signs a short-lived access token.
func (s *TokenService) IssueAccess(userID uuid.UUID, role string) (string, *Claims, error) {
	return s.issue(TokenTypeAccess, userID, role, "", s.accessTTL)
}

// IssueRefresh signs a refresh token bound to deviceHash.
func (s *TokenService) IssueRefresh(userID uuid.UUID, role, deviceHash string) (string, *Claims, error) {
	return s.issue(TokenTypeRefresh, userID, role, deviceHash, s.refreshTTL)
}

func (s *TokenService) issue(tokenType string, userID uuid.UUID, role, deviceHash string, ttl time.Duration) (string, *Claims, error) {
	now := s.now().UTC()
	claims := &Claims{
		UserID:         userID,
		Role:           role,
		TokenType:      tokenType,
		DeviceHash:     deviceHash,
		IssuedAtMicros: now.UnixMicro(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature, expiry and token type. Every failure is an AuthenticationError.
func (s *TokenService) Parse(tokenString, wantType string) (*Claims, error) {
	if tokenString == "" {
		return nil, &apperr.AuthenticationError{Message: "missing token"}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &apperr.AuthenticationError{Message: "token expired"}
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, &apperr.AuthenticationError{Message: "malformed token"}
		default:
			return nil, &apperr.AuthenticationError{Message: "invalid token"}
		}
	}
	if !token.Valid {
		return nil, &apperr.AuthenticationError{Message: "invalid token"}
	}
	if claims.TokenType != wantType {
		return nil, &apperr.AuthenticationError{Message: "wrong token type"}
	}
	if claims.ID == "" || claims.UserID == uuid.Nil {
		return nil, &apperr.AuthenticationError{Message: "invalid token"}
	}
	return claims, nil
}
