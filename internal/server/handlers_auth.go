package server

import (
	"net/http"
	"time"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/auth"
	"github.com/jonathan/portreviewer/internal/server/middleware"
	"github.com/jonathan/portreviewer/internal/types"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/auth"
)

func device(r *http.Request) auth.Device {
	return auth.Device{UserAgent: r.UserAgent(), IP: clientIP(r)}
}

// setRefreshCookie stores the refresh token in an HttpOnly cookie scoped to /auth.
func (s *Server) setRefreshCookie(w http.ResponseWriter, tokens *types.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    tokens.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  tokens.RefreshExpiresAt,
		MaxAge:   int(time.Until(tokens.RefreshExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) signedIn(w http.ResponseWriter, status int, resp *types.LoginResponse) {
	s.setRefreshCookie(w, resp.Tokens)
	s.jsonResponse(w, status, resp)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.auth.Register(r.Context(), req, device(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.signedIn(w, http.StatusCreated, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.auth.Login(r.Context(), req, device(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.signedIn(w, http.StatusOK, resp)
}

func (s *Server) handleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	var req types.GitHubLoginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.auth.LoginWithGitHub(r.Context(), req, device(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.signedIn(w, http.StatusOK, resp)
}

// refreshToken reads the refresh token from the cookie, falling back to the body.
func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var req types.RefreshRequest
	if r.ContentLength != 0 {
		_ = s.decode(w, r, &req)
	}
	return req.RefreshToken
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := s.refreshToken(w, r)
	if token == "" {
		s.writeError(w, &apperr.AuthenticationError{Message: "missing token"})
		return
	}
	resp, err := s.auth.Refresh(r.Context(), token, device(r))
	if err != nil {
		s.clearRefreshCookie(w)
		s.writeError(w, err)
		return
	}
	s.signedIn(w, http.StatusOK, resp)
}

// handleLogout revokes the refresh token and, when presented, the access token.
// It succeeds even for expired tokens so clients can always sign out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var access *auth.Claims
	if bearer, ok := middleware.BearerToken(r); ok {
		if claims, err := s.auth.ValidateAccessToken(r.Context(), bearer); err == nil {
			access = claims
		}
	}
	if err := s.auth.Logout(r.Context(), s.refreshToken(w, r), access); err != nil {
		s.writeError(w, err)
		return
	}
	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.writeError(w, &apperr.AuthenticationError{Message: "missing token"})
		return
	}
	user, err := s.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.writeError(w, &apperr.AuthenticationError{Message: "missing token"})
		return
	}
	var req types.UpdatePasswordRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.auth.UpdatePassword(r.Context(), userID, req); err != nil {
		s.writeError(w, err)
		return
	}
	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
