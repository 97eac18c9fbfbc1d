// Package server provides the HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/portreviewer/internal/auth"
	"github.com/jonathan/portreviewer/internal/config"
	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/server/middleware"
	"github.com/jonathan/portreviewer/internal/server/ratelimit"
	"github.com/jonathan/portreviewer/internal/types"
)

// AuthService signs users in and validates their tokens.
type AuthService interface {
	Register(ctx context.Context, req types.CreateUserRequest, dev auth.Device) (*types.LoginResponse, error)
	Login(ctx context.Context, req types.LoginRequest, dev auth.Device) (*types.LoginResponse, error)
	LoginWithGitHub(ctx context.Context, req types.GitHubLoginRequest, dev auth.Device) (*types.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string, dev auth.Device) (*types.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string, access *auth.Claims) error
	ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, req types.UpdatePasswordRequest) error
}

// PortfolioService manages portfolios and GitHub analyses.
type PortfolioService interface {
	Create(ctx context.Context, ownerID uuid.UUID, req types.CreatePortfolioRequest) (*types.Portfolio, error)
	Get(ctx context.Context, id, viewerID uuid.UUID) (*types.Portfolio, error)
	Update(ctx context.Context, id, userID uuid.UUID, req types.UpdatePortfolioRequest) (*types.Portfolio, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	ListMine(ctx context.Context, userID uuid.UUID) ([]types.Portfolio, error)
	AutoGenerate(ctx context.Context, ownerID uuid.UUID, req types.AutoGenerateRequest) (*types.Portfolio, error)
	Refresh(ctx context.Context, id, userID uuid.UUID) (*types.Portfolio, error)
	Insights(ctx context.Context, id, viewerID uuid.UUID) (*types.RecruiterInsights, error)
	AnalyzeGitHub(ctx context.Context, username string) (*types.GitHubAnalysis, error)
	Stats(ctx context.Context, username string) (*types.GitHubStats, error)
	ClearCache(ctx context.Context, username string) error
	BatchAnalyze(ctx context.Context, req types.BatchAnalyzeRequest) *types.BatchAnalyzeResponse
}

// SearchService answers recruiter searches and manages saved searches.
type SearchService interface {
	Search(ctx context.Context, criteria types.SearchCriteria) (*types.SearchResponse, error)
	SaveSearch(ctx context.Context, recruiterID uuid.UUID, req types.SaveSearchRequest) (*types.SavedSearch, error)
	ListSavedSearches(ctx context.Context, recruiterID uuid.UUID) ([]types.SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, recruiterID, id uuid.UUID) error
	RunSavedSearch(ctx context.Context, recruiterID, id uuid.UUID) (*types.SearchResponse, error)
	CreateAlert(ctx context.Context, recruiterID, searchID uuid.UUID, req types.CreateAlertRequest) (*types.SearchAlert, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the server routes to. Health may be nil.
type Deps struct {
	Auth       AuthService
	Portfolios PortfolioService
	Search     SearchService
	Health     Pinger
	Limiter    *ratelimit.Limiter
	Logger     *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	auth       AuthService
	portfolios PortfolioService
	search     SearchService
	health     Pinger
	limiter    *ratelimit.Limiter
	validate   *validator.Validate
	log        *zap.Logger
}

// New creates a server. A nil Limiter is built from cfg.RateLimit.
func New(cfg *config.Config, d Deps) *Server {
	s := &Server{
		cfg:        cfg,
		auth:       d.Auth,
		portfolios: d.Portfolios,
		search:     d.Search,
		health:     d.Health,
		limiter:    d.Limiter,
		validate:   newValidator(),
		log:        logger.Named(d.Logger, "http"),
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.FromConfig(cfg.RateLimit))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // batch analysis calls GitHub and the model per candidate
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth
	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/github", s.handleGitHubLogin)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.Handle("GET /auth/me", s.protected(s.handleMe))
	mux.Handle("PUT /auth/password", s.protected(s.handleUpdatePassword))

	// GitHub analysis
	mux.Handle("POST /github/analyze", s.protected(s.handleAnalyzeGitHub))
	mux.Handle("GET /github/stats/{username}", s.protected(s.handleGitHubStats))
	mux.Handle("DELETE /github/cache/{username}", s.protected(s.handleClearGitHubCache))

	// Portfolios
	mux.Handle("POST /portfolios", s.protected(s.handleCreatePortfolio))
	mux.Handle("GET /portfolios", s.protected(s.handleListPortfolios))
	mux.Handle("POST /portfolios/auto", s.protected(s.handleAutoGenerate))
	mux.HandleFunc("GET /portfolios/{id}", s.handleGetPortfolio)
	mux.Handle("PUT /portfolios/{id}", s.protected(s.handleUpdatePortfolio))
	mux.Handle("DELETE /portfolios/{id}", s.protected(s.handleDeletePortfolio))
	mux.Handle("POST /portfolios/{id}/refresh", s.protected(s.handleRefreshPortfolio))
	mux.Handle("GET /portfolios/{id}/insights", s.protected(s.handlePortfolioInsights))

	// Recruiter search
	mux.Handle("POST /search", s.recruiter(s.handleSearch))
	mux.Handle("POST /search/saved", s.recruiter(s.handleSaveSearch))
	mux.Handle("GET /search/saved", s.recruiter(s.handleListSavedSearches))
	mux.Handle("DELETE /search/saved/{id}", s.recruiter(s.handleDeleteSavedSearch))
	mux.Handle("POST /search/saved/{id}/run", s.recruiter(s.handleRunSavedSearch))
	mux.Handle("POST /search/saved/{id}/alerts", s.recruiter(s.handleCreateAlert))
	mux.Handle("POST /recruiter/analyze-batch", s.recruiter(s.handleBatchAnalyze))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.limiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer s.limiter.Stop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) tokenValidator() middleware.TokenValidator {
	return middleware.ValidatorFunc(func(ctx context.Context, token string) (middleware.Principal, error) {
		claims, err := s.auth.ValidateAccessToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// protected requires a valid access token.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return middleware.AuthMiddleware(s.tokenValidator())(h)
}

// recruiter requires a valid access token with the recruiter role.
func (s *Server) recruiter(h http.HandlerFunc) http.Handler {
	return middleware.AuthMiddleware(s.tokenValidator())(middleware.RequireRole(types.RoleRecruiter)(h))
}

// viewer returns the caller's user ID on public routes, or uuid.Nil when the
// request carries no valid access token.
func (s *Server) viewer(r *http.Request) uuid.UUID {
	token, ok := middleware.BearerToken(r)
	if !ok {
		return uuid.Nil
	}
	claims, err := s.auth.ValidateAccessToken(r.Context(), token)
	if err != nil {
		return uuid.Nil
	}
	return claims.UserID
}

// handleHealth reports liveness and, when configured, database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
