package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/auth"
	"github.com/jonathan/portreviewer/internal/config"
	"github.com/jonathan/portreviewer/internal/db"
	"github.com/jonathan/portreviewer/internal/types"
)

const testUserAgent = "portreviewer-test/1.0"

// memUsers is an in-memory auth.UserStore.
type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]db.User
}

func (m *memUsers) CreateUser(_ context.Context, u *db.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range m.users {
		if u.Email != "" && existing.Email == u.Email {
			return &apperr.ConflictError{Message: "an account with this email already exists"}
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) find(match func(db.User) bool) *db.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u
		}
	}
	return nil
}

func (m *memUsers) GetUserByID(_ context.Context, id uuid.UUID) (*db.User, error) {
	return m.find(func(u db.User) bool { return u.ID == id }), nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u db.User) bool { return u.Email == email }), nil
}

func (m *memUsers) GetUserByGitHubUsername(_ context.Context, username string) (*db.User, error) {
	username = strings.ToLower(username)
	return m.find(func(u db.User) bool { return u.GitHubUsername != "" && u.GitHubUsername == username }), nil
}

func (m *memUsers) RecordLogin(context.Context, uuid.UUID, time.Time) error { return nil }

func (m *memUsers) LinkGitHub(context.Context, uuid.UUID, string, int64, string) error { return nil }

func (m *memUsers) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

// fakePortfolios records the caller identity passed by handlers.
type fakePortfolios struct {
	mu         sync.Mutex
	lastViewer uuid.UUID
	getErr     error
	statsErr   error
}

func (f *fakePortfolios) Create(_ context.Context, ownerID uuid.UUID, req types.CreatePortfolioRequest) (*types.Portfolio, error) {
	return &types.Portfolio{ID: uuid.New(), OwnerID: ownerID, GitHubUsername: req.GitHubUsername, Title: req.Title}, nil
}

func (f *fakePortfolios) Get(_ context.Context, id, viewerID uuid.UUID) (*types.Portfolio, error) {
	f.mu.Lock()
	f.lastViewer = viewerID
	f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &types.Portfolio{ID: id, GitHubUsername: "octocat", Title: "Octo", IsPublic: true}, nil
}

func (f *fakePortfolios) Update(_ context.Context, id, _ uuid.UUID, _ types.UpdatePortfolioRequest) (*types.Portfolio, error) {
	return &types.Portfolio{ID: id}, nil
}

func (f *fakePortfolios) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakePortfolios) ListMine(context.Context, uuid.UUID) ([]types.Portfolio, error) {
	return []types.Portfolio{}, nil
}

func (f *fakePortfolios) AutoGenerate(_ context.Context, ownerID uuid.UUID, req types.AutoGenerateRequest) (*types.Portfolio, error) {
	return &types.Portfolio{ID: uuid.New(), OwnerID: ownerID, GitHubUsername: strings.ToLower(req.GitHubUsername)}, nil
}

func (f *fakePortfolios) Refresh(_ context.Context, id, _ uuid.UUID) (*types.Portfolio, error) {
	return &types.Portfolio{ID: id}, nil
}

func (f *fakePortfolios) Insights(context.Context, uuid.UUID, uuid.UUID) (*types.RecruiterInsights, error) {
	return &types.RecruiterInsights{Summary: "solid"}, nil
}

func (f *fakePortfolios) AnalyzeGitHub(_ context.Context, username string) (*types.GitHubAnalysis, error) {
	return &types.GitHubAnalysis{Username: username}, nil
}

func (f *fakePortfolios) Stats(_ context.Context, username string) (*types.GitHubStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &types.GitHubStats{Username: username}, nil
}

func (f *fakePortfolios) ClearCache(context.Context, string) error { return nil }

func (f *fakePortfolios) BatchAnalyze(_ context.Context, req types.BatchAnalyzeRequest) *types.BatchAnalyzeResponse {
	resp := &types.BatchAnalyzeResponse{}
	for _, u := range req.Usernames {
		resp.Results = append(resp.Results, types.BatchItemResult{Username: u, Success: true})
		resp.SuccessCount++
	}
	return resp
}

type fakeSearch struct{}

func (fakeSearch) Search(_ context.Context, c types.SearchCriteria) (*types.SearchResponse, error) {
	return &types.SearchResponse{Results: []types.SearchResult{}, Suggestions: []string{}}, nil
}

func (fakeSearch) SaveSearch(_ context.Context, recruiterID uuid.UUID, req types.SaveSearchRequest) (*types.SavedSearch, error) {
	return &types.SavedSearch{ID: uuid.New(), RecruiterID: recruiterID, Name: req.Name}, nil
}

func (fakeSearch) ListSavedSearches(context.Context, uuid.UUID) ([]types.SavedSearch, error) {
	return nil, nil
}

func (fakeSearch) DeleteSavedSearch(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	return &apperr.NotFoundError{Resource: "saved search", ID: id.String()}
}

func (fakeSearch) RunSavedSearch(context.Context, uuid.UUID, uuid.UUID) (*types.SearchResponse, error) {
	return &types.SearchResponse{}, nil
}

func (fakeSearch) CreateAlert(_ context.Context, _ uuid.UUID, searchID uuid.UUID, req types.CreateAlertRequest) (*types.SearchAlert, error) {
	return &types.SearchAlert{ID: uuid.New(), SavedSearchID: searchID, Frequency: req.Frequency}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	srv        *Server
	handler    http.Handler
	portfolios *fakePortfolios
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Environment: config.EnvDevelopment, Port: 8080},
		JWT: config.JWTConfig{
			Secret:     "server-test-secret",
			Algorithm:  "HS256",
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, health Pinger) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenService(cfg.JWT)
	require.NoError(t, err)
	authSvc, err := auth.NewService(auth.Deps{
		Users:     &memUsers{users: make(map[uuid.UUID]db.User)},
		Guard:     auth.NewMemoryGuard(time.Now),
		Tokens:    tokens,
		Passwords: config.PasswordConfig{BcryptCost: bcrypt.MinCost},
		Policy:    config.AuthConfig{MaxFailedAttempts: 5, LockoutDuration: 30 * time.Minute},
	})
	require.NoError(t, err)

	portfolios := &fakePortfolios{}
	srv := New(cfg, Deps{Auth: authSvc, Portfolios: portfolios, Search: fakeSearch{}, Health: health})
	t.Cleanup(srv.limiter.Stop)
	return &testServer{srv: srv, handler: srv.Handler(), portfolios: portfolios}
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) requestOption {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withUserAgent(ua string) requestOption {
	return func(r *http.Request) { r.Header.Set("User-Agent", ua) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (ts *testServer) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testUserAgent)
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) signup(t *testing.T, email, userType string) *types.LoginResponse {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/auth/signup", types.CreateUserRequest{
		Name:     "Test User",
		Email:    email,
		Password: "correct-horse",
		UserType: userType,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", refreshCookieName)
	return nil
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	degraded := newTestServer(t, testConfig(), failingPinger{})
	w = degraded.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSignupLoginAndMe(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	signup := ts.signup(t, "Dev@Example.com", types.RoleDeveloper)
	assert.Equal(t, "dev@example.com", signup.User.Email)
	assert.Equal(t, "Bearer", signup.Tokens.TokenType)

	w := ts.do(t, http.MethodPost, "/auth/login", types.LoginRequest{Email: "dev@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	cookie := refreshCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, "/auth", cookie.Path)

	var login types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, login.Tokens.RefreshToken, cookie.Value)

	w = ts.do(t, http.MethodGet, "/auth/me", nil, withToken(login.Tokens.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	var me types.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, signup.User.ID, me.ID)
	assert.True(t, me.PasswordSet)
}

func TestSignup_Errors(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)

	w := ts.do(t, http.MethodPost, "/auth/signup", types.CreateUserRequest{Name: "x", Password: "correct-horse", UserType: "developer"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation error: email - is required", errorMessage(t, w))

	w = ts.do(t, http.MethodPost, "/auth/signup", types.CreateUserRequest{Name: "x", Email: "a@b.co", Password: "correct-horse", UserType: "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation error: user_type - must be one of: developer recruiter", errorMessage(t, w))

	w = ts.do(t, http.MethodPost, "/auth/signup", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation error: request body is required", errorMessage(t, w))

	ts.signup(t, "dup@example.com", types.RoleDeveloper)
	w = ts.do(t, http.MethodPost, "/auth/signup", types.CreateUserRequest{Name: "x", Email: "dup@example.com", Password: "correct-horse", UserType: "developer"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	ts.signup(t, "dev@example.com", types.RoleDeveloper)

	w := ts.do(t, http.MethodPost, "/auth/login", types.LoginRequest{Email: "dev@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_RotatesCookie(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	signup := ts.signup(t, "dev@example.com", types.RoleDeveloper)
	old := &http.Cookie{Name: refreshCookieName, Value: signup.Tokens.RefreshToken}

	w := ts.do(t, http.MethodPost, "/auth/refresh", nil, withCookie(old))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := refreshCookie(t, w)
	assert.NotEqual(t, old.Value, rotated.Value)

	// The used token is single-use.
	w = ts.do(t, http.MethodPost, "/auth/refresh", nil, withCookie(old))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token has been revoked", errorMessage(t, w))

	// The body is accepted when no cookie is sent.
	w = ts.do(t, http.MethodPost, "/auth/refresh", types.RefreshRequest{RefreshToken: rotated.Value})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefresh_OtherDevice(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	signup := ts.signup(t, "dev@example.com", types.RoleDeveloper)

	w := ts.do(t, http.MethodPost, "/auth/refresh", nil,
		withCookie(&http.Cookie{Name: refreshCookieName, Value: signup.Tokens.RefreshToken}),
		withUserAgent("curl/8.0"),
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, -1, refreshCookie(t, w).MaxAge)
}

func TestRefresh_MissingToken(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	w := ts.do(t, http.MethodPost, "/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing token", errorMessage(t, w))
}

func TestLogout_RevokesTokens(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	signup := ts.signup(t, "dev@example.com", types.RoleDeveloper)
	cookie := &http.Cookie{Name: refreshCookieName, Value: signup.Tokens.RefreshToken}

	w := ts.do(t, http.MethodPost, "/auth/logout", nil, withCookie(cookie), withToken(signup.Tokens.AccessToken))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/refresh", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/auth/me", nil, withToken(signup.Tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePassword(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	signup := ts.signup(t, "dev@example.com", types.RoleDeveloper)

	w := ts.do(t, http.MethodPut, "/auth/password",
		types.UpdatePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "new-password-1"},
		withToken(signup.Tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPut, "/auth/password",
		types.UpdatePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "new-password-1"},
		withToken(signup.Tokens.AccessToken))
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Sessions issued moments earlier, even within the same second, are gone.
	w = ts.do(t, http.MethodGet, "/auth/me", nil, withToken(signup.Tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/auth/login", types.LoginRequest{Email: "dev@example.com", Password: "new-password-1"})
	require.Equal(t, http.StatusOK, w.Code)
	var login types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = ts.do(t, http.MethodGet, "/auth/me", nil, withToken(login.Tokens.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/portfolios"},
		{http.MethodPost, "/portfolios/auto"},
		{http.MethodPost, "/github/analyze"},
		{http.MethodGet, "/github/stats/octocat"},
		{http.MethodPost, "/search"},
		{http.MethodPost, "/recruiter/analyze-batch"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := ts.do(t, rt.method, rt.path, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			w = ts.do(t, rt.method, rt.path, nil, withToken("not-a-jwt"))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRecruiterRoutes_RejectDevelopers(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	dev := ts.signup(t, "dev@example.com", types.RoleDeveloper)
	rec := ts.signup(t, "rec@example.com", types.RoleRecruiter)

	w := ts.do(t, http.MethodPost, "/search", types.SearchCriteria{Skills: []string{"go"}}, withToken(dev.Tokens.AccessToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/search", types.SearchCriteria{Skills: []string{"go"}}, withToken(rec.Tokens.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/search", types.SearchCriteria{Limit: 500}, withToken(rec.Tokens.AccessToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation error: limit - must be at most 100", errorMessage(t, w))
}

func TestSavedSearches(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	rec := ts.signup(t, "rec@example.com", types.RoleRecruiter)
	token := withToken(rec.Tokens.AccessToken)

	w := ts.do(t, http.MethodPost, "/search/saved", types.SaveSearchRequest{Name: "Go seniors"}, token)
	require.Equal(t, http.StatusCreated, w.Code)
	var saved types.SavedSearch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Equal(t, rec.User.ID, saved.RecruiterID)

	w = ts.do(t, http.MethodGet, "/search/saved", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"saved_searches":[],"count":0}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/search/saved/"+saved.ID.String()+"/alerts", types.CreateAlertRequest{Frequency: "hourly"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/search/saved/"+saved.ID.String()+"/alerts", types.CreateAlertRequest{Frequency: "weekly"}, token)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodDelete, "/search/saved/"+uuid.NewString(), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPortfolio_PassesViewer(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	dev := ts.signup(t, "dev@example.com", types.RoleDeveloper)
	id := uuid.NewString()

	w := ts.do(t, http.MethodGet, "/portfolios/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uuid.Nil, ts.portfolios.lastViewer)

	w = ts.do(t, http.MethodGet, "/portfolios/"+id, nil, withToken(dev.Tokens.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dev.User.ID, ts.portfolios.lastViewer)

	// An invalid token on a public route is treated as anonymous.
	w = ts.do(t, http.MethodGet, "/portfolios/"+id, nil, withToken("garbage"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uuid.Nil, ts.portfolios.lastViewer)

	w = ts.do(t, http.MethodGet, "/portfolios/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	dev := ts.signup(t, "dev@example.com", types.RoleDeveloper)

	ts.portfolios.getErr = &apperr.NotFoundError{Resource: "portfolio", ID: "x"}
	w := ts.do(t, http.MethodGet, "/portfolios/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "portfolio not found: x", errorMessage(t, w))

	ts.portfolios.statsErr = &apperr.ExternalServiceError{Service: "github", StatusCode: 502, Message: "bad gateway"}
	w = ts.do(t, http.MethodGet, "/github/stats/octocat", nil, withToken(dev.Tokens.AccessToken))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "github is unavailable", errorMessage(t, w))
}

func TestPortfolioRoutes(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	dev := ts.signup(t, "dev@example.com", types.RoleDeveloper)
	token := withToken(dev.Tokens.AccessToken)

	w := ts.do(t, http.MethodPost, "/portfolios/auto", types.AutoGenerateRequest{GitHubUsername: "OctoCat"}, token)
	require.Equal(t, http.StatusCreated, w.Code)
	var p types.Portfolio
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, dev.User.ID, p.OwnerID)
	assert.Equal(t, "octocat", p.GitHubUsername)

	w = ts.do(t, http.MethodPost, "/portfolios", types.CreatePortfolioRequest{GitHubUsername: "octocat"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/portfolios", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"portfolios":[],"count":0}`, w.Body.String())

	w = ts.do(t, http.MethodDelete, "/portfolios/"+p.ID.String(), nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/portfolios/"+p.ID.String()+"/insights", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/github/cache/octocat", nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBatchAnalyze(t *testing.T) {
	ts := newTestServer(t, testConfig(), nil)
	rec := ts.signup(t, "rec@example.com", types.RoleRecruiter)
	token := withToken(rec.Tokens.AccessToken)

	w := ts.do(t, http.MethodPost, "/recruiter/analyze-batch", types.BatchAnalyzeRequest{Usernames: []string{"a", "b"}}, token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp types.BatchAnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.SuccessCount)

	w = ts.do(t, http.MethodPost, "/recruiter/analyze-batch", types.BatchAnalyzeRequest{Usernames: []string{}}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  2,
		DefaultWindow: time.Minute,
	}
	ts := newTestServer(t, cfg, nil)
	path := "/portfolios/" + uuid.NewString()

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Contains(t, errorMessage(t, w), "rate limit exceeded")

	// Health checks are never limited.
	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	t.Run("development allows any origin when none configured", func(t *testing.T) {
		ts := newTestServer(t, testConfig(), nil)
		w := ts.do(t, http.MethodOptions, "/auth/login", nil, withHeader("Origin", "http://localhost:3000"))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("production allows configured origins only", func(t *testing.T) {
		cfg := testConfig()
		cfg.App.Environment = config.EnvProduction
		cfg.App.CORSOrigins = []string{"https://app.example.com"}
		ts := newTestServer(t, cfg, nil)

		w := ts.do(t, http.MethodGet, "/health", nil, withHeader("Origin", "https://app.example.com"))
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

		w = ts.do(t, http.MethodGet, "/health", nil, withHeader("Origin", "https://evil.example.com"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("production cookie is secure", func(t *testing.T) {
		cfg := testConfig()
		cfg.App.Environment = config.EnvProduction
		ts := newTestServer(t, cfg, nil)
		w := ts.do(t, http.MethodPost, "/auth/signup", types.CreateUserRequest{
			Name: "P", Email: "p@example.com", Password: "correct-horse", UserType: types.RoleDeveloper,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, refreshCookie(t, w).Secure)
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 30, retryAfterSeconds(30*time.Second))
	assert.Equal(t, 31, retryAfterSeconds(30*time.Second+time.Millisecond))
}
