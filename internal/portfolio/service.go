// Package portfolio builds, stores and serves candidate portfolios generated
// from GitHub repository data and narrative analysis.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/cache"
	"github.com/jonathan/portreviewer/internal/github"
	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// maxSkills caps the skill list derived from an analysis.
	maxSkills = 20
	// commitSampleSize bounds the repositories probed for the commit estimate.
	commitSampleSize = 5
)

// Store persists portfolios. GetPortfolioByUsername returns nil, nil when absent.
type Store interface {
	CreatePortfolio(ctx context.Context, p *types.Portfolio) error
	GetPortfolio(ctx context.Context, id uuid.UUID) (*types.Portfolio, error)
	GetPortfolioByUsername(ctx context.Context, username string) (*types.Portfolio, error)
	ListPortfoliosByOwner(ctx context.Context, ownerID uuid.UUID) ([]types.Portfolio, error)
	UpdatePortfolio(ctx context.Context, p *types.Portfolio) error
	DeletePortfolio(ctx context.Context, id uuid.UUID) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) (int, error)
}

// Narrator produces narrative analyses. Implementations absorb model failures.
type Narrator interface {
	AnalyzeAll(ctx context.Context, username string, repos []types.Repository) *types.NarrativeReport
	AnalyzeCandidate(ctx context.Context, username string, repos []types.Repository, report *types.NarrativeReport) types.RecruiterInsights
}

// invalidator is implemented by repository listers that cache.
type invalidator interface {
	Invalidate(ctx context.Context, username string) error
}

// Service orchestrates repository fetching, analysis, caching and persistence.
type Service struct {
	store    Store
	repos    github.RepositoryLister
	profiles github.ProfileReader
	narrator Narrator
	cache    *cache.ResultCache
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithProfiles enables the account profile and commit estimate in Stats.
func WithProfiles(p github.ProfileReader) Option {
	return func(s *Service) { s.profiles = p }
}

// NewService creates a Service.
func NewService(store Store, repos github.RepositoryLister, narrator Narrator, results *cache.ResultCache, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		repos:    repos,
		narrator: narrator,
		cache:    results,
		now:      time.Now,
		log:      logger.Named(log, "portfolio"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeUsername(username string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" {
		return "", &apperr.ValidationError{Field: "github_username", Message: "username is required"}
	}
	return u, nil
}

// Create stores a hand-written portfolio owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req types.CreatePortfolioRequest) (*types.Portfolio, error) {
	username, err := normalizeUsername(req.GitHubUsername)
	if err != nil {
		return nil, err
	}
	p := &types.Portfolio{
		OwnerID:        ownerID,
		GitHubUsername: username,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Skills:         dedupe(req.Skills),
		IsPublic:       req.IsPublic == nil || *req.IsPublic,
	}
	if err := s.store.CreatePortfolio(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("portfolio created", logger.PortfolioID(p.ID), logger.Username(username))
	return p, nil
}

// Get returns a portfolio for viewerID, which is uuid.Nil for anonymous callers.
// Private portfolios are not found for anyone but the owner. Views by anyone
// other than the owner are counted.
func (s *Service) Get(ctx context.Context, id, viewerID uuid.UUID) (*types.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID == viewerID {
		return p, nil
	}
	if !p.IsPublic {
		return nil, &apperr.NotFoundError{Resource: "portfolio", ID: id.String()}
	}
	views, err := s.store.IncrementViewCount(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ViewCount = views
	return p, nil
}

// owned loads a portfolio and checks that userID owns it.
func (s *Service) owned(ctx context.Context, id, userID uuid.UUID) (*types.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != userID {
		if !p.IsPublic {
			return nil, &apperr.NotFoundError{Resource: "portfolio", ID: id.String()}
		}
		return nil, &apperr.AuthorizationError{Required: "owner"}
	}
	return p, nil
}

// Update applies a partial update. Only the owner may update.
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req types.UpdatePortfolioRequest) (*types.Portfolio, error) {
	p, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Skills != nil {
		p.Skills = dedupe(req.Skills)
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}
	if err := s.store.UpdatePortfolio(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a portfolio and the cached analyses of its username.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	p, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePortfolio(ctx, id); err != nil {
		return err
	}
	if err := s.cache.ClearUser(ctx, p.GitHubUsername); err != nil {
		s.log.Warn("failed to clear cached analyses", logger.Username(p.GitHubUsername), zap.Error(err))
	}
	s.log.Info("portfolio deleted", logger.PortfolioID(id), logger.Username(p.GitHubUsername))
	return nil
}

// ListMine returns the portfolios owned by userID, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]types.Portfolio, error) {
	list, err := s.store.ListPortfoliosByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []types.Portfolio{}
	}
	return list, nil
}

// analyze returns the narrative report for username, from the result cache
// unless fresh is set. The second result reports a cache hit.
func (s *Service) analyze(ctx context.Context, username string, repos []types.Repository, fresh bool) (*types.NarrativeReport, bool) {
	key := cache.AnalysisKey(username)
	if !fresh {
		var cached types.NarrativeReport
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("analysis cache read failed", logger.Username(username), zap.Error(err))
		}
		if hit {
			return &cached, true
		}
	}

	report := s.narrator.AnalyzeAll(ctx, username, repos)
	if err := s.cache.Set(ctx, key, report); err != nil {
		s.log.Warn("analysis cache write failed", logger.Username(username), zap.Error(err))
	}
	return report, false
}

func (s *Service) listRepositories(ctx context.Context, username string) ([]types.Repository, error) {
	repos, err := s.repos.ListRepositories(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for %s: %w", username, err)
	}
	if repos == nil {
		repos = []types.Repository{}
	}
	return repos, nil
}

// AnalyzeGitHub analyzes a GitHub account without persisting a portfolio.
func (s *Service) AnalyzeGitHub(ctx context.Context, username string) (*types.GitHubAnalysis, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	repos, err := s.listRepositories(ctx, username)
	if err != nil {
		return nil, err
	}
	report, hit := s.analyze(ctx, username, repos, false)
	return &types.GitHubAnalysis{
		Username:     username,
		Repositories: repos,
		Stats:        github.ActivityStats(repos, s.now()),
		Patterns:     github.RepositoryPatterns(repos),
		Insights:     *report,
		Cached:       hit,
	}, nil
}

// Stats summarizes a GitHub account's repositories without calling the model.
func (s *Service) Stats(ctx context.Context, username string) (*types.GitHubStats, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	repos, err := s.listRepositories(ctx, username)
	if err != nil {
		return nil, err
	}
	stats := &types.GitHubStats{
		Username: username,
		Stats:    github.ActivityStats(repos, s.now()),
		Patterns: github.RepositoryPatterns(repos),
	}
	if s.profiles == nil {
		return stats, nil
	}

	user, err := s.profiles.GetUser(ctx, username)
	if err != nil {
		s.log.Warn("github profile unavailable", logger.Username(username), zap.Error(err))
	} else {
		stats.User = user
	}
	stats.TotalCommits = s.estimateCommits(ctx, username, repos)
	return stats, nil
}

// estimateCommits sums commit counts over the most recently pushed original
// repositories. Repositories whose count fails contribute 0.
func (s *Service) estimateCommits(ctx context.Context, username string, repos []types.Repository) int {
	sample := commitSample(repos, commitSampleSize)
	counts := make([]int, len(sample))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range sample {
		g.Go(func() error {
			owner := username
			if full := strings.SplitN(r.FullName, "/", 2); len(full) == 2 && full[0] != "" {
				owner = full[0]
			}
			counts[i] = s.profiles.CommitCount(gctx, owner, r.Name)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// commitSample returns up to n non-fork repositories, most recently pushed first.
func commitSample(repos []types.Repository, n int) []types.Repository {
	var out []types.Repository
	for _, r := range repos {
		if !r.Fork {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PushedAt.After(out[j].PushedAt) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ClearCache drops the cached analyses and repository listing of username.
func (s *Service) ClearCache(ctx context.Context, username string) error {
	username, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	if err := s.cache.ClearUser(ctx, username); err != nil {
		return err
	}
	if inv, ok := s.repos.(invalidator); ok {
		if err := inv.Invalidate(ctx, username); err != nil {
			return fmt.Errorf("failed to invalidate repository listing: %w", err)
		}
	}
	return nil
}

// AutoGenerate builds a portfolio for username from its repositories and stores
// it under ownerID. An existing portfolio for the username is updated in place
// when ownerID owns it.
func (s *Service) AutoGenerate(ctx context.Context, ownerID uuid.UUID, req types.AutoGenerateRequest) (*types.Portfolio, error) {
	username, err := normalizeUsername(req.GitHubUsername)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetPortfolioByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.OwnerID != ownerID {
		return nil, &apperr.ConflictError{Message: fmt.Sprintf("a portfolio for %s already exists", username)}
	}

	repos, err := s.listRepositories(ctx, username)
	if err != nil {
		return nil, err
	}
	report, _ := s.analyze(ctx, username, repos, false)

	p := existing
	if p == nil {
		p = &types.Portfolio{OwnerID: ownerID, GitHubUsername: username, IsPublic: true}
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}
	s.apply(p, repos, report)

	if existing == nil {
		err = s.store.CreatePortfolio(ctx, p)
	} else {
		err = s.store.UpdatePortfolio(ctx, p)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("portfolio generated",
		logger.PortfolioID(p.ID),
		logger.Username(username),
		zap.Int("repositories", len(repos)),
		zap.Bool("updated", existing != nil),
	)
	return p, nil
}

// Refresh re-fetches repositories and re-runs the analysis, bypassing caches.
func (s *Service) Refresh(ctx context.Context, id, userID uuid.UUID) (*types.Portfolio, error) {
	p, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if inv, ok := s.repos.(invalidator); ok {
		if err := inv.Invalidate(ctx, p.GitHubUsername); err != nil {
			s.log.Warn("failed to invalidate repository listing", logger.Username(p.GitHubUsername), zap.Error(err))
		}
	}
	repos, err := s.listRepositories(ctx, p.GitHubUsername)
	if err != nil {
		return nil, err
	}
	report, _ := s.analyze(ctx, p.GitHubUsername, repos, true)
	s.apply(p, repos, report)
	p.Insights = nil
	if err := s.cache.Delete(ctx, cache.InsightsKey(p.GitHubUsername)); err != nil {
		s.log.Warn("failed to drop cached insights", logger.Username(p.GitHubUsername), zap.Error(err))
	}

	if err := s.store.UpdatePortfolio(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Insights returns recruiter insights for a portfolio visible to viewerID.
func (s *Service) Insights(ctx context.Context, id, viewerID uuid.UUID) (*types.RecruiterInsights, error) {
	p, err := s.store.GetPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic && p.OwnerID != viewerID {
		return nil, &apperr.NotFoundError{Resource: "portfolio", ID: id.String()}
	}
	ins := s.insights(ctx, p.GitHubUsername, p.Repositories, reportOf(p))
	return &ins, nil
}

func (s *Service) insights(ctx context.Context, username string, repos []types.Repository, report *types.NarrativeReport) types.RecruiterInsights {
	key := cache.InsightsKey(username)
	var ins types.RecruiterInsights
	hit, err := s.cache.Get(ctx, key, &ins)
	if err != nil {
		s.log.Warn("insights cache read failed", logger.Username(username), zap.Error(err))
	}
	if hit {
		return ins
	}
	ins = s.narrator.AnalyzeCandidate(ctx, username, repos, report)
	if err := s.cache.Set(ctx, key, ins); err != nil {
		s.log.Warn("insights cache write failed", logger.Username(username), zap.Error(err))
	}
	return ins
}

// apply copies repositories and analysis results onto p.
func (s *Service) apply(p *types.Portfolio, repos []types.Repository, report *types.NarrativeReport) {
	now := s.now().UTC()
	p.Repositories = repos
	p.Analysis = &report.Profile
	p.Craftsmanship = &report.Craftsmanship
	p.Content = &report.Content
	p.InterviewQuestions = report.InterviewQuestions
	p.Skills = deriveSkills(report.Profile, repos)
	p.LastGitHubSync = &now

	if h := strings.TrimSpace(report.Content.Headline); h != "" {
		p.Title = h
	} else if p.Title == "" {
		p.Title = p.GitHubUsername + "'s Portfolio"
	}
	if bio := strings.TrimSpace(report.Content.Bio); bio != "" {
		p.Description = bio
	}
}

// reportOf rebuilds a narrative report from a stored portfolio, or nil when it
// was never analyzed.
func reportOf(p *types.Portfolio) *types.NarrativeReport {
	if p.Analysis == nil {
		return nil
	}
	r := &types.NarrativeReport{Profile: *p.Analysis, InterviewQuestions: p.InterviewQuestions}
	if p.Craftsmanship != nil {
		r.Craftsmanship = *p.Craftsmanship
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	return r
}

// deriveSkills orders technical skills by confidence, then appends repository
// languages by frequency.
func deriveSkills(profile types.ProfileAnalysis, repos []types.Repository) []string {
	type scored struct {
		name  string
		score float64
	}
	ranked := make([]scored, 0, len(profile.TechnicalSkills))
	for name, score := range profile.TechnicalSkills {
		ranked = append(ranked, scored{name, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})

	skills := make([]string, 0, len(ranked))
	for _, r := range ranked {
		skills = append(skills, r.name)
	}
	for _, lc := range github.LanguageFrequency(repos) {
		skills = append(skills, lc.Language)
	}
	skills = dedupe(skills)
	if len(skills) > maxSkills {
		skills = skills[:maxSkills]
	}
	return skills
}

// dedupe trims entries and drops blanks and case-insensitive duplicates,
// keeping first occurrences.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		k := strings.ToLower(v)
		if v == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
