package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/types"
	"go.uber.org/zap"
)

// Store is the persistence the search service reads from and writes saved searches to.
// Get methods return *apperr.NotFoundError for missing rows.
type Store interface {
	ListPublicPortfolios(ctx context.Context) ([]types.Portfolio, error)

	CreateSavedSearch(ctx context.Context, s *types.SavedSearch) error
	GetSavedSearch(ctx context.Context, id uuid.UUID) (*types.SavedSearch, error)
	ListSavedSearches(ctx context.Context, recruiterID uuid.UUID) ([]types.SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, id uuid.UUID) error
	RecordSavedSearchRun(ctx context.Context, id uuid.UUID, at time.Time, resultCount int) error

	CreateAlert(ctx context.Context, a *types.SearchAlert) error
}

// Service answers recruiter searches over public portfolios.
type Service struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

// NewService creates a Service.
func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, now: time.Now, log: logger.Named(log, "search")}
}

// Search runs criteria against every public portfolio.
func (s *Service) Search(ctx context.Context, criteria types.SearchCriteria) (*types.SearchResponse, error) {
	start := s.now()
	criteria = Normalize(criteria)

	portfolios, err := s.store.ListPublicPortfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolios: %w", err)
	}
	corpus := make([]Candidate, 0, len(portfolios))
	for i := range portfolios {
		if portfolios[i].IsPublic {
			corpus = append(corpus, CandidateFromPortfolio(&portfolios[i]))
		}
	}

	results, total := Run(criteria, corpus)
	resp := &types.SearchResponse{
		Results:        results,
		TotalCount:     total,
		SearchTimeMS:   s.now().Sub(start).Milliseconds(),
		FiltersApplied: FiltersApplied(criteria),
		Suggestions:    Suggestions(criteria, total),
	}
	s.log.Debug("search complete",
		zap.Int("corpus", len(corpus)),
		zap.Int("total", total),
		zap.Int("returned", len(results)),
	)
	return resp, nil
}

// SaveSearch stores criteria under a name for recruiterID.
func (s *Service) SaveSearch(ctx context.Context, recruiterID uuid.UUID, req types.SaveSearchRequest) (*types.SavedSearch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &apperr.ValidationError{Field: "name", Message: "name is required"}
	}
	now := s.now().UTC()
	saved := &types.SavedSearch{
		ID:            uuid.New(),
		RecruiterID:   recruiterID,
		Name:          name,
		Criteria:      req.Criteria,
		AlertsEnabled: req.AlertsEnabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateSavedSearch(ctx, saved); err != nil {
		return nil, fmt.Errorf("failed to save search: %w", err)
	}
	s.log.Info("saved search", zap.String("saved_search_id", saved.ID.String()), logger.UserID(recruiterID))
	return saved, nil
}

// ListSavedSearches returns recruiterID's saved searches.
func (s *Service) ListSavedSearches(ctx context.Context, recruiterID uuid.UUID) ([]types.SavedSearch, error) {
	list, err := s.store.ListSavedSearches(ctx, recruiterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	if list == nil {
		list = []types.SavedSearch{}
	}
	return list, nil
}

// owned loads a saved search, hiding searches of other recruiters as not found.
func (s *Service) owned(ctx context.Context, recruiterID, id uuid.UUID) (*types.SavedSearch, error) {
	saved, err := s.store.GetSavedSearch(ctx, id)
	if err != nil {
		return nil, err
	}
	if saved.RecruiterID != recruiterID {
		return nil, &apperr.NotFoundError{Resource: "saved search", ID: id.String()}
	}
	return saved, nil
}

// DeleteSavedSearch removes a saved search and, through the foreign key, its alerts.
func (s *Service) DeleteSavedSearch(ctx context.Context, recruiterID, id uuid.UUID) error {
	if _, err := s.owned(ctx, recruiterID, id); err != nil {
		return err
	}
	if err := s.store.DeleteSavedSearch(ctx, id); err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	return nil
}

// RunSavedSearch executes a saved search and records when it ran and how many matched.
func (s *Service) RunSavedSearch(ctx context.Context, recruiterID, id uuid.UUID) (*types.SearchResponse, error) {
	saved, err := s.owned(ctx, recruiterID, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.Search(ctx, saved.Criteria)
	if err != nil {
		return nil, err
	}
	if err := s.store.RecordSavedSearchRun(ctx, id, s.now().UTC(), resp.TotalCount); err != nil {
		s.log.Warn("failed to record saved search run", zap.String("saved_search_id", id.String()), zap.Error(err))
	}
	return resp, nil
}

// CreateAlert attaches an alert to an existing saved search owned by recruiterID.
func (s *Service) CreateAlert(ctx context.Context, recruiterID, searchID uuid.UUID, req types.CreateAlertRequest) (*types.SearchAlert, error) {
	if _, err := s.owned(ctx, recruiterID, searchID); err != nil {
		return nil, err
	}
	alert := &types.SearchAlert{
		ID:            uuid.New(),
		SavedSearchID: searchID,
		RecruiterID:   recruiterID,
		Frequency:     req.Frequency,
		IsActive:      true,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	return alert, nil
}
