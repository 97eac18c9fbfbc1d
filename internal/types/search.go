package types

import (
	"time"

	"github.com/google/uuid"
)

// Sort keys for search results.
const (
	SortRelevance = "relevance"
	SortScore     = "score"
	SortCreatedAt = "created_at"
)

// Quality tiers accepted by the documentation and testing filters.
const (
	TierPoor      = "poor"
	TierFair      = "fair"
	TierGood      = "good"
	TierExcellent = "excellent"
)

// SearchCriteria is a recruiter's candidate query. Every filter is optional.
type SearchCriteria struct {
	Skills                   []string `json:"skills,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
	ExperienceLevel          string   `json:"experience_level,omitempty" validate:"omitempty,oneof=junior mid senior lead"`
	Location                 string   `json:"location,omitempty" validate:"max=100"`
	MinGitHubScore           *float64 `json:"min_github_score,omitempty" validate:"omitempty,min=0,max=100"`
	PrimaryLanguages         []string `json:"primary_languages,omitempty" validate:"omitempty,max=10,dive,min=1,max=30"`
	MinRepositories          *int     `json:"min_repositories,omitempty" validate:"omitempty,min=0"`
	ExcludeForks             *bool    `json:"exclude_forks,omitempty"`
	RequiresOriginalProjects bool     `json:"requires_original_projects,omitempty"`
	DocumentationQuality     string   `json:"documentation_quality,omitempty" validate:"omitempty,oneof=poor fair good excellent"`
	TestingPractices         string   `json:"testing_practices,omitempty" validate:"omitempty,oneof=poor fair good excellent"`
	CustomQuery              string   `json:"custom_query,omitempty" validate:"max=500"`
	Limit                    int      `json:"limit,omitempty" validate:"min=0,max=100"`
	Offset                   int      `json:"offset,omitempty" validate:"min=0"`
	SortBy                   string   `json:"sort_by,omitempty" validate:"omitempty,oneof=relevance score created_at"`
	SortOrder                string   `json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// SearchResult is one ranked candidate. Recomputed on every query.
type SearchResult struct {
	CandidateID        uuid.UUID `json:"candidate_id"`
	Title              string    `json:"title"`
	GitHubUsername     string    `json:"github_username"`
	Skills             []string  `json:"skills"`
	CraftsmanshipScore float64   `json:"craftsmanship_score"`
	Summary            string    `json:"summary"`
	MatchScore         float64   `json:"match_score"`
	HighlightReasons   []string  `json:"highlight_reasons"`
}

// SearchResponse is a page of results with the total before pagination.
type SearchResponse struct {
	Results        []SearchResult `json:"results"`
	TotalCount     int            `json:"total_count"`
	SearchTimeMS   int64          `json:"search_time_ms"`
	FiltersApplied []string       `json:"filters_applied"`
	Suggestions    []string       `json:"suggestions"`
}

// SavedSearch is a named SearchCriteria bound to a recruiter.
type SavedSearch struct {
	ID            uuid.UUID      `json:"id"`
	RecruiterID   uuid.UUID      `json:"recruiter_id"`
	Name          string         `json:"name"`
	Criteria      SearchCriteria `json:"criteria"`
	AlertsEnabled bool           `json:"alerts_enabled"`
	LastRunAt     *time.Time     `json:"last_run_at,omitempty"`
	ResultCount   int            `json:"result_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// SearchAlert notifies a recruiter when a saved search gains results. It must reference an existing SavedSearch.
type SearchAlert struct {
	ID             uuid.UUID  `json:"id"`
	SavedSearchID  uuid.UUID  `json:"saved_search_id"`
	RecruiterID    uuid.UUID  `json:"recruiter_id"`
	Frequency      string     `json:"frequency"`
	IsActive       bool       `json:"is_active"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SaveSearchRequest persists criteria under a name.
type SaveSearchRequest struct {
	Name          string         `json:"name" validate:"required,min=1,max=100"`
	Criteria      SearchCriteria `json:"criteria"`
	AlertsEnabled bool           `json:"alerts_enabled"`
}

// CreateAlertRequest attaches an alert to a saved search.
type CreateAlertRequest struct {
	Frequency string `json:"frequency" validate:"required,oneof=daily weekly"`
}
