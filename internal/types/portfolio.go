package types

import (
	"time"

	"github.com/google/uuid"
)

// Portfolio is a stored candidate profile built from a developer's GitHub data.
// GitHubUsername is the canonical lookup key and is always lowercased.
type Portfolio struct {
	ID                 uuid.UUID           `json:"id"`
	OwnerID            uuid.UUID           `json:"owner_id"`
	GitHubUsername     string              `json:"github_username"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Skills             []string            `json:"skills"`
	Analysis           *ProfileAnalysis    `json:"ai_analysis,omitempty"`
	Craftsmanship      *CraftsmanshipScore `json:"craftsmanship_score,omitempty"`
	Content            *GeneratedContent   `json:"generated_content,omitempty"`
	InterviewQuestions []InterviewQuestion `json:"interview_questions,omitempty"`
	Insights           *RecruiterInsights  `json:"recruiter_insights,omitempty"`
	Repositories       []Repository        `json:"repositories"`
	IsPublic           bool                `json:"is_public"`
	ViewCount          int                 `json:"view_count"`
	LastGitHubSync     *time.Time          `json:"last_github_sync,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// CreatePortfolioRequest creates a portfolio by hand.
type CreatePortfolioRequest struct {
	GitHubUsername string   `json:"github_username" validate:"required,min=1,max=39"`
	Title          string   `json:"title" validate:"required,min=1,max=200"`
	Description    string   `json:"description" validate:"max=5000"`
	Skills         []string `json:"skills" validate:"max=100,dive,min=1,max=50"`
	IsPublic       *bool    `json:"is_public,omitempty"`
}

// UpdatePortfolioRequest applies a partial update. Nil fields are left unchanged.
type UpdatePortfolioRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Skills      []string `json:"skills,omitempty" validate:"omitempty,max=100,dive,min=1,max=50"`
	IsPublic    *bool    `json:"is_public,omitempty"`
}

// AutoGenerateRequest asks for a portfolio generated from a GitHub account.
type AutoGenerateRequest struct {
	GitHubUsername string `json:"github_username" validate:"required,min=1,max=39"`
	IsPublic       *bool  `json:"is_public,omitempty"`
}

// AnalyzeRequest asks for a GitHub analysis without persisting a portfolio.
type AnalyzeRequest struct {
	Username string `json:"username" validate:"required,min=1,max=39"`
}

// GitHubAnalysis is the response of an on-demand GitHub analysis.
type GitHubAnalysis struct {
	Username     string             `json:"username"`
	Repositories []Repository       `json:"repositories"`
	Stats        ActivityStats      `json:"stats"`
	Patterns     RepositoryPatterns `json:"patterns"`
	Insights     NarrativeReport    `json:"insights"`
	Cached       bool               `json:"cached"`
}

// GitHubStats is the repository summary returned without a narrative analysis.
// User is nil and TotalCommits 0 when GitHub could not supply them.
type GitHubStats struct {
	Username     string             `json:"username"`
	User         *GitHubUser        `json:"user_data"`
	Stats        ActivityStats      `json:"stats"`
	Patterns     RepositoryPatterns `json:"patterns"`
	TotalCommits int                `json:"total_commits"`
}

// BatchAnalyzeRequest analyzes many candidates at once.
type BatchAnalyzeRequest struct {
	Usernames []string `json:"usernames" validate:"required,min=1,max=50,dive,min=1,max=39"`
}

// BatchItemResult is the outcome for one candidate of a batch.
type BatchItemResult struct {
	Username    string             `json:"username"`
	Success     bool               `json:"success"`
	PortfolioID *uuid.UUID         `json:"portfolio_id,omitempty"`
	Insights    *RecruiterInsights `json:"insights,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// BatchAnalyzeResponse reports per-item outcomes with success and failure counts.
type BatchAnalyzeResponse struct {
	Results      []BatchItemResult `json:"results"`
	SuccessCount int               `json:"success_count"`
	FailureCount int               `json:"failure_count"`
}
