package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/portreviewer/internal/github"
	"github.com/jonathan/portreviewer/internal/llm"
	"github.com/jonathan/portreviewer/internal/types"
)

// Hiring recommendations.
const (
	RecommendStrongYes = "strong_yes"
	RecommendYes       = "yes"
	RecommendMaybe     = "maybe"
	RecommendNo        = "no"
)

var insightsSchema = llm.ExtractionSchema{
	Name: "RecruiterInsights",
	Fields: []llm.SchemaField{
		{Name: "summary", Required: true},
		{Name: "strengths", Type: `["string"]`, Required: true},
		{Name: "concerns", Type: `["string"]`},
		{Name: "recommended_roles", Type: `["string"]`},
		{Name: "hiring_recommendation", Description: "strong_yes, yes, maybe, or no", Required: true},
		{Name: "confidence", Type: "0.0", Description: "in [0,1]"},
	},
}

var rolesByProjectType = map[string]string{
	"web-frontend":    "Frontend Engineer",
	"backend-service": "Backend Engineer",
	"cli-tool":        "Developer Tools Engineer",
	"library":         "Software Engineer",
	"mobile":          "Mobile Engineer",
	"data-science":    "Data Scientist",
	"devops":          "DevOps Engineer",
	"scripting":       "Software Engineer",
}

type insightsInput struct {
	Repositories []repoDigest           `json:"repositories"`
	Report       *types.NarrativeReport `json:"prior_analysis,omitempty"`
	Stats        types.ActivityStats    `json:"activity_stats"`
}

// AnalyzeCandidate produces a recruiter-facing assessment. report may be nil.
func (a *Analyzer) AnalyzeCandidate(ctx context.Context, username string, repos []types.Repository, report *types.NarrativeReport) types.RecruiterInsights {
	stats := github.ActivityStats(repos, latestPush(repos))

	var ins types.RecruiterInsights
	err := a.ask(ctx, request{
		key:    "candidate-insights",
		schema: insightsSchema,
		vars:   baseVars(username, repos),
		input:  insightsInput{Repositories: digest(repos), Report: report, Stats: stats},
		tier:   llm.TierAdvanced,
	}, &ins)
	if err != nil {
		a.fallback("insights", username, err)
		return FallbackInsights(username, repos)
	}
	ins.HiringRecommendation = strings.ToLower(strings.TrimSpace(ins.HiringRecommendation))
	ins.Confidence = clamp(ins.Confidence, 0, 1)
	return ins
}

// FallbackInsights summarizes repos without a model. The recommendation is always
// "maybe" at low confidence.
func FallbackInsights(username string, repos []types.Repository) types.RecruiterInsights {
	stats := github.ActivityStats(repos, latestPush(repos))
	patterns := github.RepositoryPatterns(repos)

	ins := types.RecruiterInsights{
		Strengths:            []string{},
		Concerns:             []string{},
		RecommendedRoles:     []string{},
		HiringRecommendation: RecommendMaybe,
		Confidence:           0.3,
	}

	var langs []string
	for _, l := range stats.TopLanguages {
		langs = append(langs, l.Language)
	}
	ins.Summary = fmt.Sprintf("%s has %d public repositories (%d original) with %d total stars",
		username, stats.TotalRepositories, stats.OriginalRepositories, stats.TotalStars)
	if len(langs) > 0 {
		ins.Summary += ", mostly in " + strings.Join(first(langs, 3), ", ")
	}
	ins.Summary += "."

	if stats.TotalRepositories == 0 {
		ins.Concerns = append(ins.Concerns, "no public repositories to evaluate")
		ins.Confidence = 0.1
		return ins
	}
	if stats.TotalStars >= 50 {
		ins.Strengths = append(ins.Strengths, fmt.Sprintf("community traction with %d stars", stats.TotalStars))
	}
	if len(langs) >= 3 {
		ins.Strengths = append(ins.Strengths, "works across several languages")
	}
	if patterns.DocumentationRatio >= 0.75 {
		ins.Strengths = append(ins.Strengths, "documents projects consistently")
	} else {
		ins.Concerns = append(ins.Concerns, "many repositories lack a README")
	}
	if stats.OriginalRepositories == 0 {
		ins.Concerns = append(ins.Concerns, "only forked repositories")
	}

	for _, pt := range topProjectTypes(patterns.ProjectTypes, 2) {
		role := rolesByProjectType[pt]
		if role != "" && !contains(ins.RecommendedRoles, role) {
			ins.RecommendedRoles = append(ins.RecommendedRoles, role)
		}
	}
	if len(ins.RecommendedRoles) == 0 {
		ins.RecommendedRoles = append(ins.RecommendedRoles, "Software Engineer")
	}
	return ins
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
