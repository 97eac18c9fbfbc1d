package narrative

import (
	"context"
	"strings"

	"github.com/jonathan/portreviewer/internal/github"
	"github.com/jonathan/portreviewer/internal/llm"
	"github.com/jonathan/portreviewer/internal/types"
)

var craftsmanshipSchema = llm.ExtractionSchema{
	Name: "CraftsmanshipScore",
	Fields: []llm.SchemaField{
		{Name: "overall_score", Type: "0", Description: "0-100", Required: true},
		{Name: "code_quality", Type: "0", Description: "0-100", Required: true},
		{Name: "documentation", Type: "0", Description: "0-100", Required: true},
		{Name: "testing", Type: "0", Description: "0-100", Required: true},
		{Name: "project_structure", Type: "0", Description: "0-100", Required: true},
		{Name: "strengths", Type: `["string"]`},
		{Name: "improvement_areas", Type: `["string"]`},
		{Name: "recommendations", Type: `["string"]`},
	},
}

// testingTopics mark a repository as carrying test or CI tooling.
var testingTopics = map[string]bool{
	"testing":        true,
	"tdd":            true,
	"unit-testing":   true,
	"test":           true,
	"jest":           true,
	"pytest":         true,
	"ci":             true,
	"github-actions": true,
	"e2e":            true,
}

// ScoreCraftsmanship rates code quality, documentation, testing and structure.
func (a *Analyzer) ScoreCraftsmanship(ctx context.Context, username string, repos []types.Repository) types.CraftsmanshipScore {
	s, _ := a.scoreCraftsmanship(ctx, username, repos)
	return s
}

func (a *Analyzer) scoreCraftsmanship(ctx context.Context, username string, repos []types.Repository) (types.CraftsmanshipScore, bool) {
	var s types.CraftsmanshipScore
	err := a.ask(ctx, request{
		key:    "craftsmanship",
		schema: craftsmanshipSchema,
		vars:   baseVars(username, repos),
		input:  digest(repos),
		tier:   llm.TierAdvanced,
	}, &s)
	if err != nil {
		a.fallback("craftsmanship", username, err)
		return FallbackCraftsmanship(repos), false
	}
	s.Overall = clamp(s.Overall, 0, 100)
	s.CodeQuality = clamp(s.CodeQuality, 0, 100)
	s.Documentation = clamp(s.Documentation, 0, 100)
	s.Testing = clamp(s.Testing, 0, 100)
	s.ProjectStructure = clamp(s.ProjectStructure, 0, 100)
	s.AnalyzedRepositories = len(repos)
	return s, true
}

// FallbackCraftsmanship scores repos from README, license, description, topic and
// test-tooling ratios.
func FallbackCraftsmanship(repos []types.Repository) types.CraftsmanshipScore {
	s := types.CraftsmanshipScore{
		Strengths:            []string{},
		ImprovementAreas:     []string{},
		Recommendations:      []string{},
		AnalyzedRepositories: len(repos),
	}
	if len(repos) == 0 {
		s.ImprovementAreas = append(s.ImprovementAreas, "no public repositories to evaluate")
		return s
	}

	patterns := github.RepositoryPatterns(repos)
	var described, withTopics, tested int
	for _, r := range repos {
		if strings.TrimSpace(r.Description) != "" {
			described++
		}
		if len(r.Topics) > 0 {
			withTopics++
		}
		for _, t := range r.Topics {
			if testingTopics[strings.ToLower(t)] {
				tested++
				break
			}
		}
	}
	n := float64(len(repos))
	descRatio := float64(described) / n
	topicRatio := float64(withTopics) / n
	testRatio := float64(tested) / n

	s.Documentation = round1(patterns.DocumentationRatio * 100)
	s.CodeQuality = round1(50 + 25*patterns.LicenseRatio + 25*descRatio)
	s.Testing = round1(20 + 80*testRatio)
	s.ProjectStructure = round1(40 + 30*topicRatio + 30*patterns.LicenseRatio)
	s.Overall = round1((s.Documentation + s.CodeQuality + s.Testing + s.ProjectStructure) / 4)

	if patterns.DocumentationRatio >= 0.75 {
		s.Strengths = append(s.Strengths, "consistent README coverage")
	} else {
		s.ImprovementAreas = append(s.ImprovementAreas, "documentation coverage")
		s.Recommendations = append(s.Recommendations, "add a README describing setup and usage to each project")
	}
	if patterns.LicenseRatio >= 0.5 {
		s.Strengths = append(s.Strengths, "projects are licensed")
	} else {
		s.Recommendations = append(s.Recommendations, "add an open source license to public projects")
	}
	if testRatio < 0.25 {
		s.ImprovementAreas = append(s.ImprovementAreas, "visible testing practices")
		s.Recommendations = append(s.Recommendations, "add automated tests and CI to key repositories")
	} else {
		s.Strengths = append(s.Strengths, "test tooling present")
	}
	return s
}
