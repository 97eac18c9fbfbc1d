package narrative

import (
	"context"
	"sort"
	"strings"

	"github.com/jonathan/portreviewer/internal/github"
	"github.com/jonathan/portreviewer/internal/llm"
	"github.com/jonathan/portreviewer/internal/types"
)

var qualityWeights = map[string]float64{
	types.QualityLow:       0.3,
	types.QualityModerate:  0.6,
	types.QualityHigh:      0.85,
	types.QualityExcellent: 0.95,
}

// QualityScore maps a quality label and a confidence to a 0-100 score.
// Unknown labels score 0 and confidence is clamped to [0, 1].
func QualityScore(label string, confidence float64) float64 {
	w, ok := qualityWeights[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return 0
	}
	return w * clamp(confidence, 0, 1) * 100
}

var profileSchema = llm.ExtractionSchema{
	Name: "ProfileAnalysis",
	Fields: []llm.SchemaField{
		{Name: "technical_skills", Type: `{"skill": 0.0}`, Description: "skill name to confidence in [0,1]", Required: true},
		{Name: "most_active_languages", Type: `[{"language": "string", "repos": 0, "percentage": 0.0, "proficiency": "string"}]`, Required: true},
		{Name: "experience_level", Description: "junior, mid, senior, or lead", Required: true},
		{Name: "specializations", Type: `["string"]`},
		{Name: "project_quality_assessment", Description: "low, moderate, high, or excellent", Required: true},
		{Name: "collaboration_patterns", Type: `["string"]`},
		{Name: "code_patterns", Type: `["string"]`},
		{Name: "analysis_confidence", Type: "0.0", Description: "overall confidence in [0,1]", Required: true},
	},
}

// AnalyzeProfile reads skills, languages, experience level and project quality
// from repos.
func (a *Analyzer) AnalyzeProfile(ctx context.Context, username string, repos []types.Repository) types.ProfileAnalysis {
	p, _ := a.analyzeProfile(ctx, username, repos)
	return p
}

func (a *Analyzer) analyzeProfile(ctx context.Context, username string, repos []types.Repository) (types.ProfileAnalysis, bool) {
	var p types.ProfileAnalysis
	err := a.ask(ctx, request{
		key:    "profile-analysis",
		schema: profileSchema,
		vars:   baseVars(username, repos),
		input:  digest(repos),
		tier:   llm.TierStandard,
	}, &p)
	if err != nil {
		a.fallback("profile", username, err)
		return FallbackProfile(repos), false
	}
	normalizeProfile(&p)
	return p, true
}

func normalizeProfile(p *types.ProfileAnalysis) {
	if p.TechnicalSkills == nil {
		p.TechnicalSkills = map[string]float64{}
	}
	for skill, conf := range p.TechnicalSkills {
		p.TechnicalSkills[skill] = clamp(conf, 0, 1)
	}
	p.ExperienceLevel = strings.ToLower(strings.TrimSpace(p.ExperienceLevel))
	p.ProjectQualityAssessment = strings.ToLower(strings.TrimSpace(p.ProjectQualityAssessment))
	p.AnalysisConfidence = clamp(p.AnalysisConfidence, 0, 1)
	p.QualityScore = QualityScore(p.ProjectQualityAssessment, p.AnalysisConfidence)
}

// FallbackProfile derives a profile from language frequency, repository counts and
// star totals.
func FallbackProfile(repos []types.Repository) types.ProfileAnalysis {
	p := types.ProfileAnalysis{
		TechnicalSkills:       map[string]float64{},
		MostActiveLanguages:   []types.LanguageUsage{},
		Specializations:       []string{},
		CollaborationPatterns: []string{},
		CodePatterns:          []string{},
	}
	if len(repos) == 0 {
		p.ExperienceLevel = types.LevelJunior
		p.ProjectQualityAssessment = types.QualityLow
		return p
	}

	langs := github.LanguageFrequency(repos)
	withLanguage := 0
	for _, l := range langs {
		withLanguage += l.Count
	}
	for _, l := range langs {
		p.TechnicalSkills[l.Language] = clamp(0.4+0.1*float64(l.Count), 0, 0.9)
		p.MostActiveLanguages = append(p.MostActiveLanguages, types.LanguageUsage{
			Language:   l.Language,
			Repos:      l.Count,
			Percentage: round1(float64(l.Count) / float64(withLanguage) * 100),
		})
	}

	stats := github.ActivityStats(repos, latestPush(repos))
	switch {
	case stats.TotalRepositories >= 30 || stats.TotalStars >= 500:
		p.ExperienceLevel = types.LevelSenior
	case stats.TotalRepositories >= 10 || stats.TotalStars >= 50:
		p.ExperienceLevel = types.LevelMid
	default:
		p.ExperienceLevel = types.LevelJunior
	}

	patterns := github.RepositoryPatterns(repos)
	p.Specializations = topProjectTypes(patterns.ProjectTypes, 3)
	switch {
	case patterns.DocumentationRatio >= 0.8 && patterns.LicenseRatio >= 0.5:
		p.ProjectQualityAssessment = types.QualityHigh
	case patterns.DocumentationRatio >= 0.4:
		p.ProjectQualityAssessment = types.QualityModerate
	default:
		p.ProjectQualityAssessment = types.QualityLow
	}
	if stats.OriginalRepositories < stats.TotalRepositories {
		p.CollaborationPatterns = append(p.CollaborationPatterns, "contributes to forked projects")
	}
	if stats.TotalForks > 0 {
		p.CollaborationPatterns = append(p.CollaborationPatterns, "projects forked by others")
	}

	p.AnalysisConfidence = 0.3
	p.QualityScore = QualityScore(p.ProjectQualityAssessment, p.AnalysisConfidence)
	return p
}

func topProjectTypes(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		if name != "other" {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}
