package narrative

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/llm"
	"github.com/jonathan/portreviewer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient answers by matching a marker phrase from each prompt template.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	prompts   []string
}

var promptMarkers = map[string]string{
	"profile":       "senior engineering manager",
	"craftsmanship": "code reviewer",
	"content":       "technical writer",
	"questions":     "technical interviewer",
	"insights":      "technical recruiter",
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	for part, marker := range promptMarkers {
		if !strings.Contains(prompt, marker) {
			continue
		}
		if err := f.errs[part]; err != nil {
			return "", err
		}
		if resp, ok := f.responses[part]; ok {
			return resp, nil
		}
	}
	return "", errors.New("no canned response")
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateContent(ctx, prompt, tier)
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeClient) Close() error                  { return nil }

func testRepos() []types.Repository {
	pushed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []types.Repository{
		{
			Name:            "api-server",
			Description:     "REST API for widgets",
			Language:        "Go",
			StargazersCount: 12,
			Topics:          []string{"api", "testing"},
			HasReadme:       true,
			HasLicense:      true,
			LicenseName:     "MIT",
			PushedAt:        pushed,
		},
		{
			Name:     "dotfiles",
			Language: "Shell",
			Fork:     true,
			PushedAt: pushed.Add(-400 * 24 * time.Hour),
		},
	}
}

func newTestAnalyzer(t *testing.T, client *fakeClient) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(client, nil)
	require.NoError(t, err)
	return a
}

func TestNewAnalyzer_NilClient(t *testing.T) {
	_, err := NewAnalyzer(nil, nil)
	var cfgErr *apperr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "GEMINI_API_KEY", cfgErr.Key)
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		label      string
		confidence float64
		want       float64
	}{
		{"low", 1, 30},
		{"moderate", 0.5, 30},
		{"high", 0.8, 68},
		{"HIGH", 0.8, 68},
		{"excellent", 1.5, 95},
		{"excellent", -0.2, 0},
		{"outstanding", 1, 0},
		{"", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.InDelta(t, tt.want, QualityScore(tt.label, tt.confidence), 1e-9)
		})
	}
}

func TestAnalyzeProfile_ParsesWrappedResponse(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"profile": "Here is the analysis:\n```json\n" + `{
			"technical_skills": {"Go": 0.9, "Docker": 1.4},
			"most_active_languages": [{"language": "Go", "repos": 1, "percentage": 100}],
			"experience_level": "Senior",
			"specializations": ["backend"],
			"project_quality_assessment": "High",
			"analysis_confidence": 0.8
		}` + "\n```\nLet me know if you need more.",
	}}
	a := newTestAnalyzer(t, client)

	p := a.AnalyzeProfile(context.Background(), "octocat", testRepos())

	assert.Equal(t, 0.9, p.TechnicalSkills["Go"])
	assert.Equal(t, 1.0, p.TechnicalSkills["Docker"])
	assert.Equal(t, types.LevelSenior, p.ExperienceLevel)
	assert.Equal(t, types.QualityHigh, p.ProjectQualityAssessment)
	assert.InDelta(t, 68.0, p.QualityScore, 1e-9)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "octocat")
	assert.Contains(t, client.prompts[0], "api-server")
	assert.NotContains(t, client.prompts[0], "{{.")
}

func TestAnalyzeProfile_FallbackOnFailure(t *testing.T) {
	repos := testRepos()
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{"model error", &fakeClient{errs: map[string]error{"profile": errors.New("quota exceeded")}}},
		{"no JSON", &fakeClient{responses: map[string]string{"profile": "I cannot help with that."}}},
		{"missing required field", &fakeClient{responses: map[string]string{"profile": `{"technical_skills": {"Go": 0.5}}`}}},
		{"wrong types", &fakeClient{responses: map[string]string{"profile": `{"technical_skills": "Go", "most_active_languages": [], "experience_level": "mid", "project_quality_assessment": "low", "analysis_confidence": 0.5}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, tt.client)
			assert.Equal(t, FallbackProfile(repos), a.AnalyzeProfile(context.Background(), "octocat", repos))
		})
	}
}

func TestFallbackProfile(t *testing.T) {
	p := FallbackProfile(testRepos())

	assert.Equal(t, types.LevelJunior, p.ExperienceLevel)
	assert.Equal(t, map[string]float64{"Go": 0.5, "Shell": 0.5}, p.TechnicalSkills)
	require.Len(t, p.MostActiveLanguages, 2)
	assert.Equal(t, "Go", p.MostActiveLanguages[0].Language)
	assert.Equal(t, 50.0, p.MostActiveLanguages[0].Percentage)
	assert.Equal(t, types.QualityModerate, p.ProjectQualityAssessment)
	assert.Contains(t, p.Specializations, "backend-service")
	assert.InDelta(t, QualityScore(types.QualityModerate, 0.3), p.QualityScore, 1e-9)
}

func TestFallbackProfile_NoRepositories(t *testing.T) {
	p := FallbackProfile(nil)
	assert.Equal(t, types.LevelJunior, p.ExperienceLevel)
	assert.Empty(t, p.TechnicalSkills)
	assert.Zero(t, p.QualityScore)
}

func TestScoreCraftsmanship_ClampsModelScores(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"craftsmanship": `{"overall_score": 120, "code_quality": 80, "documentation": -5, "testing": 60, "project_structure": 70}`,
	}}
	a := newTestAnalyzer(t, client)

	s := a.ScoreCraftsmanship(context.Background(), "octocat", testRepos())
	assert.Equal(t, 100.0, s.Overall)
	assert.Equal(t, 0.0, s.Documentation)
	assert.Equal(t, 2, s.AnalyzedRepositories)
}

func TestFallbackCraftsmanship(t *testing.T) {
	s := FallbackCraftsmanship(testRepos())

	assert.InDelta(t, 50.0, s.Documentation, 1e-9)
	assert.InDelta(t, 75.0, s.CodeQuality, 1e-9)
	assert.InDelta(t, 60.0, s.Testing, 1e-9)
	assert.InDelta(t, 70.0, s.ProjectStructure, 1e-9)
	assert.InDelta(t, 63.8, s.Overall, 1e-9)
	assert.Equal(t, 2, s.AnalyzedRepositories)
	assert.Contains(t, s.ImprovementAreas, "documentation coverage")
	assert.Contains(t, s.Strengths, "projects are licensed")
}

func TestFallbackCraftsmanship_NoRepositories(t *testing.T) {
	s := FallbackCraftsmanship(nil)
	assert.Zero(t, s.Overall)
	assert.Zero(t, s.AnalyzedRepositories)
}

func TestFallbackContent(t *testing.T) {
	c := FallbackContent("octocat", testRepos())

	assert.Equal(t, "octocat - Developer Portfolio", c.Headline)
	assert.Equal(t, "I'm octocat, a developer specializing in Go, Shell.", c.Bio)
	assert.Equal(t, map[string]string{
		"api-server": "REST API for widgets Built with Go. 12 stars.",
	}, c.ProjectDescriptions)
	assert.Contains(t, c.SkillsSummary, "2 public repositories")
}

func TestFallbackQuestions(t *testing.T) {
	q := FallbackQuestions(testRepos())
	require.Len(t, q, 3)
	assert.Equal(t, "api-server", q[0].Repository)
	assert.Equal(t, "architecture", q[0].Category)
	assert.Contains(t, q[2].Question, "Go")

	generic := FallbackQuestions(nil)
	assert.Len(t, generic, 2)
}

func TestInterviewQuestions_EmptyListFallsBack(t *testing.T) {
	client := &fakeClient{responses: map[string]string{"questions": `{"questions": []}`}}
	a := newTestAnalyzer(t, client)

	q := a.InterviewQuestions(context.Background(), "octocat", testRepos())
	assert.Equal(t, FallbackQuestions(testRepos()), q)
}

func TestAnalyzeCandidate(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"insights": `{"summary": "Solid backend engineer.", "strengths": ["Go"], "hiring_recommendation": " YES ", "confidence": 3}`,
	}}
	a := newTestAnalyzer(t, client)

	ins := a.AnalyzeCandidate(context.Background(), "octocat", testRepos(), nil)
	assert.Equal(t, "Solid backend engineer.", ins.Summary)
	assert.Equal(t, RecommendYes, ins.HiringRecommendation)
	assert.Equal(t, 1.0, ins.Confidence)
}

func TestFallbackInsights(t *testing.T) {
	ins := FallbackInsights("octocat", testRepos())

	assert.Equal(t, "octocat has 2 public repositories (1 original) with 12 total stars, mostly in Go, Shell.", ins.Summary)
	assert.Equal(t, RecommendMaybe, ins.HiringRecommendation)
	assert.Contains(t, ins.RecommendedRoles, "Backend Engineer")
	assert.Contains(t, ins.Concerns, "many repositories lack a README")
}

func TestAnalyzeAll_PartialFailure(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"profile":   `{"technical_skills": {"Go": 0.9}, "most_active_languages": [], "experience_level": "mid", "project_quality_assessment": "excellent", "analysis_confidence": 1}`,
			"content":   `{"headline": "Backend engineer", "bio": "I build APIs.", "skills_summary": "Go"}`,
			"questions": `{"questions": [{"question": "Why Go?", "category": "implementation", "difficulty": "easy"}]}`,
		},
		errs: map[string]error{"craftsmanship": errors.New("timeout")},
	}
	a := newTestAnalyzer(t, client)
	repos := testRepos()

	report := a.AnalyzeAll(context.Background(), "octocat", repos)

	assert.Equal(t, []string{PartCraftsmanship}, report.Fallbacks)
	assert.Equal(t, FallbackCraftsmanship(repos), report.Craftsmanship)
	assert.InDelta(t, 95.0, report.Profile.QualityScore, 1e-9)
	assert.Equal(t, "Backend engineer", report.Content.Headline)
	assert.NotNil(t, report.Content.ProjectDescriptions)
	require.Len(t, report.InterviewQuestions, 1)
	assert.Equal(t, "Why Go?", report.InterviewQuestions[0].Question)
	assert.Len(t, client.prompts, 4)
}

func TestAnalyzeAll_AllFallbacks(t *testing.T) {
	a := newTestAnalyzer(t, &fakeClient{})

	report := a.AnalyzeAll(context.Background(), "octocat", nil)
	assert.Equal(t, []string{PartContent, PartCraftsmanship, PartInterviewQuestions, PartProfile}, report.Fallbacks)
}

func TestDecodeResponse(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	err := decodeResponse("test", `noise {"name": "a {b}"} trailing`, []string{"name"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "a {b}", out.Name)

	err = decodeResponse("test", `{"name": null}`, []string{"name"}, &out)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), `missing field "name"`)
}
