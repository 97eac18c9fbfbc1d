package search

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/portreviewer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRepos(n int, fork bool, topics ...string) []types.Repository {
	out := make([]types.Repository, n)
	for i := range out {
		out[i] = types.Repository{Name: fmt.Sprintf("repo-%d", i), Fork: fork, Topics: topics}
	}
	return out
}

func makeCandidate(title string, skills []string, craft float64, repoCount int) Candidate {
	return Candidate{
		ID:            uuid.New(),
		Title:         title,
		Skills:        skills,
		Craftsmanship: craft,
		Repositories:  makeRepos(repoCount, false),
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestNormalize_Defaults(t *testing.T) {
	c := Normalize(types.SearchCriteria{})
	assert.Equal(t, DefaultLimit, c.Limit)
	assert.Equal(t, types.SortRelevance, c.SortBy)
	assert.Equal(t, "desc", c.SortOrder)
	require.NotNil(t, c.ExcludeForks)
	assert.True(t, *c.ExcludeForks)

	c = Normalize(types.SearchCriteria{Limit: 500, ExcludeForks: boolPtr(false)})
	assert.Equal(t, MaxLimit, c.Limit)
	assert.False(t, *c.ExcludeForks)
}

func TestMatchScore_AlwaysIncludedTermsOnly(t *testing.T) {
	for _, tt := range []struct {
		craft float64
		repos int
	}{
		{0, 0}, {63, 7}, {100, 20}, {42.5, 35}, {80, 1},
	} {
		t.Run(fmt.Sprintf("craft=%v repos=%d", tt.craft, tt.repos), func(t *testing.T) {
			cand := makeCandidate("c", nil, tt.craft, tt.repos)
			repoTerm := float64(tt.repos) / 20
			if repoTerm > 1 {
				repoTerm = 1
			}
			want := (tt.craft/100*0.25 + repoTerm*0.20) / 0.45
			if want > 1 {
				want = 1
			}
			assert.InDelta(t, want, MatchScore(types.SearchCriteria{}, cand), 1e-9)
		})
	}
}

func TestMatchScore_ClampsOutOfRangeInputs(t *testing.T) {
	high := makeCandidate("high", []string{"go"}, 150, 500)
	score := MatchScore(types.SearchCriteria{Skills: []string{"Go"}}, high)
	assert.InDelta(t, 1.0, score, 1e-9)

	low := makeCandidate("low", nil, -40, 0)
	assert.Equal(t, 0.0, MatchScore(types.SearchCriteria{}, low))
}

func TestMatchScore_ZeroRepositoriesNoSkills(t *testing.T) {
	cand := makeCandidate("new", nil, 90, 0)
	assert.InDelta(t, 0.9*0.25/0.45, MatchScore(types.SearchCriteria{}, cand), 1e-9)
}

func TestMatchScore_OptionalTermsJoinDenominator(t *testing.T) {
	cand := makeCandidate("c", []string{"React", "css"}, 60, 10)
	cand.Languages = []string{"TypeScript"}

	criteria := types.SearchCriteria{
		Skills:           []string{"react", "go"},
		PrimaryLanguages: []string{"typescript"},
	}
	want := (0.5*0.30 + 1*0.25 + 0.6*0.25 + 0.5*0.20) / 1.0
	assert.InDelta(t, want, MatchScore(criteria, cand), 1e-9)

	skillsOnly := types.SearchCriteria{Skills: []string{"REACT"}}
	want = (1*0.30 + 0.6*0.25 + 0.5*0.20) / 0.75
	assert.InDelta(t, want, MatchScore(skillsOnly, cand), 1e-9)
}

func TestMatchScore_ForksLeaveRepositoryTerm(t *testing.T) {
	cand := makeCandidate("c", nil, 0, 0)
	cand.Repositories = append(makeRepos(10, false), makeRepos(10, true)...)

	excluded := MatchScore(types.SearchCriteria{}, cand)
	included := MatchScore(types.SearchCriteria{ExcludeForks: boolPtr(false)}, cand)

	assert.InDelta(t, 0.5*0.20/0.45, excluded, 1e-9)
	assert.InDelta(t, 1*0.20/0.45, included, 1e-9)
}

func TestMatches(t *testing.T) {
	base := makeCandidate("base", []string{"React", "Node.js"}, 72, 12)
	base.Languages = []string{"JavaScript", "TypeScript"}
	base.Documentation = 78
	base.Testing = 40
	base.Repositories[0].Topics = []string{"nextjs"}

	forksOnly := makeCandidate("forks", []string{"react"}, 90, 0)
	forksOnly.Repositories = makeRepos(15, true, "react")

	tests := []struct {
		name     string
		criteria types.SearchCriteria
		cand     Candidate
		want     bool
	}{
		{"no filters", types.SearchCriteria{}, base, true},
		{"skill intersects case-insensitively", types.SearchCriteria{Skills: []string{"react", "python"}}, base, true},
		{"skill disjoint", types.SearchCriteria{Skills: []string{"python"}}, base, false},
		{"blank skill filters nothing", types.SearchCriteria{Skills: []string{" "}}, base, true},
		{"blank skill beside a real one", types.SearchCriteria{Skills: []string{" ", "python"}}, base, false},
		{"min score met", types.SearchCriteria{MinGitHubScore: floatPtr(72)}, base, true},
		{"min score missed", types.SearchCriteria{MinGitHubScore: floatPtr(72.1)}, base, false},
		{"language intersects", types.SearchCriteria{PrimaryLanguages: []string{"typescript"}}, base, true},
		{"language disjoint", types.SearchCriteria{PrimaryLanguages: []string{"Rust"}}, base, false},
		{"blank language filters nothing", types.SearchCriteria{PrimaryLanguages: []string{"", "  "}}, base, true},
		{"min repositories met", types.SearchCriteria{MinRepositories: intPtr(12)}, base, true},
		{"min repositories missed", types.SearchCriteria{MinRepositories: intPtr(13)}, base, false},
		{"forks do not count toward min repositories", types.SearchCriteria{MinRepositories: intPtr(1)}, forksOnly, false},
		{"forks count when not excluded", types.SearchCriteria{MinRepositories: intPtr(1), ExcludeForks: boolPtr(false)}, forksOnly, true},
		{"exclude forks alone does not drop a candidate", types.SearchCriteria{ExcludeForks: boolPtr(true)}, forksOnly, true},
		{"requires original projects", types.SearchCriteria{RequiresOriginalProjects: true}, forksOnly, false},
		{"documentation good", types.SearchCriteria{DocumentationQuality: types.TierGood}, base, true},
		{"documentation below excellent", types.SearchCriteria{DocumentationQuality: types.TierExcellent}, base, false},
		{"testing fair", types.SearchCriteria{TestingPractices: types.TierFair}, base, true},
		{"testing below good", types.SearchCriteria{TestingPractices: types.TierGood}, base, false},
		{"testing poor admits zero", types.SearchCriteria{TestingPractices: types.TierPoor}, forksOnly, true},
		{"next.js non-forked query", types.SearchCriteria{CustomQuery: "Experience with Next.js in a non-forked project"}, base, true},
		{"next.js non-forked query needs an original repo", types.SearchCriteria{CustomQuery: "next.js non-forked"}, forksOnly, false},
		{"strong documentation query", types.SearchCriteria{CustomQuery: "strong documentation"}, base, true},
		{"strong documentation query missed", types.SearchCriteria{CustomQuery: "Strong Documentation"}, forksOnly, false},
		{"unrecognized query adds nothing", types.SearchCriteria{CustomQuery: "kubernetes wizard"}, forksOnly, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.criteria, tt.cand))
		})
	}
}

func TestRank_StableForEqualKeys(t *testing.T) {
	a := makeCandidate("a", nil, 50, 5)
	b := makeCandidate("b", nil, 50, 5)
	c := makeCandidate("c", nil, 90, 5)

	desc := Rank(types.SearchCriteria{SortBy: types.SortRelevance, SortOrder: "desc"}, []Candidate{a, b, c})
	assert.Equal(t, []string{"c", "a", "b"}, titles(desc))

	asc := Rank(types.SearchCriteria{SortBy: types.SortRelevance, SortOrder: "asc"}, []Candidate{a, b, c})
	assert.Equal(t, []string{"a", "b", "c"}, titles(asc))
}

func TestRank_SortKeys(t *testing.T) {
	older := makeCandidate("older", nil, 90, 0)
	older.CreatedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := makeCandidate("newer", nil, 10, 20)
	newer.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	corpus := []Candidate{older, newer}
	assert.Equal(t, []string{"older", "newer"}, titles(Rank(types.SearchCriteria{SortBy: types.SortScore, SortOrder: "desc"}, corpus)))
	assert.Equal(t, []string{"newer", "older"}, titles(Rank(types.SearchCriteria{SortBy: types.SortScore, SortOrder: "asc"}, corpus)))
	assert.Equal(t, []string{"newer", "older"}, titles(Rank(types.SearchCriteria{SortBy: types.SortCreatedAt, SortOrder: "desc"}, corpus)))
	assert.Equal(t, []string{"older", "newer"}, titles(Rank(types.SearchCriteria{SortBy: types.SortCreatedAt, SortOrder: "asc"}, corpus)))
}

func titles(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Title
	}
	return out
}

func testCorpus() []Candidate {
	var corpus []Candidate
	for i := 0; i < 30; i++ {
		c := makeCandidate(fmt.Sprintf("cand-%02d", i), []string{"go"}, float64((i*37)%100), i%25)
		if i%3 == 0 {
			c.Skills = append(c.Skills, "react")
		}
		corpus = append(corpus, c)
	}
	return corpus
}

func TestRun_Idempotent(t *testing.T) {
	criteria := types.SearchCriteria{Skills: []string{"react"}, Limit: 100}
	corpus := testCorpus()

	first, total1 := Run(criteria, corpus)
	second, total2 := Run(criteria, corpus)
	assert.Equal(t, total1, total2)
	assert.Equal(t, first, second)
}

func TestRun_PaginationConcatenates(t *testing.T) {
	corpus := testCorpus()
	for _, sortBy := range []string{types.SortRelevance, types.SortScore, types.SortCreatedAt} {
		for _, split := range [][2]int{{1, 1}, {5, 7}, {10, 20}, {29, 5}, {30, 3}} {
			n, m := split[0], split[1]
			base := types.SearchCriteria{SortBy: sortBy}

			head := base
			head.Offset, head.Limit = 0, n
			tail := base
			tail.Offset, tail.Limit = n, m
			whole := base
			whole.Offset, whole.Limit = 0, n+m

			a, _ := Run(head, corpus)
			b, _ := Run(tail, corpus)
			all, _ := Run(whole, corpus)
			assert.Equal(t, all, append(a, b...), "sort=%s n=%d m=%d", sortBy, n, m)
		}
	}
}

func TestRun_OffsetPastEnd(t *testing.T) {
	results, total := Run(types.SearchCriteria{Offset: 100}, testCorpus())
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Equal(t, 30, total)
}

func TestRun_ReactScenario(t *testing.T) {
	var corpus []Candidate
	for i, tc := range []struct {
		skills []string
		craft  float64
	}{
		{[]string{"React", "TypeScript"}, 85},
		{[]string{"vue"}, 95},
		{[]string{"react"}, 70},
		{[]string{"react", "go"}, 60},
		{[]string{"python"}, 40},
		{[]string{"REACT"}, 99},
	} {
		c := makeCandidate(fmt.Sprintf("cand-%d", i), tc.skills, tc.craft, 4)
		corpus = append(corpus, c)
	}

	criteria := types.SearchCriteria{Skills: []string{"React"}, MinGitHubScore: floatPtr(70), Limit: 20}
	results, total := Run(criteria, corpus)

	require.Equal(t, 3, total)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"cand-5", "cand-0", "cand-2"}, []string{results[0].Title, results[1].Title, results[2].Title})
	for i, r := range results {
		assert.Greater(t, r.MatchScore, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].MatchScore, r.MatchScore)
		}
		assert.Contains(t, r.HighlightReasons, "Has 1 matching skills: react")
	}
}

func TestHighlights_PriorityAndCap(t *testing.T) {
	cand := makeCandidate("star", []string{"Go", "React", "Rust", "SQL"}, 91.25, 12)
	cand.Documentation = 80
	cand.ExperienceLevel = "Senior"

	criteria := types.SearchCriteria{Skills: []string{"sql", "go", "react", "rust"}, ExperienceLevel: "senior"}
	assert.Equal(t, []string{
		"Has 4 matching skills: sql, go, react",
		"High code craftsmanship score: 91.2/100",
		"Active developer with 12 repositories",
		"Strong documentation practices",
	}, Highlights(criteria, cand))

	cand.Craftsmanship = 50
	reasons := Highlights(criteria, cand)
	require.Len(t, reasons, 4)
	assert.Equal(t, "Matches senior experience level", reasons[3])
}

func TestHighlights_None(t *testing.T) {
	cand := makeCandidate("plain", nil, 10, 1)
	assert.Equal(t, []string{}, Highlights(types.SearchCriteria{}, cand))
}

func TestSuggestions(t *testing.T) {
	tests := []struct {
		name     string
		criteria types.SearchCriteria
		total    int
		want     []string
	}{
		{
			name:     "no results with high minimum score",
			criteria: types.SearchCriteria{Skills: []string{"go"}, MinGitHubScore: floatPtr(85)},
			total:    0,
			want: []string{
				"Try broadening your search criteria",
				"Consider removing some skill requirements",
				"Lower the minimum GitHub score requirement",
			},
		},
		{
			name:     "no results without skills",
			criteria: types.SearchCriteria{},
			total:    0,
			want: []string{
				"Try broadening your search criteria",
				"Consider removing some skill requirements",
				"Try searching for specific skills like 'React', 'Python', or 'Node.js'",
			},
		},
		{
			name:     "too many results",
			criteria: types.SearchCriteria{},
			total:    51,
			want: []string{
				"Try adding more specific skills to narrow results",
				"Consider adding experience level filter",
				"Add minimum repository or documentation requirements",
			},
		},
		{
			name:     "moderate results without skills",
			criteria: types.SearchCriteria{},
			total:    12,
			want:     []string{"Try searching for specific skills like 'React', 'Python', or 'Node.js'"},
		},
		{
			name:     "moderate results with skills",
			criteria: types.SearchCriteria{Skills: []string{"go"}},
			total:    50,
			want:     []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggestions(tt.criteria, tt.total))
		})
	}
}

func TestCandidateFromPortfolio(t *testing.T) {
	p := &types.Portfolio{
		ID:          uuid.New(),
		Title:       "Jane",
		Description: strings.Repeat("x", 250),
		Skills:      []string{"go"},
		Analysis: &types.ProfileAnalysis{
			ExperienceLevel:     "mid",
			MostActiveLanguages: []types.LanguageUsage{{Language: "Go"}, {Language: "Python"}},
		},
		Craftsmanship: &types.CraftsmanshipScore{Overall: 77, Documentation: 60, Testing: 30},
	}
	c := CandidateFromPortfolio(p)
	assert.Equal(t, []string{"Go", "Python"}, c.Languages)
	assert.Equal(t, 77.0, c.Craftsmanship)
	assert.Equal(t, 30.0, c.Testing)

	results, _ := Run(types.SearchCriteria{}, []Candidate{c})
	require.Len(t, results, 1)
	assert.Equal(t, strings.Repeat("x", 200)+"...", results[0].Summary)

	p.Insights = &types.RecruiterInsights{Summary: "Strong backend engineer."}
	assert.Equal(t, "Strong backend engineer.", CandidateFromPortfolio(p).Summary)
}

func TestFiltersApplied(t *testing.T) {
	assert.Equal(t, []string{"exclude_forks"}, FiltersApplied(Normalize(types.SearchCriteria{})))
	assert.Equal(t,
		[]string{"skills", "min_github_score", "documentation_quality", "custom_query"},
		FiltersApplied(types.SearchCriteria{
			Skills:               []string{"go"},
			MinGitHubScore:       floatPtr(50),
			ExcludeForks:         boolPtr(false),
			DocumentationQuality: types.TierGood,
			CustomQuery:          "strong documentation",
		}),
	)
}

func TestRun_BlankSkillAgreesWithScore(t *testing.T) {
	cand := makeCandidate("gopher", []string{"Go"}, 90, 3)
	criteria := types.SearchCriteria{Skills: []string{" "}}

	results, total := Run(criteria, []Candidate{cand})
	assert.Equal(t, 1, total)
	if assert.Len(t, results, 1) {
		assert.InDelta(t, MatchScore(Normalize(criteria), cand), results[0].MatchScore, 1e-9)
	}
}
