package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/portreviewer/internal/types"
)

// Defaults applied by Normalize.
const (
	DefaultLimit     = 20
	MaxLimit         = 100
	DefaultSortBy    = types.SortRelevance
	DefaultSortOrder = "desc"
)

// Match score weights. The always-included terms sum to 0.45.
const (
	WeightSkills        = 0.30
	WeightLanguages     = 0.25
	WeightCraftsmanship = 0.25
	WeightRepositories  = 0.20

	// RepositorySaturation is the repository count at which the activity term maxes out.
	RepositorySaturation = 20
)

// tierThresholds maps a documentation or testing tier to its minimum sub-score.
var tierThresholds = map[string]float64{
	types.TierPoor:      0,
	types.TierFair:      25,
	types.TierGood:      60,
	types.TierExcellent: 80,
}

// TierThreshold returns the minimum sub-score for a quality tier.
func TierThreshold(tier string) (float64, bool) {
	v, ok := tierThresholds[strings.ToLower(tier)]
	return v, ok
}

// Custom query patterns. Only these two phrases are recognized; anything else
// adds no constraint.
var nextJSTopics = []string{"nextjs", "next.js", "react"}

const strongDocumentationScore = 75

// Normalize fills defaults: limit 20, relevance descending, forks excluded.
func Normalize(c types.SearchCriteria) types.SearchCriteria {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Limit > MaxLimit {
		c.Limit = MaxLimit
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	if c.SortBy == "" {
		c.SortBy = DefaultSortBy
	}
	if c.SortOrder == "" {
		c.SortOrder = DefaultSortOrder
	}
	if c.ExcludeForks == nil {
		excl := true
		c.ExcludeForks = &excl
	}
	return c
}

func excludeForks(c types.SearchCriteria) bool {
	return c.ExcludeForks == nil || *c.ExcludeForks
}

// Matches reports whether cand passes every filter set in c.
func Matches(c types.SearchCriteria, cand Candidate) bool {
	if hasTerms(c.Skills) && len(overlap(c.Skills, lowerSet(cand.Skills))) == 0 {
		return false
	}
	if c.MinGitHubScore != nil && cand.Craftsmanship < *c.MinGitHubScore {
		return false
	}
	if hasTerms(c.PrimaryLanguages) && len(overlap(c.PrimaryLanguages, lowerSet(cand.Languages))) == 0 {
		return false
	}
	if c.MinRepositories != nil && cand.RepositoryCount(excludeForks(c)) < *c.MinRepositories {
		return false
	}
	if c.RequiresOriginalProjects && !cand.hasOriginalRepository() {
		return false
	}
	if floor, ok := TierThreshold(c.DocumentationQuality); ok && cand.Documentation < floor {
		return false
	}
	if floor, ok := TierThreshold(c.TestingPractices); ok && cand.Testing < floor {
		return false
	}
	return matchesCustomQuery(c.CustomQuery, cand)
}

// hasTerms reports whether values holds a non-blank entry. Blank entries never filter.
func hasTerms(values []string) bool {
	return len(lowerSet(values)) > 0
}

func matchesCustomQuery(query string, cand Candidate) bool {
	q := strings.ToLower(query)
	if q == "" {
		return true
	}
	if strings.Contains(q, "next.js") && strings.Contains(q, "non-forked") && !hasOriginalWithTopic(cand, nextJSTopics) {
		return false
	}
	if strings.Contains(q, "documentation") && strings.Contains(q, "strong") && cand.Documentation < strongDocumentationScore {
		return false
	}
	return true
}

func hasOriginalWithTopic(cand Candidate, topics []string) bool {
	want := lowerSet(topics)
	for _, r := range cand.Repositories {
		if r.Fork {
			continue
		}
		for _, t := range r.Topics {
			if want[strings.ToLower(t)] {
				return true
			}
		}
	}
	return false
}

// Filter returns the candidates matching c, preserving corpus order.
func Filter(c types.SearchCriteria, corpus []Candidate) []Candidate {
	out := make([]Candidate, 0, len(corpus))
	for _, cand := range corpus {
		if Matches(c, cand) {
			out = append(out, cand)
		}
	}
	return out
}

// MatchScore computes the weighted relevance of cand in [0, 1]. Only the terms
// that apply contribute to the denominator.
func MatchScore(c types.SearchCriteria, cand Candidate) float64 {
	var score, weights float64

	if requested := lowerSet(c.Skills); len(requested) > 0 {
		matched := overlap(c.Skills, lowerSet(cand.Skills))
		score += float64(len(matched)) / float64(len(requested)) * WeightSkills
		weights += WeightSkills
	}
	if requested := lowerSet(c.PrimaryLanguages); len(requested) > 0 {
		matched := overlap(c.PrimaryLanguages, lowerSet(cand.Languages))
		score += float64(len(matched)) / float64(len(requested)) * WeightLanguages
		weights += WeightLanguages
	}

	score += clamp01(cand.Craftsmanship/100) * WeightCraftsmanship
	weights += WeightCraftsmanship

	repos := float64(cand.RepositoryCount(excludeForks(c))) / RepositorySaturation
	score += clamp01(repos) * WeightRepositories
	weights += WeightRepositories

	return clamp01(score / weights)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type scored struct {
	cand  Candidate
	score float64
}

// Rank orders candidates by c.SortBy and c.SortOrder. Equal keys keep corpus order.
func Rank(c types.SearchCriteria, cands []Candidate) []Candidate {
	items := make([]scored, len(cands))
	for i, cand := range cands {
		items[i] = scored{cand: cand, score: MatchScore(c, cand)}
	}
	rankScored(c, items)
	out := make([]Candidate, len(items))
	for i, it := range items {
		out[i] = it.cand
	}
	return out
}

func rankScored(c types.SearchCriteria, items []scored) {
	desc := !strings.EqualFold(c.SortOrder, "asc")
	less := func(a, b scored) bool {
		switch c.SortBy {
		case types.SortScore:
			return a.cand.Craftsmanship < b.cand.Craftsmanship
		case types.SortCreatedAt:
			return a.cand.CreatedAt.Before(b.cand.CreatedAt)
		default:
			return a.score < b.score
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

// Paginate slices an already filtered and ranked sequence.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) || limit <= 0 {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Run filters, scores, ranks and paginates corpus. total is the number of matches
// before pagination.
func Run(c types.SearchCriteria, corpus []Candidate) (results []types.SearchResult, total int) {
	c = Normalize(c)
	matched := Filter(c, corpus)

	items := make([]scored, len(matched))
	for i, cand := range matched {
		items[i] = scored{cand: cand, score: MatchScore(c, cand)}
	}
	rankScored(c, items)

	page := Paginate(items, c.Offset, c.Limit)
	results = make([]types.SearchResult, 0, len(page))
	for _, it := range page {
		results = append(results, toResult(c, it))
	}
	return results, len(matched)
}

func toResult(c types.SearchCriteria, it scored) types.SearchResult {
	skills := it.cand.Skills
	if skills == nil {
		skills = []string{}
	}
	return types.SearchResult{
		CandidateID:        it.cand.ID,
		Title:              it.cand.Title,
		GitHubUsername:     it.cand.GitHubUsername,
		Skills:             skills,
		CraftsmanshipScore: it.cand.Craftsmanship,
		Summary:            truncateSummary(it.cand.Summary),
		MatchScore:         it.score,
		HighlightReasons:   Highlights(c, it.cand),
	}
}

// FiltersApplied names the criteria fields that constrained the search.
func FiltersApplied(c types.SearchCriteria) []string {
	applied := []string{}
	add := func(cond bool, name string) {
		if cond {
			applied = append(applied, name)
		}
	}
	add(len(c.Skills) > 0, "skills")
	add(c.ExperienceLevel != "", "experience_level")
	add(c.MinGitHubScore != nil, "min_github_score")
	add(len(c.PrimaryLanguages) > 0, "primary_languages")
	add(c.MinRepositories != nil, "min_repositories")
	add(excludeForks(c), "exclude_forks")
	add(c.RequiresOriginalProjects, "requires_original_projects")
	add(c.DocumentationQuality != "", "documentation_quality")
	add(c.TestingPractices != "", "testing_practices")
	add(strings.TrimSpace(c.CustomQuery) != "", "custom_query")
	return applied
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
