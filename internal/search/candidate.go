// Package search ranks stored candidate portfolios against a recruiter's criteria.
//
// The engine is pure: Filter, MatchScore, Rank and Paginate operate on an
// in-memory corpus of Candidates in insertion order. Service wires the engine to
// the portfolio store and persists saved searches.
package search

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonathan/portreviewer/internal/types"
)

// SummaryLimit is the number of characters of a summary shown in a result.
const SummaryLimit = 200

// Candidate is the search view of a public portfolio.
type Candidate struct {
	ID              uuid.UUID
	Title           string
	GitHubUsername  string
	Summary         string
	Skills          []string
	Languages       []string
	ExperienceLevel string
	Craftsmanship   float64
	Documentation   float64
	Testing         float64
	Repositories    []types.Repository
	CreatedAt       time.Time
}

// CandidateFromPortfolio flattens a portfolio into a Candidate. Missing analysis
// sections score as zero.
func CandidateFromPortfolio(p *types.Portfolio) Candidate {
	c := Candidate{
		ID:             p.ID,
		Title:          p.Title,
		GitHubUsername: p.GitHubUsername,
		Summary:        p.Description,
		Skills:         p.Skills,
		Repositories:   p.Repositories,
		CreatedAt:      p.CreatedAt,
	}
	if p.Analysis != nil {
		c.ExperienceLevel = p.Analysis.ExperienceLevel
		for _, l := range p.Analysis.MostActiveLanguages {
			c.Languages = append(c.Languages, l.Language)
		}
	}
	if p.Craftsmanship != nil {
		c.Craftsmanship = p.Craftsmanship.Overall
		c.Documentation = p.Craftsmanship.Documentation
		c.Testing = p.Craftsmanship.Testing
	}
	if p.Insights != nil && strings.TrimSpace(p.Insights.Summary) != "" {
		c.Summary = p.Insights.Summary
	}
	return c
}

// RepositoryCount counts repositories, leaving forks out when excludeForks is set.
func (c Candidate) RepositoryCount(excludeForks bool) int {
	if !excludeForks {
		return len(c.Repositories)
	}
	n := 0
	for _, r := range c.Repositories {
		if !r.Fork {
			n++
		}
	}
	return n
}

func (c Candidate) hasOriginalRepository() bool {
	return c.RepositoryCount(true) > 0
}

func truncateSummary(s string) string {
	if utf8.RuneCountInString(s) <= SummaryLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:SummaryLimit]) + "..."
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	return set
}

// overlap returns the lowercased requested values present in have, in request order.
func overlap(requested []string, have map[string]bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range requested {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		if have[r] {
			out = append(out, r)
		}
	}
	return out
}
