package search

import (
	"fmt"
	"strings"

	"github.com/jonathan/portreviewer/internal/types"
)

// MaxHighlights and MaxSuggestions bound the advisory strings of a response.
const (
	MaxHighlights  = 4
	MaxSuggestions = 3
)

// Highlights explains why cand matched, in fixed priority order: matching skills,
// high craftsmanship, repository count, documentation, experience level.
func Highlights(c types.SearchCriteria, cand Candidate) []string {
	reasons := []string{}

	if len(c.Skills) > 0 {
		if matched := overlap(c.Skills, lowerSet(cand.Skills)); len(matched) > 0 {
			reasons = append(reasons, fmt.Sprintf("Has %d matching skills: %s",
				len(matched), strings.Join(firstN(matched, 3), ", ")))
		}
	}
	if cand.Craftsmanship >= 80 {
		reasons = append(reasons, "High code craftsmanship score: "+formatScore(cand.Craftsmanship)+"/100")
	}
	if n := cand.RepositoryCount(excludeForks(c)); n >= 10 {
		reasons = append(reasons, fmt.Sprintf("Active developer with %d repositories", n))
	}
	if cand.Documentation >= strongDocumentationScore {
		reasons = append(reasons, "Strong documentation practices")
	}
	if c.ExperienceLevel != "" && cand.ExperienceLevel != "" && strings.EqualFold(c.ExperienceLevel, cand.ExperienceLevel) {
		reasons = append(reasons, fmt.Sprintf("Matches %s experience level", strings.ToLower(cand.ExperienceLevel)))
	}

	return firstN(reasons, MaxHighlights)
}

// Suggestions returns advisory strings for a search that matched total candidates.
func Suggestions(c types.SearchCriteria, total int) []string {
	out := []string{}
	switch {
	case total == 0:
		out = append(out,
			"Try broadening your search criteria",
			"Consider removing some skill requirements",
		)
		if c.MinGitHubScore != nil && *c.MinGitHubScore > 70 {
			out = append(out, "Lower the minimum GitHub score requirement")
		}
	case total > 50:
		out = append(out,
			"Try adding more specific skills to narrow results",
			"Consider adding experience level filter",
			"Add minimum repository or documentation requirements",
		)
	}
	if len(c.Skills) == 0 {
		out = append(out, "Try searching for specific skills like 'React', 'Python', or 'Node.js'")
	}
	return firstN(out, MaxSuggestions)
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
