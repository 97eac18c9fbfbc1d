package github

import (
	"sort"
	"strings"
	"time"

	"github.com/jonathan/portreviewer/internal/types"
)

// RecentWindow is how far back a push counts as recent activity.
const RecentWindow = 180 * 24 * time.Hour

// TopLanguageCount is the number of languages reported in ActivityStats.
const TopLanguageCount = 5

// ActivityStats summarizes repos as of now.
func ActivityStats(repos []types.Repository, now time.Time) types.ActivityStats {
	stats := types.ActivityStats{
		TotalRepositories: len(repos),
		TopLanguages:      []types.LanguageCount{},
	}
	cutoff := now.Add(-RecentWindow)

	for i := range repos {
		r := &repos[i]
		stats.TotalStars += r.StargazersCount
		stats.TotalForks += r.ForksCount
		if !r.Fork {
			stats.OriginalRepositories++
		}
		if !r.PushedAt.IsZero() && r.PushedAt.After(cutoff) {
			stats.RecentlyActive++
		}
		if stats.MostStarred == nil || r.StargazersCount > stats.MostStarred.StargazersCount {
			stats.MostStarred = r
		}
	}

	langs := LanguageFrequency(repos)
	if len(langs) > TopLanguageCount {
		langs = langs[:TopLanguageCount]
	}
	stats.TopLanguages = append(stats.TopLanguages, langs...)
	return stats
}

// LanguageFrequency counts primary languages, most frequent first, ties by name.
func LanguageFrequency(repos []types.Repository) []types.LanguageCount {
	counts := make(map[string]int)
	for _, r := range repos {
		if r.Language != "" {
			counts[r.Language]++
		}
	}
	out := make([]types.LanguageCount, 0, len(counts))
	for lang, n := range counts {
		out = append(out, types.LanguageCount{Language: lang, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Language < out[j].Language
	})
	return out
}

// projectTypeTopics maps a topic or language hint to a project type.
var projectTypeTopics = map[string]string{
	"react":            "web-frontend",
	"vue":              "web-frontend",
	"angular":          "web-frontend",
	"nextjs":           "web-frontend",
	"frontend":         "web-frontend",
	"api":              "backend-service",
	"rest":             "backend-service",
	"graphql":          "backend-service",
	"backend":          "backend-service",
	"cli":              "cli-tool",
	"library":          "library",
	"sdk":              "library",
	"android":          "mobile",
	"ios":              "mobile",
	"flutter":          "mobile",
	"machine-learning": "data-science",
	"deep-learning":    "data-science",
	"data-science":     "data-science",
	"docker":           "devops",
	"kubernetes":       "devops",
	"terraform":        "devops",
}

var projectTypeLanguages = map[string]string{
	"javascript":       "web-frontend",
	"typescript":       "web-frontend",
	"html":             "web-frontend",
	"css":              "web-frontend",
	"go":               "backend-service",
	"java":             "backend-service",
	"python":           "scripting",
	"jupyter notebook": "data-science",
	"swift":            "mobile",
	"kotlin":           "mobile",
	"dart":             "mobile",
	"shell":            "devops",
	"hcl":              "devops",
}

// RepositoryPatterns derives recurring traits from repos.
func RepositoryPatterns(repos []types.Repository) types.RepositoryPatterns {
	patterns := types.RepositoryPatterns{
		ProjectTypes:   make(map[string]int),
		TopicFrequency: make(map[string]int),
	}
	if len(repos) == 0 {
		return patterns
	}

	var withReadme, withLicense, totalSize int
	for _, r := range repos {
		if r.HasReadme {
			withReadme++
		}
		if r.HasLicense {
			withLicense++
		}
		totalSize += r.Size
		for _, t := range r.Topics {
			patterns.TopicFrequency[strings.ToLower(t)]++
		}
		patterns.ProjectTypes[projectType(r)]++
	}

	n := float64(len(repos))
	patterns.DocumentationRatio = float64(withReadme) / n
	patterns.LicenseRatio = float64(withLicense) / n
	patterns.AverageSize = float64(totalSize) / n
	return patterns
}

func projectType(r types.Repository) string {
	for _, t := range r.Topics {
		if pt, ok := projectTypeTopics[strings.ToLower(t)]; ok {
			return pt
		}
	}
	if pt, ok := projectTypeLanguages[strings.ToLower(r.Language)]; ok {
		return pt
	}
	return "other"
}
