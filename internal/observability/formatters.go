// Package observability provides formatted output utilities for the CLI's text mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/portreviewer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer renders analysis results as boxed, human-readable summaries.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// writeList writes up to limit items and a "... and N more" line.
func writeList(sb *strings.Builder, items []string, limit int) {
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		fmt.Fprintf(sb, "  • %s\n", items[i])
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
}

// PrintStats outputs repository totals and the top languages.
func (p *Printer) PrintStats(username string, stats types.ActivityStats) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Account:       %s\n", username)
	fmt.Fprintf(&sb, "Repositories:  %d (%d original)\n", stats.TotalRepositories, stats.OriginalRepositories)
	fmt.Fprintf(&sb, "Stars / Forks: %d / %d\n", stats.TotalStars, stats.TotalForks)
	fmt.Fprintf(&sb, "Active (90d):  %d\n", stats.RecentlyActive)
	if stats.MostStarred != nil {
		fmt.Fprintf(&sb, "Most starred:  %s (%d)\n", stats.MostStarred.Name, stats.MostStarred.StargazersCount)
	}

	if len(stats.TopLanguages) > 0 {
		sb.WriteString("\nTop Languages:\n")
		langs := make([]string, 0, len(stats.TopLanguages))
		for _, l := range stats.TopLanguages {
			langs = append(langs, fmt.Sprintf("%s (%d)", l.Language, l.Count))
		}
		writeList(&sb, langs, maxItemsToShow)
	}

	p.printBox("REPOSITORY STATS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProfile outputs the strongest skills and the assessed experience level.
func (p *Printer) PrintProfile(profile types.ProfileAnalysis) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Level:      %s\n", profile.ExperienceLevel)
	fmt.Fprintf(&sb, "Quality:    %s\n", profile.ProjectQualityAssessment)
	fmt.Fprintf(&sb, "Confidence: %.2f\n", profile.AnalysisConfidence)

	if len(profile.TechnicalSkills) > 0 {
		names := make([]string, 0, len(profile.TechnicalSkills))
		for name := range profile.TechnicalSkills {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := profile.TechnicalSkills[names[i]], profile.TechnicalSkills[names[j]]
			if a != b {
				return a > b
			}
			return names[i] < names[j]
		})
		skills := make([]string, 0, len(names))
		for _, name := range names {
			skills = append(skills, fmt.Sprintf("%s %.2f", name, profile.TechnicalSkills[name]))
		}
		sb.WriteString("\nSkills:\n")
		writeList(&sb, skills, maxItemsToShow)
	}

	if len(profile.Specializations) > 0 {
		sb.WriteString("\nSpecializations:\n")
		writeList(&sb, profile.Specializations, 3)
	}

	p.printBox("DEVELOPER PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCraftsmanship outputs the composite score and its sub-scores.
func (p *Printer) PrintCraftsmanship(score types.CraftsmanshipScore) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall:           %5.1f\n", score.Overall)
	fmt.Fprintf(&sb, "Code quality:      %5.1f\n", score.CodeQuality)
	fmt.Fprintf(&sb, "Documentation:     %5.1f\n", score.Documentation)
	fmt.Fprintf(&sb, "Testing:           %5.1f\n", score.Testing)
	fmt.Fprintf(&sb, "Project structure: %5.1f\n", score.ProjectStructure)

	if len(score.ImprovementAreas) > 0 {
		sb.WriteString("\nImprove:\n")
		writeList(&sb, score.ImprovementAreas, 3)
	}

	p.printBox(fmt.Sprintf("CRAFTSMANSHIP (%d repositories)", score.AnalyzedRepositories), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQuestions outputs the first interview questions with their category.
func (p *Printer) PrintQuestions(questions []types.InterviewQuestion) {
	if len(questions) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(questions), maxItemsToShow)
	for i := 0; i < count; i++ {
		q := questions[i]
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q.Question)
		fmt.Fprintf(&sb, "   [%s, %s]\n", q.Category, q.Difficulty)
	}
	if len(questions) > maxItemsToShow {
		fmt.Fprintf(&sb, "... and %d more questions\n", len(questions)-maxItemsToShow)
	}

	p.printBox("INTERVIEW QUESTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFallbacks outputs which parts came from the statistical fallback.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFallbacks(parts []string) {
	if len(parts) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ ALL PARTS FROM MODEL")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for _, part := range parts {
		fmt.Fprintf(&sb, "⚠ %s\n", part)
	}
	p.printBox("STATISTICAL FALLBACKS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnalysis outputs every section of an analysis in order.
func (p *Printer) PrintAnalysis(a *types.GitHubAnalysis) {
	if a == nil {
		return
	}
	p.PrintStats(a.Username, a.Stats)
	p.PrintProfile(a.Insights.Profile)
	p.PrintCraftsmanship(a.Insights.Craftsmanship)
	p.PrintQuestions(a.Insights.InterviewQuestions)
	p.PrintFallbacks(a.Insights.Fallbacks)
}
