package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/portreviewer/internal/github"
	"github.com/jonathan/portreviewer/internal/narrative"
	"github.com/jonathan/portreviewer/internal/observability"
	"github.com/jonathan/portreviewer/internal/types"
)

var (
	analyzeOffline bool
	analyzeText    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <github-username>",
	Short: "Analyze a GitHub account and print the result as JSON",
	Long: `Fetch the public repositories of a GitHub account, summarize them and run the
narrative analysis. With --offline the model is not called and the deterministic
fallback analysis is printed instead. With --text a boxed summary replaces the JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeOffline, "offline", false, "Skip the model and use the statistical fallback")
	analyzeCmd.Flags().BoolVar(&analyzeText, "text", false, "Print a boxed summary instead of JSON")
	rootCmd.AddCommand(analyzeCmd)
}

// offlineReport builds a report from repository statistics only.
func offlineReport(username string, repos []types.Repository) *types.NarrativeReport {
	return &types.NarrativeReport{
		Profile:            narrative.FallbackProfile(repos),
		Craftsmanship:      narrative.FallbackCraftsmanship(repos),
		Content:            narrative.FallbackContent(username, repos),
		InterviewQuestions: narrative.FallbackQuestions(repos),
		Fallbacks: []string{
			narrative.PartContent,
			narrative.PartCraftsmanship,
			narrative.PartInterviewQuestions,
			narrative.PartProfile,
		},
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	username := strings.ToLower(strings.TrimSpace(args[0]))
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	ctx := commandContext(cmd)

	gh := github.NewClient(github.OptionsFromConfig(cfg.GitHub), log)
	repos, err := gh.ListRepositories(ctx, username)
	if err != nil {
		return err
	}

	var report *types.NarrativeReport
	if analyzeOffline {
		report = offlineReport(username, repos)
	} else {
		analyzer, client, err := newNarrator(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		report = analyzer.AnalyzeAll(ctx, username, repos)
	}

	out := types.GitHubAnalysis{
		Username:     username,
		Repositories: repos,
		Stats:        github.ActivityStats(repos, time.Now()),
		Patterns:     github.RepositoryPatterns(repos),
		Insights:     *report,
	}
	if analyzeText {
		observability.NewPrinter(cmd.OutOrStdout()).PrintAnalysis(&out)
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write analysis: %w", err)
	}
	return nil
}
