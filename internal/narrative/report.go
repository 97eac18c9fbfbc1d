package narrative

import (
	"context"
	"sort"
	"sync"

	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Report part names recorded in NarrativeReport.Fallbacks.
const (
	PartProfile            = "profile"
	PartCraftsmanship      = "craftsmanship"
	PartContent            = "content"
	PartInterviewQuestions = "interview_questions"
)

// AnalyzeAll runs the profile, craftsmanship, content and question prompts
// concurrently. A failed part falls back on its own and never cancels the others.
func (a *Analyzer) AnalyzeAll(ctx context.Context, username string, repos []types.Repository) *types.NarrativeReport {
	report := &types.NarrativeReport{}

	var (
		mu        sync.Mutex
		fallbacks []string
	)
	record := func(part string, ok bool) {
		if ok {
			return
		}
		mu.Lock()
		fallbacks = append(fallbacks, part)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		var ok bool
		report.Profile, ok = a.analyzeProfile(ctx, username, repos)
		record(PartProfile, ok)
		return nil
	})
	g.Go(func() error {
		var ok bool
		report.Craftsmanship, ok = a.scoreCraftsmanship(ctx, username, repos)
		record(PartCraftsmanship, ok)
		return nil
	})
	g.Go(func() error {
		var ok bool
		report.Content, ok = a.generateContent(ctx, username, repos)
		record(PartContent, ok)
		return nil
	})
	g.Go(func() error {
		var ok bool
		report.InterviewQuestions, ok = a.interviewQuestions(ctx, username, repos)
		record(PartInterviewQuestions, ok)
		return nil
	})
	_ = g.Wait()

	sort.Strings(fallbacks)
	report.Fallbacks = fallbacks
	a.log.Info("narrative analysis complete",
		logger.Username(username),
		zap.Int("repositories", len(repos)),
		zap.Strings("fallbacks", fallbacks),
	)
	return report
}
