package portfolio

import (
	"context"
	"strings"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// batchConcurrency bounds concurrent candidate analyses in one batch.
const batchConcurrency = 4

// BatchAnalyze produces recruiter insights for each username. A failing item
// is reported in its result and never aborts the batch. Results keep the
// request order; duplicate usernames are analyzed once.
func (s *Service) BatchAnalyze(ctx context.Context, req types.BatchAnalyzeRequest) *types.BatchAnalyzeResponse {
	var usernames []string
	seen := make(map[string]bool, len(req.Usernames))
	for _, u := range req.Usernames {
		u = strings.ToLower(strings.TrimSpace(u))
		if seen[u] {
			continue
		}
		seen[u] = true
		usernames = append(usernames, u)
	}

	results := make([]types.BatchItemResult, len(usernames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, username := range usernames {
		g.Go(func() error {
			results[i] = s.analyzeCandidate(gctx, username)
			return nil
		})
	}
	_ = g.Wait()

	resp := &types.BatchAnalyzeResponse{Results: results}
	for _, r := range results {
		if r.Success {
			resp.SuccessCount++
		} else {
			resp.FailureCount++
		}
	}
	s.log.Info("batch analysis complete",
		zap.Int("requested", len(usernames)),
		zap.Int("succeeded", resp.SuccessCount),
		zap.Int("failed", resp.FailureCount),
	)
	return resp
}

func (s *Service) analyzeCandidate(ctx context.Context, username string) types.BatchItemResult {
	result := types.BatchItemResult{Username: username}
	if username == "" {
		result.Error = "username is required"
		return result
	}

	repos, err := s.listRepositories(ctx, username)
	if err != nil {
		s.log.Warn("batch item failed", logger.Username(username), zap.Error(err))
		result.Error = apperr.PublicMessage(err)
		return result
	}
	report, _ := s.analyze(ctx, username, repos, false)
	ins := s.insights(ctx, username, repos, report)

	existing, err := s.store.GetPortfolioByUsername(ctx, username)
	if err != nil {
		s.log.Warn("portfolio lookup failed", logger.Username(username), zap.Error(err))
	} else if existing != nil && existing.IsPublic {
		id := existing.ID
		result.PortfolioID = &id
	}

	result.Success = true
	result.Insights = &ins
	return result
}
