package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/portreviewer/internal/auth"
	"github.com/jonathan/portreviewer/internal/cache"
	"github.com/jonathan/portreviewer/internal/config"
	"github.com/jonathan/portreviewer/internal/db"
	"github.com/jonathan/portreviewer/internal/github"
	"github.com/jonathan/portreviewer/internal/llm"
	"github.com/jonathan/portreviewer/internal/logger"
	"github.com/jonathan/portreviewer/internal/narrative"
	"github.com/jonathan/portreviewer/internal/portfolio"
	"github.com/jonathan/portreviewer/internal/search"
	"github.com/jonathan/portreviewer/internal/server"
)

// loadConfig reads configuration and builds the process logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// app holds the wired components of a running server.
type app struct {
	db     *db.DB
	redis  *cache.Redis
	llm    llm.Client
	server *server.Server
}

func (a *app) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// newNarrator builds the Gemini-backed analyzer.
func newNarrator(ctx context.Context, cfg *config.Config, log *zap.Logger) (*narrative.Analyzer, llm.Client, error) {
	client, err := llm.NewClient(ctx, llm.FromModelOverride(cfg.Gemini.Model), cfg.Gemini.APIKey)
	if err != nil {
		return nil, nil, err
	}
	analyzer, err := narrative.NewAnalyzer(client, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return analyzer, client, nil
}

// buildApp connects every backing service and wires the HTTP server.
// Redis is optional: without it the login guard is per-process and
// repository listings are not cached.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &app{}

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = database
	if _, err := database.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.redis = cache.NewRedis(ctx, cfg.Redis, log)
	var guard auth.GuardStore
	if a.redis.Available() {
		guard = auth.NewRedisGuard(a.redis.Client())
	} else {
		log.Warn("login guard is in-memory; lockouts and revocations are not shared between instances")
		guard = auth.NewMemoryGuard(nil)
	}

	tokens, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		a.Close()
		return nil, err
	}

	gh := github.NewClient(github.OptionsFromConfig(cfg.GitHub), log)
	var oauth auth.GitHubOAuth
	if cfg.GitHub.ClientID != "" {
		oauth = gh
	}

	authSvc, err := auth.NewService(auth.Deps{
		Users:     database,
		Guard:     guard,
		Tokens:    tokens,
		GitHub:    oauth,
		Passwords: cfg.Password,
		Policy:    cfg.Auth,
		Logger:    log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	analyzer, client, err := newNarrator(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.llm = client

	lister := github.NewCachedLister(gh, a.redis, cfg.Cache.RepositoryTTL, log)
	results := cache.NewResultCache(database, cfg.Cache.AnalysisTTL, log)

	a.server = server.New(cfg, server.Deps{
		Auth:       authSvc,
		Portfolios: portfolio.NewService(database, lister, analyzer, results, log, portfolio.WithProfiles(gh)),
		Search:     search.NewService(database, log),
		Health:     database,
		Logger:     log,
	})
	return a, nil
}
