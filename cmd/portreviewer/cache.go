package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/portreviewer/internal/apperr"
	"github.com/jonathan/portreviewer/internal/cache"
	"github.com/jonathan/portreviewer/internal/db"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analysis result cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete analysis cache entries older than the cache TTL",
	Args:  cobra.NoArgs,
	RunE:  runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if cfg.Database.URL == "" {
		return &apperr.ConfigurationError{Key: "DATABASE_URL"}
	}
	ctx := commandContext(cmd)

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := cache.NewResultCache(database, cfg.Cache.AnalysisTTL, log).ClearExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
	return nil
}
