package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/okian/starbot/internal/adapters/leaderboard"
	"github.com/okian/starbot/internal/adapters/webhook"
	app "github.com/okian/starbot/internal/app"
	"github.com/okian/starbot/internal/config"
	"github.com/okian/starbot/internal/domain/dedupe"
	"github.com/okian/starbot/internal/domain/notify"
	"github.com/okian/starbot/internal/domain/teams"
	"github.com/okian/starbot/pkg/logger"
)

// buildService assembles the source chain, engine and sender from cfg.
// The returned cleanup releases external connections.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	cleanup := func() {}

	rule, err := cfg.Rule()
	if err != nil {
		return nil, cleanup, err
	}
	aggregator, err := teams.New(teams.WithScoringRule(rule), teams.WithMaxRanked(cfg.MaxRanked))
	if err != nil {
		return nil, cleanup, err
	}

	seed := cfg.PhraseSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	decider, err := notify.New(
		notify.WithRenderer(notify.NewPhraseRenderer(seed)),
		notify.WithActiveWindow(cfg.ActiveWindow()),
		notify.WithHeader(cfg.Header),
	)
	if err != nil {
		return nil, cleanup, err
	}

	payloader, closeCache, err := buildSource(ctx, cfg, log)
	if err != nil {
		return nil, cleanup, err
	}
	cleanup = closeCache

	opts := []app.Option{
		app.WithLogger(log),
		app.WithSource(payloader),
		app.WithSender(buildSender(cfg, log)),
		app.WithAggregator(aggregator),
		app.WithDecider(decider),
		app.WithRosterFile(cfg.RosterFile),
		app.WithWindow(cfg.Window()),
		app.WithInterval(cfg.Interval()),
	}
	if cfg.DedupeSize > 0 {
		opts = append(opts, app.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))))
	}

	svc, err := app.New(opts...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return svc, cleanup, nil
}

type source interface {
	leaderboard.Source
	leaderboard.Payloader
}

func buildSource(ctx context.Context, cfg *config.Config, log logger.Logger) (source, func(), error) {
	noop := func() {}
	if cfg.SourceFile != "" {
		log.Info(ctx, "reading leaderboard from file", logger.String("path", cfg.SourceFile))
		return leaderboard.NewFileSource(cfg.SourceFile), noop, nil
	}

	remote := leaderboard.NewHTTPSource(cfg.BaseURL, cfg.EventYear(time.Now()), cfg.LeaderboardID, cfg.Session,
		leaderboard.WithTimeout(cfg.FetchTimeout()),
		leaderboard.WithRequestsPerMinute(cfg.RequestsPerMinute),
	)
	var primary source = remote
	closer := noop
	cacheOpts := []leaderboard.CacheOption{
		leaderboard.WithCacheTTL(cfg.CacheTTL()),
		leaderboard.WithCacheKey(fmt.Sprintf("starbot:%d:%s", cfg.EventYear(time.Now()), cfg.LeaderboardID)),
	}

	switch {
	case cfg.RedisURL != "":
		cache, err := leaderboard.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect snapshot cache: %w", err)
		}
		closer = func() { _ = cache.Close() }
		primary = leaderboard.NewCachedSource(remote, cache, log, cacheOpts...)
		log.Info(ctx, "snapshot cache enabled", logger.String("backend", "redis"), logger.Duration("ttl", cfg.CacheTTL()))
	case cfg.CacheFile != "":
		primary = leaderboard.NewCachedSource(remote, leaderboard.NewFileCache(cfg.CacheFile), log, cacheOpts...)
		log.Info(ctx, "snapshot cache enabled",
			logger.String("backend", "file"),
			logger.String("path", cfg.CacheFile),
			logger.Duration("ttl", cfg.CacheTTL()),
		)
	}

	return leaderboard.NewFallbackSource(primary, cfg.FallbackFile, cfg.SaveFile, log), closer, nil
}

func buildSender(cfg *config.Config, log logger.Logger) webhook.Sender {
	if cfg.DryRun || cfg.WebhookURL == "" {
		return webhook.NewDiscardSender(log)
	}
	return webhook.NewSlackSender(cfg.WebhookURL,
		webhook.WithUsername(cfg.WebhookUsername),
		webhook.WithIconEmoji(cfg.WebhookIcon),
	)
}

// printReport writes the partition, standings and warnings for operators.
func printReport(w io.Writer, report teams.Report) {
	if !report.Aggregated {
		fmt.Fprintln(w, "No roster configured; nothing to aggregate.")
		return
	}

	names := make([]string, 0, len(report.Partition.Teams))
	for name := range report.Partition.Teams {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		members := report.Partition.Teams[name]
		fmt.Fprintf(w, "%s (%d)\n", name, len(members))
		for _, m := range members {
			fmt.Fprintf(w, "  %-12s %-30s %3d stars\n", m.ID, m.Name, m.Stars)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, notify.RenderStandings(report.Standings, report.Rule))

	if len(report.Warnings.MissingIDs) > 0 {
		fmt.Fprintf(w, "\nRoster ids not on the leaderboard: %s\n", strings.Join(report.Warnings.MissingIDs, ", "))
	}
	if len(report.Warnings.DuplicateIDs) > 0 {
		fmt.Fprintf(w, "Ids listed by more than one team: %s\n", strings.Join(report.Warnings.DuplicateIDs, ", "))
	}
	if len(report.Warnings.UnknownMembers) > 0 {
		fmt.Fprintln(w, "Participants not in any team:")
		for _, m := range report.Warnings.UnknownMembers {
			fmt.Fprintf(w, "  %s  # %s\n", m.ID, m.Name)
		}
	}
}
