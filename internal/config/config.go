// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers a YAML file and STARBOT_ env vars on top.
// - Validate must pass before any engine component is built.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/starbot/internal/domain/teams"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the operator HTTP listen address in serve mode.
	Addr string `koanf:"addr"`

	// BaseURL is the leaderboard host, e.g. "https://adventofcode.com".
	BaseURL string `koanf:"base_url"`
	// Year selects the event. Zero means the current year.
	Year int `koanf:"year"`
	// LeaderboardID is the private leaderboard id.
	LeaderboardID string `koanf:"leaderboard_id"`
	// Session is the session cookie sent with leaderboard requests.
	Session string `koanf:"session"`

	// WebhookURL receives notifications. Empty means log only.
	WebhookURL      string `koanf:"webhook_url"`
	WebhookUsername string `koanf:"webhook_username"`
	WebhookIcon     string `koanf:"webhook_icon"`

	// WindowSeconds is the lookback for new stars.
	WindowSeconds int `koanf:"window_seconds"`
	// ActiveWindowSeconds bounds how old team activity may be for standings
	// to be attached.
	ActiveWindowSeconds int `koanf:"active_window_seconds"`
	// IntervalSeconds is the run period in serve mode.
	IntervalSeconds int `koanf:"interval_seconds"`

	// ScoringRule is "sum" or "mean".
	ScoringRule string `koanf:"scoring_rule"`
	// MaxRanked caps the ranked teams; 0 is unlimited.
	MaxRanked int `koanf:"max_ranked"`
	// RosterFile is a YAML file mapping team names to member ids.
	RosterFile string `koanf:"roster_file"`

	// FallbackFile is read when the remote fetch fails.
	FallbackFile string `koanf:"fallback_file"`
	// SaveFile receives every successfully fetched payload.
	SaveFile string `koanf:"save_file"`
	// SourceFile replaces the remote source entirely when set.
	SourceFile string `koanf:"source_file"`

	// RedisURL enables the shared snapshot cache.
	RedisURL string `koanf:"redis_url"`
	// CacheFile enables a local snapshot cache when RedisURL is empty.
	CacheFile       string `koanf:"cache_file"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	FetchTimeoutSeconds int `koanf:"fetch_timeout_seconds"`
	// RequestsPerMinute throttles leaderboard requests.
	RequestsPerMinute float64 `koanf:"requests_per_minute"`

	// DryRun renders notifications without delivering them.
	DryRun bool `koanf:"dry_run"`
	// DedupeSize bounds the announced-star memory; 0 disables it.
	DedupeSize int `koanf:"dedupe_size"`
	// PhraseSeed seeds phrase selection; 0 uses the clock.
	PhraseSeed uint64 `koanf:"phrase_seed"`
	// Header is an optional first line of every notification.
	Header string `koanf:"header"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		BaseURL:             "https://adventofcode.com",
		WebhookUsername:     "AoC Starbot",
		WebhookIcon:         ":robot_face:",
		WindowSeconds:       3600,
		ActiveWindowSeconds: 3600,
		IntervalSeconds:     3600,
		ScoringRule:         string(teams.RuleSum),
		MaxRanked:           0,
		CacheTTLSeconds:     900,
		FetchTimeoutSeconds: 30,
		RequestsPerMinute:   4,
		DedupeSize:          10_000,
	}
}

// Window returns the lookback window.
func (c *Config) Window() time.Duration { return seconds(c.WindowSeconds) }

// ActiveWindow returns the standings freshness window.
func (c *Config) ActiveWindow() time.Duration { return seconds(c.ActiveWindowSeconds) }

// Interval returns the serve-mode run period.
func (c *Config) Interval() time.Duration { return seconds(c.IntervalSeconds) }

// CacheTTL returns the snapshot cache TTL.
func (c *Config) CacheTTL() time.Duration { return seconds(c.CacheTTLSeconds) }

// FetchTimeout returns the per-request leaderboard timeout.
func (c *Config) FetchTimeout() time.Duration { return seconds(c.FetchTimeoutSeconds) }

// Rule returns the parsed scoring rule.
func (c *Config) Rule() (teams.ScoringRule, error) { return teams.ParseScoringRule(c.ScoringRule) }

// EventYear returns the configured year or the year of now.
func (c *Config) EventYear(now time.Time) int {
	if c.Year > 0 {
		return c.Year
	}
	return now.Year()
}

// Validate checks the settings that must be right before anything runs.
func (c *Config) Validate() error {
	var problems []string
	if c.WindowSeconds <= 0 {
		problems = append(problems, "window_seconds must be positive")
	}
	if c.ActiveWindowSeconds <= 0 {
		problems = append(problems, "active_window_seconds must be positive")
	}
	if c.IntervalSeconds <= 0 {
		problems = append(problems, "interval_seconds must be positive")
	}
	// Stars earned between two runs fall outside a shorter window.
	if c.WindowSeconds > 0 && c.IntervalSeconds > c.WindowSeconds {
		problems = append(problems, "window_seconds must be >= interval_seconds")
	}
	if _, err := c.Rule(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.MaxRanked < 0 {
		problems = append(problems, "max_ranked must not be negative")
	}
	if c.SourceFile == "" {
		if strings.TrimSpace(c.LeaderboardID) == "" {
			problems = append(problems, "leaderboard_id is required unless source_file is set")
		}
		if strings.TrimSpace(c.BaseURL) == "" {
			problems = append(problems, "base_url must not be empty")
		}
	}
	if c.RequestsPerMinute < 0 {
		problems = append(problems, "requests_per_minute must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
