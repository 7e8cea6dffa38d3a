package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/starbot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()
			_ = os.Setenv("STARBOT_LEADERBOARD_ID", "12345")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LeaderboardID, convey.ShouldEqual, "12345")
				convey.So(cfg.WindowSeconds, convey.ShouldEqual, 3600)
				convey.So(cfg.ScoringRule, convey.ShouldEqual, "sum")
				convey.So(cfg.DryRun, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the leaderboard id is missing", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("STARBOT_LEADERBOARD_ID", "999")
			_ = os.Setenv("STARBOT_WINDOW_SECONDS", "900")
			_ = os.Setenv("STARBOT_INTERVAL_SECONDS", "900")
			_ = os.Setenv("STARBOT_CACHE_FILE", "/tmp/starbot-cache.json")
			_ = os.Setenv("STARBOT_SCORING_RULE", "mean")
			_ = os.Setenv("STARBOT_MAX_RANKED", "3")
			_ = os.Setenv("STARBOT_DRY_RUN", "true")
			_ = os.Setenv("STARBOT_REQUESTS_PER_MINUTE", "0.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LeaderboardID, convey.ShouldEqual, "999")
				convey.So(cfg.WindowSeconds, convey.ShouldEqual, 900)
				convey.So(cfg.IntervalSeconds, convey.ShouldEqual, 900)
				convey.So(cfg.CacheFile, convey.ShouldEqual, "/tmp/starbot-cache.json")
				convey.So(cfg.ScoringRule, convey.ShouldEqual, "mean")
				convey.So(cfg.MaxRanked, convey.ShouldEqual, 3)
				convey.So(cfg.DryRun, convey.ShouldBeTrue)
				convey.So(cfg.RequestsPerMinute, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
leaderboard_id: "111"
window_seconds: 1800
interval_seconds: 600
scoring_rule: mean
roster_file: teams.yaml
webhook_url: https://hooks.example.com/T000
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STARBOT_CONFIG", tmpFile)
			_ = os.Setenv("STARBOT_WINDOW_SECONDS", "600") // overrides the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LeaderboardID, convey.ShouldEqual, "111")
				convey.So(cfg.WindowSeconds, convey.ShouldEqual, 600)
				convey.So(cfg.IntervalSeconds, convey.ShouldEqual, 600)
				convey.So(cfg.ScoringRule, convey.ShouldEqual, "mean")
				convey.So(cfg.RosterFile, convey.ShouldEqual, "teams.yaml")
				convey.So(cfg.WebhookURL, convey.ShouldEqual, "https://hooks.example.com/T000")
				convey.So(cfg.ActiveWindowSeconds, convey.ShouldEqual, 3600) // default
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("STARBOT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("STARBOT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("STARBOT_LEADERBOARD_ID", "1")
			_ = os.Setenv("STARBOT_WINDOW_SECONDS", "an hour")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the scoring rule from env is unknown", func() {
			_ = os.Setenv("STARBOT_LEADERBOARD_ID", "1")
			_ = os.Setenv("STARBOT_SCORING_RULE", "max")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails before anything runs", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"STARBOT_CONFIG",
		"STARBOT_LEADERBOARD_ID",
		"STARBOT_WINDOW_SECONDS",
		"STARBOT_INTERVAL_SECONDS",
		"STARBOT_CACHE_FILE",
		"STARBOT_SCORING_RULE",
		"STARBOT_MAX_RANKED",
		"STARBOT_DRY_RUN",
		"STARBOT_REQUESTS_PER_MINUTE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "starbot-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
