package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/starbot/internal/config"
	"github.com/okian/starbot/internal/domain/model"
	"github.com/okian/starbot/internal/domain/teams"
	"github.com/okian/starbot/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWriter(&bytes.Buffer{}); err != nil {
		panic(err)
	}
}

func writeFixture(t *testing.T) (leaderboardPath, rosterPath string) {
	t.Helper()
	dir := t.TempDir()
	recent := strconv.FormatInt(time.Now().Add(-5*time.Minute).Unix(), 10)
	leaderboardPath = filepath.Join(dir, "leaderboard.json")
	payload := `{"event":"2024","owner_id":1,"members":{
 "1":{"id":1,"name":"Ann","stars":6,"local_score":30,"last_star_ts":` + recent + `},
 "2":{"id":2,"name":"Bob","stars":2,"local_score":10,"last_star_ts":1700000000}}}`
	if err := os.WriteFile(leaderboardPath, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}
	rosterPath = filepath.Join(dir, "teams.yaml")
	if err := os.WriteFile(rosterPath, []byte("Red: [\"1\", \"7\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return leaderboardPath, rosterPath
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a configuration reading a local leaderboard file", t, func() {
		lb, roster := writeFixture(t)
		cfg := config.New()
		cfg.SourceFile = lb
		cfg.RosterFile = roster
		cfg.DryRun = true
		cfg.PhraseSeed = 1
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("When the service is built and run once", func() {
			svc, cleanup, err := buildService(context.Background(), cfg, logger.Discard())
			convey.So(err, convey.ShouldBeNil)
			defer cleanup()
			res, err := svc.RunOnce(context.Background())

			convey.Convey("Then the recent participant is announced with standings", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Delivered, convey.ShouldBeTrue)
				convey.So(res.Text, convey.ShouldContainSubstring, "Ann")
				convey.So(res.Text, convey.ShouldContainSubstring, "Team standings")
				convey.So(res.Warnings.MissingIDs, convey.ShouldResemble, []string{"7"})
				convey.So(res.Warnings.UnknownMembers, convey.ShouldResemble, []string{"2"})
			})
		})

		convey.Convey("When the scoring rule is invalid", func() {
			cfg.ScoringRule = "median"
			_, _, err := buildService(context.Background(), cfg, logger.Discard())

			convey.Convey("Then building fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})

	convey.Convey("Given a configuration without a webhook", t, func() {
		cfg := config.New()

		convey.Convey("Then the sender only logs", func() {
			convey.So(buildSender(cfg, logger.Discard()), convey.ShouldNotBeNil)
			convey.So(buildSender(cfg, logger.Discard()).Send(context.Background(), "x"), convey.ShouldBeNil)
		})
	})
}

func TestBuildSource(t *testing.T) {
	convey.Convey("Given a remote leaderboard and a cache file", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(`{"event":"2024","owner_id":1,"members":{
 "1":{"id":1,"name":"Ann","stars":6,"local_score":30,"last_star_ts":1733000000}}}`))
		}))
		defer srv.Close()

		cfg := config.New()
		cfg.BaseURL = srv.URL
		cfg.LeaderboardID = "1"
		cfg.Session = "s"
		cfg.RequestsPerMinute = 0
		cfg.CacheFile = filepath.Join(t.TempDir(), "snapshot.json")
		ctx := context.Background()

		convey.Convey("When two separate invocations fetch within the TTL", func() {
			for range 2 {
				src, cleanup, err := buildSource(ctx, cfg, logger.Discard())
				convey.So(err, convey.ShouldBeNil)
				snap, err := src.Fetch(ctx)
				cleanup()
				convey.So(err, convey.ShouldBeNil)
				convey.So(snap.Members, convey.ShouldHaveLength, 1)
			}

			convey.Convey("Then the remote is asked once and the cache file holds the payload", func() {
				convey.So(hits.Load(), convey.ShouldEqual, 1)
				_, err := os.Stat(cfg.CacheFile)
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When no cache is configured", func() {
			cfg.CacheFile = ""
			for range 2 {
				src, cleanup, err := buildSource(ctx, cfg, logger.Discard())
				convey.So(err, convey.ShouldBeNil)
				_, err = src.Fetch(ctx)
				cleanup()
				convey.So(err, convey.ShouldBeNil)
			}

			convey.Convey("Then every invocation reaches the remote", func() {
				convey.So(hits.Load(), convey.ShouldEqual, 2)
			})
		})
	})
}

func TestCommands(t *testing.T) {
	convey.Convey("Given environment pointing at a local leaderboard", t, func() {
		lb, roster := writeFixture(t)
		t.Setenv("STARBOT_SOURCE_FILE", lb)
		t.Setenv("STARBOT_ROSTER_FILE", roster)

		convey.Convey("When running the run command as a dry run", func() {
			cmd := rootCmd()
			cmd.SetArgs([]string{"run", "--dry-run"})
			err := cmd.Execute()

			convey.Convey("Then it succeeds", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When running the teams command", func() {
			cmd := rootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"teams"})
			err := cmd.Execute()

			convey.Convey("Then the partition and warnings are printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "Red (1)")
				convey.So(out.String(), convey.ShouldContainSubstring, "Unknown (1)")
				convey.So(out.String(), convey.ShouldContainSubstring, "Roster ids not on the leaderboard: 7")
				convey.So(out.String(), convey.ShouldContainSubstring, "2  # Bob")
			})
		})
	})

	convey.Convey("Given no leaderboard id and no source file", t, func() {
		t.Setenv("STARBOT_SOURCE_FILE", "")
		t.Setenv("STARBOT_LEADERBOARD_ID", "")
		cmd := rootCmd()
		cmd.SetArgs([]string{"run"})
		cmd.SetErr(&bytes.Buffer{})

		convey.Convey("Then the run command fails on configuration", func() {
			convey.So(cmd.Execute(), convey.ShouldNotBeNil)
		})
	})
}

func TestPrintReport(t *testing.T) {
	convey.Convey("Given a report without aggregation", t, func() {
		var out bytes.Buffer
		printReport(&out, teams.Report{})

		convey.Convey("Then a short notice is printed", func() {
			convey.So(out.String(), convey.ShouldContainSubstring, "No roster configured")
		})
	})

	convey.Convey("Given a report with duplicates", t, func() {
		var out bytes.Buffer
		printReport(&out, teams.Report{
			Aggregated: true,
			Rule:       teams.RuleSum,
			Partition:  teams.Partition{Teams: map[string][]model.Participant{"Red": {{ID: "1", Name: "Ann", Stars: 3}}}},
			Standings:  []teams.Standing{{Rank: 1, Team: "Red", Score: 3, Members: 1}},
			Warnings:   teams.Warnings{DuplicateIDs: []string{"1"}},
		})

		convey.Convey("Then standings and duplicates are listed", func() {
			convey.So(out.String(), convey.ShouldContainSubstring, "1. *Red*: 3 (1 member)")
			convey.So(out.String(), convey.ShouldContainSubstring, "Ids listed by more than one team: 1")
		})
	})
}
