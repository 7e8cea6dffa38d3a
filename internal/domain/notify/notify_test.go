package notify_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/starbot/internal/domain/activity"
	"github.com/okian/starbot/internal/domain/notify"
	"github.com/okian/starbot/internal/domain/teams"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Unix(1_733_100_000, 0)

func freshReport() teams.Report {
	return teams.Report{
		Aggregated: true,
		Rule:       teams.RuleSum,
		Standings: []teams.Standing{
			{Rank: 1, Team: "Unknown", Score: 10, Members: 1},
			{Rank: 2, Team: "Red", Score: 4, Members: 2},
		},
		LatestActivity: now.Add(-5 * time.Minute),
	}
}

func mustDecider(opts ...notify.Option) *notify.Decider {
	d, err := notify.New(opts...)
	So(err, ShouldBeNil)
	return d
}

func TestNew(t *testing.T) {
	Convey("Given a non-positive active window", t, func() {
		for _, w := range []time.Duration{0, -time.Second} {
			d, err := notify.New(notify.WithActiveWindow(w))

			Convey("Then construction fails for "+w.String(), func() {
				So(d, ShouldBeNil)
				So(errors.Is(err, notify.ErrInvalidActiveWindow), ShouldBeTrue)
			})
		}
	})
}

func TestDecide(t *testing.T) {
	Convey("Given no recent progress", t, func() {
		d := mustDecider()

		Convey("Then nothing is sent even with fresh standings", func() {
			text, ok := d.Decide(nil, freshReport(), now)
			So(ok, ShouldBeFalse)
			So(text, ShouldBeEmpty)

			text, ok = d.Decide([]activity.Progress{}, teams.Report{}, now)
			So(ok, ShouldBeFalse)
			So(text, ShouldBeEmpty)
		})
	})

	Convey("Given progress and fresh standings", t, func() {
		d := mustDecider(notify.WithActiveWindow(time.Hour))
		progress := []activity.Progress{{ID: "P1", Name: "Ann", Stars: 5}, {ID: "P2", Name: "Bob", Stars: 7}}
		text, ok := d.Decide(progress, freshReport(), now)

		Convey("Then one line per participant is followed by the standings", func() {
			So(ok, ShouldBeTrue)
			lines := strings.Split(text, "\n")
			So(lines, ShouldHaveLength, 2+1+2)
			So(lines[0], ShouldContainSubstring, "Ann")
			So(lines[0], ShouldContainSubstring, "5")
			So(lines[1], ShouldContainSubstring, "Bob")
			So(lines[1], ShouldContainSubstring, "7")
			So(lines[2], ShouldContainSubstring, "Team standings")
			So(lines[3], ShouldEqual, "1. *Unknown*: 10 (1 member)")
			So(lines[4], ShouldEqual, "2. *Red*: 4 (2 members)")
		})
	})

	Convey("Given progress and stale standings", t, func() {
		d := mustDecider(notify.WithActiveWindow(time.Hour))
		report := freshReport()
		report.LatestActivity = now.Add(-2 * time.Hour)
		text, ok := d.Decide([]activity.Progress{{Name: "Ann", Stars: 5}}, report, now)

		Convey("Then the standings block is omitted", func() {
			So(ok, ShouldBeTrue)
			So(text, ShouldNotContainSubstring, "Team standings")
			So(strings.Count(text, "\n"), ShouldEqual, 0)
		})
	})

	Convey("Given latest activity exactly on the active window boundary", t, func() {
		d := mustDecider(notify.WithActiveWindow(time.Hour))
		report := freshReport()
		report.LatestActivity = now.Add(-time.Hour)

		Convey("Then the standings are treated as stale", func() {
			So(d.StandingsFresh(report, now), ShouldBeFalse)
		})
	})

	Convey("Given progress but no aggregation", t, func() {
		d := mustDecider()
		text, ok := d.Decide([]activity.Progress{{Name: "Ann", Stars: 5}}, teams.Report{}, now)

		Convey("Then only the progress lines are sent", func() {
			So(ok, ShouldBeTrue)
			So(text, ShouldNotContainSubstring, "Team standings")
		})
	})

	Convey("Given aggregation with nothing ranked", t, func() {
		d := mustDecider()
		report := teams.Report{Aggregated: true, LatestActivity: now}

		Convey("Then no empty standings block is attached", func() {
			So(d.StandingsFresh(report, now), ShouldBeFalse)
		})
	})

	Convey("Given a header and a custom renderer", t, func() {
		d := mustDecider(
			notify.WithHeader("Advent of Code update"),
			notify.WithRenderer(notify.RendererFunc(func(p activity.Progress) string {
				return p.Name + "=" + "stars"
			})),
		)
		text, _ := d.Decide([]activity.Progress{{Name: "Ann", Stars: 1}}, teams.Report{}, now)

		Convey("Then the header leads and the renderer is used", func() {
			So(text, ShouldEqual, "Advent of Code update\nAnn=stars")
		})
	})
}

func TestRenderers(t *testing.T) {
	p := activity.Progress{Name: "Ann", Stars: 12}

	Convey("Given the plain renderer", t, func() {
		Convey("Then the line mentions name and stars", func() {
			line := notify.PlainRenderer{}.RenderProgress(p)
			So(line, ShouldContainSubstring, "*Ann*")
			So(line, ShouldContainSubstring, "12")
		})
	})

	Convey("Given the phrase renderer", t, func() {
		r := notify.NewPhraseRenderer(7)

		Convey("Then every phrase mentions name and stars", func() {
			for i := 0; i < 50; i++ {
				line := r.RenderProgress(p)
				So(line, ShouldContainSubstring, "Ann")
				So(line, ShouldContainSubstring, "12")
			}
		})

		Convey("Then equal seeds produce equal sequences", func() {
			a, b := notify.NewPhraseRenderer(42), notify.NewPhraseRenderer(42)
			for i := 0; i < 20; i++ {
				So(a.RenderProgress(p), ShouldEqual, b.RenderProgress(p))
			}
		})

		Convey("Then a custom pool is honoured", func() {
			only := notify.NewPhraseRenderer(1, "%s has %d")
			So(only.RenderProgress(p), ShouldEqual, "Ann has 12")
		})
	})

	Convey("Given mean standings", t, func() {
		block := notify.RenderStandings([]teams.Standing{{Rank: 1, Team: "Blue", Score: 4.0 / 3.0, Members: 3}}, teams.RuleMean)

		Convey("Then scores are shown rounded to one decimal", func() {
			So(block, ShouldContainSubstring, "mean of stars")
			So(block, ShouldContainSubstring, "1. *Blue*: 1.3 (3 members)")
		})
	})
}
