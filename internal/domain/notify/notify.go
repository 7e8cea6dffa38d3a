// Package notify decides whether a run produces a notification and renders
// its text.
package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/starbot/internal/domain/activity"
	"github.com/okian/starbot/internal/domain/teams"
)

const defaultActiveWindow = time.Hour

// ErrInvalidActiveWindow is returned by New for a non-positive window.
var ErrInvalidActiveWindow = errors.New("active window must be positive")

// Decider combines recent activity and team standings into notification
// text.
type Decider struct {
	renderer     Renderer
	activeWindow time.Duration
	header       string
}

// New builds a Decider. The default renderer is PlainRenderer and the
// default active window one hour.
func New(opts ...Option) (*Decider, error) {
	d := &Decider{
		renderer:     PlainRenderer{},
		activeWindow: defaultActiveWindow,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.activeWindow <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidActiveWindow, d.activeWindow)
	}
	return d, nil
}

// Decide returns the text to deliver and true, or "" and false when nothing
// should be sent. Team changes alone never produce a notification.
func (d *Decider) Decide(progress []activity.Progress, report teams.Report, now time.Time) (string, bool) {
	if len(progress) == 0 {
		return "", false
	}

	lines := make([]string, 0, len(progress)+2)
	if d.header != "" {
		lines = append(lines, d.header)
	}
	for _, p := range progress {
		lines = append(lines, d.renderer.RenderProgress(p))
	}
	if d.StandingsFresh(report, now) {
		lines = append(lines, RenderStandings(report.Standings, report.Rule))
	}
	return strings.Join(lines, "\n"), true
}

// StandingsFresh reports whether the report's standings should be attached.
// The latest team activity must fall strictly inside the active window.
func (d *Decider) StandingsFresh(report teams.Report, now time.Time) bool {
	if !report.Aggregated || len(report.Standings) == 0 || report.LatestActivity.IsZero() {
		return false
	}
	return report.LatestActivity.After(now.Add(-d.activeWindow))
}
