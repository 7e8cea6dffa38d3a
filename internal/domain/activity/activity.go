// Package activity finds participants who earned stars within a trailing
// time window.
package activity

import (
	"time"

	"github.com/okian/starbot/internal/domain/model"
)

// Progress is one participant's recent progress.
type Progress struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Stars int       `json:"stars"`
	At    time.Time `json:"at"`
}

// Detect returns every participant whose last progress is strictly after
// now-window. Participants without progress are never returned. The result
// order follows snapshot iteration and carries no meaning.
func Detect(snap model.Snapshot, window time.Duration, now time.Time) []Progress {
	since := now.Add(-window)

	var out []Progress
	for _, p := range snap.Members {
		if !p.HasProgress() || !p.LastProgress.After(since) {
			continue
		}
		out = append(out, Progress{
			ID:    p.ID,
			Name:  p.Name,
			Stars: p.Stars,
			At:    p.LastProgress,
		})
	}
	return out
}

// Stars sums the star counts of a progress report.
func Stars(progress []Progress) int {
	total := 0
	for _, p := range progress {
		total += p.Stars
	}
	return total
}
