// Package model contains the leaderboard snapshot types shared by the
// engine and its adapters.
package model

import (
	"sort"
	"time"
)

// Participant is one leaderboard member as seen in a single snapshot.
type Participant struct {
	ID         string
	Name       string
	Stars      int
	LocalScore int
	// LastProgress is the time of the most recent star. Zero means the
	// participant has not earned a star yet.
	LastProgress time.Time
	// Days holds per-day star timestamps keyed by day number.
	Days map[int]DayProgress
}

// DayProgress records when each part of a day's puzzle was solved.
// Parts are 1-based; a missing part has not been solved.
type DayProgress map[int]time.Time

// HasProgress reports whether the participant has ever earned a star.
func (p Participant) HasProgress() bool {
	return !p.LastProgress.IsZero()
}

// Snapshot is a point-in-time capture of all participants. Once decoded it
// is treated as read-only.
type Snapshot struct {
	Event   string
	OwnerID string
	Members map[string]Participant
}

// Len returns the number of participants.
func (s Snapshot) Len() int { return len(s.Members) }

// Get looks a participant up by id.
func (s Snapshot) Get(id string) (Participant, bool) {
	p, ok := s.Members[id]
	return p, ok
}

// IDs returns every participant id in ascending order.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.Members))
	for id := range s.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Roster maps team names to the participant ids that belong to them.
// Member order is kept for display only.
type Roster map[string][]string

// TeamNames returns the roster's team names in ascending order.
func (r Roster) TeamNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether no roster is configured.
func (r Roster) Empty() bool { return len(r) == 0 }
