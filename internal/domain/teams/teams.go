// Package teams partitions leaderboard participants into roster teams,
// scores and ranks the teams, and reports roster inconsistencies.
package teams

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/starbot/internal/domain/model"
)

// UnknownTeam collects participants that no roster team claims.
const UnknownTeam = "Unknown"

// Standing is one ranked team.
type Standing struct {
	Rank    int     `json:"rank"`
	Team    string  `json:"team"`
	Score   float64 `json:"score"`
	Members int     `json:"members"`
}

// Warnings lists roster problems found while partitioning. They are meant for
// operators and never change scoring.
type Warnings struct {
	// MissingIDs are roster ids absent from the snapshot, sorted.
	MissingIDs []string
	// UnknownMembers are snapshot participants no roster team lists.
	UnknownMembers []model.Participant
	// DuplicateIDs are ids listed by more than one roster team. The first
	// team in name order keeps the participant.
	DuplicateIDs []string
}

// Empty reports whether there is nothing to warn about.
func (w Warnings) Empty() bool {
	return len(w.MissingIDs) == 0 && len(w.UnknownMembers) == 0 && len(w.DuplicateIDs) == 0
}

// Partition maps team names to their resolved members. Every snapshot
// participant appears in exactly one team.
type Partition struct {
	Teams      map[string][]model.Participant
	MissingIDs []string
}

// Report is the outcome of one aggregation.
type Report struct {
	// Aggregated is false when no roster was configured and nothing was
	// computed.
	Aggregated bool
	Rule       ScoringRule
	Standings  []Standing
	Warnings   Warnings
	// LatestActivity is the most recent progress of any resolved team
	// member. Zero when no member has progressed.
	LatestActivity time.Time
	Partition      Partition
}

// Aggregator scores teams with a fixed rule and rank limit.
type Aggregator struct {
	rule      ScoringRule
	maxRanked int
}

// New builds an Aggregator. It fails on an unsupported scoring rule.
func New(opts ...Option) (*Aggregator, error) {
	a := &Aggregator{rule: RuleSum}
	for _, opt := range opts {
		opt(a)
	}
	if !a.rule.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScoringRule, a.rule)
	}
	return a, nil
}

// Rule returns the configured scoring rule.
func (a *Aggregator) Rule() ScoringRule { return a.rule }

// MaxRanked returns the rank limit, 0 meaning unlimited.
func (a *Aggregator) MaxRanked() int { return a.maxRanked }

// Aggregate partitions snap by roster and ranks the resulting teams.
// An empty roster yields a report with Aggregated set to false.
func (a *Aggregator) Aggregate(snap model.Snapshot, roster model.Roster) Report {
	if roster.Empty() {
		return Report{Rule: a.rule}
	}

	part, warnings := partition(snap, roster)

	var standings []Standing
	var latest time.Time
	for name, members := range part.Teams {
		for _, m := range members {
			if m.LastProgress.After(latest) {
				latest = m.LastProgress
			}
		}
		score, ok := a.rule.Score(members)
		if !ok {
			continue
		}
		standings = append(standings, Standing{Team: name, Score: score, Members: len(members)})
	}

	sort.Slice(standings, func(i, j int) bool {
		return less(standings[i], standings[j])
	})
	if a.maxRanked > 0 && len(standings) > a.maxRanked {
		standings = standings[:a.maxRanked]
	}
	for i := range standings {
		standings[i].Rank = i + 1
	}

	return Report{
		Aggregated:     true,
		Rule:           a.rule,
		Standings:      standings,
		Warnings:       warnings,
		LatestActivity: latest,
		Partition:      part,
	}
}

// less orders by score descending, then team name ascending.
func less(a, b Standing) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Team < b.Team
}

func partition(snap model.Snapshot, roster model.Roster) (Partition, Warnings) {
	part := Partition{Teams: make(map[string][]model.Participant, len(roster)+1)}
	var warnings Warnings

	claimed := make(map[string]string, snap.Len())
	missing := make(map[string]struct{})
	duplicate := make(map[string]struct{})

	for _, team := range roster.TeamNames() {
		members := make([]model.Participant, 0, len(roster[team]))
		for _, id := range roster[team] {
			p, ok := snap.Get(id)
			if !ok {
				missing[id] = struct{}{}
				continue
			}
			if _, taken := claimed[id]; taken {
				duplicate[id] = struct{}{}
				continue
			}
			claimed[id] = team
			members = append(members, p)
		}
		part.Teams[team] = members
	}

	unknown := part.Teams[UnknownTeam]
	for _, id := range snap.IDs() {
		if _, ok := claimed[id]; ok {
			continue
		}
		p := snap.Members[id]
		unknown = append(unknown, p)
		warnings.UnknownMembers = append(warnings.UnknownMembers, p)
	}
	if unknown == nil {
		unknown = []model.Participant{}
	}
	part.Teams[UnknownTeam] = unknown

	part.MissingIDs = sortedKeys(missing)
	warnings.MissingIDs = part.MissingIDs
	warnings.DuplicateIDs = sortedKeys(duplicate)
	return part, warnings
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
