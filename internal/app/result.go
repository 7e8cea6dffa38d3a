package service

import (
	"time"

	"github.com/okian/starbot/internal/domain/activity"
	"github.com/okian/starbot/internal/domain/teams"
)

// Result describes one run for operators.
type Result struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`

	Members   int                 `json:"members"`
	Progress  []activity.Progress `json:"progress"`
	Announced []activity.Progress `json:"announced"`

	Aggregated     bool             `json:"aggregated"`
	Rule           string           `json:"scoring_rule,omitempty"`
	Standings      []teams.Standing `json:"standings"`
	LatestActivity *time.Time       `json:"latest_activity,omitempty"`
	Warnings       WarningsView     `json:"warnings"`

	StandingsAttached bool   `json:"standings_attached"`
	Text              string `json:"text,omitempty"`
	Delivered         bool   `json:"delivered"`
}

// WarningsView is the JSON shape of roster warnings.
type WarningsView struct {
	MissingIDs     []string `json:"missing_ids"`
	UnknownMembers []string `json:"unknown_members"`
	DuplicateIDs   []string `json:"duplicate_ids"`
}

func (r *Result) applyReport(report teams.Report) {
	r.Aggregated = report.Aggregated
	if !report.Aggregated {
		return
	}
	r.Rule = string(report.Rule)
	r.Standings = report.Standings
	if !report.LatestActivity.IsZero() {
		t := report.LatestActivity
		r.LatestActivity = &t
	}
	r.Warnings.MissingIDs = report.Warnings.MissingIDs
	r.Warnings.DuplicateIDs = report.Warnings.DuplicateIDs
	for _, p := range report.Warnings.UnknownMembers {
		r.Warnings.UnknownMembers = append(r.Warnings.UnknownMembers, p.ID)
	}
}
