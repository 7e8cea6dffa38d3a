// Package service runs the fetch, detect, aggregate and deliver cycle and
// exposes its latest outcome to the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/starbot/internal/adapters/leaderboard"
	"github.com/okian/starbot/internal/adapters/roster"
	"github.com/okian/starbot/internal/adapters/webhook"
	"github.com/okian/starbot/internal/domain/activity"
	"github.com/okian/starbot/internal/domain/dedupe"
	"github.com/okian/starbot/internal/domain/model"
	"github.com/okian/starbot/internal/domain/notify"
	"github.com/okian/starbot/internal/domain/teams"
	"github.com/okian/starbot/pkg/logger"
	"github.com/okian/starbot/pkg/metrics"
)

// Run outcomes.
const (
	OutcomeNotified = "notified"
	OutcomeQuiet    = "quiet"
	OutcomeFailed   = "failed"
)

// Errors returned by New.
var (
	ErrNoSource        = errors.New("no leaderboard source configured")
	ErrInvalidWindow   = errors.New("window must be positive")
	ErrInvalidInterval = errors.New("interval must be positive")
)

// Service owns the engine components and serialises runs.
type Service struct {
	mu    sync.RWMutex
	runMu sync.Mutex

	// Collaborators
	source     leaderboard.Source
	sender     webhook.Sender
	deduper    dedupe.Deduper
	aggregator *teams.Aggregator
	decider    *notify.Decider

	// Configuration
	roster     model.Roster
	rosterFile string
	window     time.Duration
	interval   time.Duration
	now        func() time.Time

	// State
	started  bool
	runs     int
	failures int
	last     *Result

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the leaderboard source.
func WithSource(src leaderboard.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithSender sets the notification sender.
func WithSender(sender webhook.Sender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sender = sender
		}
	}
}

// WithDeduper enables suppression of progress already announced by this
// process.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.deduper = d
	}
}

// WithAggregator sets the team aggregator.
func WithAggregator(a *teams.Aggregator) Option {
	return func(s *Service) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithDecider sets the notification decider.
func WithDecider(d *notify.Decider) Option {
	return func(s *Service) {
		if d != nil {
			s.decider = d
		}
	}
}

// WithRoster sets a static roster.
func WithRoster(r model.Roster) Option {
	return func(s *Service) {
		s.roster = r
	}
}

// WithRosterFile reloads the roster from path at the start of every run,
// so edits apply without a restart. It takes precedence over WithRoster.
func WithRosterFile(path string) Option {
	return func(s *Service) {
		s.rosterFile = path
	}
}

// WithWindow sets the lookback for new stars. It must be positive.
func WithWindow(d time.Duration) Option {
	return func(s *Service) {
		s.window = d
	}
}

// WithInterval sets the period of Run. It must be positive.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		s.interval = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. A source is required; everything else has a
// default: sum scoring, plain rendering, one hour windows and a sender
// that only logs.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		window:   time.Hour,
		interval: time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.source == nil {
		return nil, ErrNoSource
	}
	if s.window <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, s.window)
	}
	if s.interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, s.interval)
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	if s.aggregator == nil {
		a, err := teams.New()
		if err != nil {
			return nil, err
		}
		s.aggregator = a
	}
	if s.decider == nil {
		d, err := notify.New()
		if err != nil {
			return nil, err
		}
		s.decider = d
	}
	if s.sender == nil {
		s.sender = webhook.NewDiscardSender(s.logger)
	}
	return s, nil
}

// RunOnce performs one complete run. At most one run executes at a time.
// The returned Result is also kept for LastResult.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res := Result{RunID: uuid.NewString(), StartedAt: s.now()}
	log := s.logger.With(logger.String("run_id", res.RunID))

	err := s.run(ctx, log, &res)
	res.FinishedAt = s.now()
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		log.Error(ctx, "run failed", logger.Error(err))
	}
	metrics.RecordRun(res.Outcome, res.FinishedAt.Sub(res.StartedAt).Seconds(), float64(res.FinishedAt.Unix()))
	s.record(res)
	return res, err
}

func (s *Service) run(ctx context.Context, log logger.Logger, res *Result) error {
	rost, err := s.currentRoster()
	if err != nil {
		return err
	}

	snap, err := s.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch leaderboard: %w", err)
	}
	now := s.now()
	res.Members = snap.Len()
	metrics.UpdateSnapshotMembers(snap.Len())

	progress := activity.Detect(snap, s.window, now)
	res.Progress = progress
	metrics.UpdateRecentParticipants(len(progress))

	fresh := dedupe.Filter(ctx, s.deduper, progress)
	res.Announced = fresh

	report := s.aggregator.Aggregate(snap, rost)
	res.applyReport(report)
	s.reportWarnings(ctx, log, report)

	text, ok := s.decider.Decide(fresh, report, now)
	res.StandingsAttached = ok && s.decider.StandingsFresh(report, now)
	if !ok {
		res.Outcome = OutcomeQuiet
		if len(progress) > 0 {
			metrics.RecordNotification("suppressed")
			log.Info(ctx, "new stars already announced", logger.Int("participants", len(progress)))
			return nil
		}
		log.Info(ctx, "no new stars", logger.Int("members", snap.Len()))
		return nil
	}
	res.Text = text

	if err := s.sender.Send(ctx, text); err != nil {
		metrics.RecordNotification("failed")
		dedupe.Forget(ctx, s.deduper, fresh)
		return fmt.Errorf("deliver notification: %w", err)
	}
	metrics.RecordNotification("sent")
	res.Outcome = OutcomeNotified
	res.Delivered = true
	log.Info(ctx, "notification sent",
		logger.Int("participants", len(fresh)),
		logger.Int("stars", activity.Stars(fresh)),
		logger.Bool("standings", res.StandingsAttached),
	)
	return nil
}

func (s *Service) currentRoster() (model.Roster, error) {
	if s.rosterFile == "" {
		return s.roster, nil
	}
	r, err := roster.Load(s.rosterFile)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return r, nil
}

func (s *Service) reportWarnings(ctx context.Context, log logger.Logger, report teams.Report) {
	w := report.Warnings
	metrics.UpdateRosterHealth(len(report.Standings), len(w.MissingIDs), len(w.UnknownMembers), len(w.DuplicateIDs))
	if !report.Aggregated {
		return
	}
	if len(w.MissingIDs) > 0 {
		log.Warn(ctx, "roster ids not on the leaderboard", logger.Strings("ids", w.MissingIDs))
	}
	for _, p := range w.UnknownMembers {
		log.Warn(ctx, "participant not in any team",
			logger.String("id", p.ID),
			logger.String("name", p.Name),
			logger.Int("stars", p.Stars),
		)
	}
	if len(w.DuplicateIDs) > 0 {
		log.Warn(ctx, "ids listed by more than one team", logger.Strings("ids", w.DuplicateIDs))
	}
}

func (s *Service) record(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	if res.Outcome == OutcomeFailed {
		s.failures++
	}
	s.last = &res
}

// Run executes RunOnce immediately and then every interval until ctx is
// done. Failed runs are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
	}()

	s.logger.Info(ctx, "starting run loop", logger.Duration("interval", s.interval), logger.Duration("window", s.window))
	_, _ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "run loop stopped")
			return nil
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}

// Preview fetches and aggregates without detecting or delivering
// anything. It backs the teams command.
func (s *Service) Preview(ctx context.Context) (teams.Report, error) {
	rost, err := s.currentRoster()
	if err != nil {
		return teams.Report{}, err
	}
	snap, err := s.source.Fetch(ctx)
	if err != nil {
		return teams.Report{}, fmt.Errorf("fetch leaderboard: %w", err)
	}
	return s.aggregator.Aggregate(snap, rost), nil
}

// LastResult returns the most recent run, if any.
func (s *Service) LastResult() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"runs":            s.runs,
		"failures":        s.failures,
		"windowSeconds":   int(s.window.Seconds()),
		"intervalSeconds": int(s.interval.Seconds()),
		"scoringRule":     string(s.aggregator.Rule()),
		"maxRanked":       s.aggregator.MaxRanked(),
	}
	if s.deduper != nil {
		stats["announced"] = s.deduper.Size()
	}
	if s.last != nil {
		stats["lastRunId"] = s.last.RunID
		stats["lastRunAt"] = s.last.FinishedAt
		stats["lastOutcome"] = s.last.Outcome
	}
	return stats
}
