// Package leaderboard retrieves private leaderboard snapshots from the
// remote site, local files, or a TTL cache in front of either.
package leaderboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/starbot/internal/domain/model"
	"github.com/okian/starbot/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultRequestsPerMinute = 4
	defaultUserAgent         = "github.com/okian/starbot"
	maxErrorBody             = 200
)

// Source yields one decoded snapshot per call.
type Source interface {
	Fetch(ctx context.Context) (model.Snapshot, error)
}

// Payloader yields the raw leaderboard JSON. Decorators that persist or
// cache payloads work on this level.
type Payloader interface {
	Payload(ctx context.Context) ([]byte, error)
}

// HTTPSource fetches the private leaderboard JSON over HTTPS using a
// session cookie.
type HTTPSource struct {
	httpClient    *http.Client
	baseURL       string
	year          int
	leaderboardID string
	session       string
	userAgent     string
	limiter       *rate.Limiter
	timeout       time.Duration
}

// NewHTTPSource creates a rate-limited leaderboard client.
func NewHTTPSource(baseURL string, year int, leaderboardID, session string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		year:          year,
		leaderboardID: leaderboardID,
		session:       session,
		userAgent:     defaultUserAgent,
		limiter:       newLimiter(defaultRequestsPerMinute),
	}
	for _, opt := range opts {
		opt(s)
	}
	// A copy keeps a caller-supplied client untouched.
	if s.timeout > 0 {
		c := *s.httpClient
		c.Timeout = s.timeout
		s.httpClient = &c
	}
	return s
}

// Client returns the HTTP client used for requests.
func (s *HTTPSource) Client() *http.Client { return s.httpClient }

// URL returns the JSON endpoint of the configured leaderboard.
func (s *HTTPSource) URL() string {
	return fmt.Sprintf("%s/%d/leaderboard/private/view/%s.json", s.baseURL, s.year, s.leaderboardID)
}

// Payload performs a rate-limited GET of the leaderboard JSON.
func (s *HTTPSource) Payload(ctx context.Context) ([]byte, error) {
	start := time.Now()
	body, err := s.get(ctx)
	if err != nil {
		metrics.RecordFetchError("http")
		return nil, err
	}
	metrics.RecordFetch("http", time.Since(start).Seconds())
	return body, nil
}

func (s *HTTPSource) get(ctx context.Context) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "session", Value: s.session})
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(body, maxErrorBody))
	}
	return body, nil
}

// Fetch downloads and decodes the leaderboard.
func (s *HTTPSource) Fetch(ctx context.Context) (model.Snapshot, error) {
	return decode(ctx, s)
}

func decode(ctx context.Context, p Payloader) (model.Snapshot, error) {
	body, err := p.Payload(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.ParseSnapshot(body)
}

func newLimiter(requestsPerMinute float64) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1)
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
