// Package webhook delivers notification text to a Slack-compatible
// incoming webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/starbot/pkg/logger"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultUsername = "AoC Starbot"
	defaultIcon     = ":robot_face:"
	maxErrorBody    = 200
)

// ErrDeliveryFailed is returned when the webhook rejects a message.
var ErrDeliveryFailed = errors.New("webhook delivery failed")

// Sender delivers one rendered notification.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// message is the incoming-webhook payload.
type message struct {
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
	Text      string `json:"text"`
}

// SlackSender posts messages to a webhook URL.
type SlackSender struct {
	httpClient *http.Client
	url        string
	username   string
	icon       string
}

// Option configures a SlackSender.
type Option func(*SlackSender)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SlackSender) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithUsername sets the display name of the bot.
func WithUsername(name string) Option {
	return func(s *SlackSender) {
		if name != "" {
			s.username = name
		}
	}
}

// WithIconEmoji sets the bot avatar emoji, e.g. ":robot_face:".
func WithIconEmoji(icon string) Option {
	return func(s *SlackSender) {
		if icon != "" {
			s.icon = icon
		}
	}
}

// NewSlackSender creates a sender for url.
func NewSlackSender(url string, opts ...Option) *SlackSender {
	s := &SlackSender{
		httpClient: &http.Client{Timeout: defaultTimeout},
		url:        url,
		username:   defaultUsername,
		icon:       defaultIcon,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send posts text. Any non-2xx answer wraps ErrDeliveryFailed.
func (s *SlackSender) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(message{Username: s.username, IconEmoji: s.icon, Text: text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, b)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// DiscardSender logs messages instead of delivering them. It backs dry
// runs and deployments without a webhook.
type DiscardSender struct {
	logger logger.Logger
}

// NewDiscardSender creates a sender that only logs.
func NewDiscardSender(log logger.Logger) *DiscardSender {
	if log == nil {
		log = logger.Discard()
	}
	return &DiscardSender{logger: log}
}

// Send logs text and reports success.
func (s *DiscardSender) Send(ctx context.Context, text string) error {
	s.logger.Info(ctx, "notification not delivered", logger.String("text", text))
	return nil
}
