package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// discordErrorColor is the embed colour used for error reports
const discordErrorColor = 15158332

// ErrRateLimited is returned when an event is dropped by the limiter
var ErrRateLimited = errors.New("alert dropped by rate limiter")

// WebhookSink posts events to a Discord or Slack incoming webhook. The
// payload shape is picked from the URL.
type WebhookSink struct {
	url     string
	service string
	host    string
	client  *http.Client
	limiter *rate.Limiter
}

// WebhookOption configures a WebhookSink
type WebhookOption func(*WebhookSink)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(s *WebhookSink) { s.client = c }
}

// WithRateLimit caps the delivery rate
func WithRateLimit(rps float64, burst int) WebhookOption {
	return func(s *WebhookSink) { s.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithHost overrides the host name shown in the Discord footer
func WithHost(host string) WebhookOption {
	return func(s *WebhookSink) { s.host = host }
}

// NewWebhookSink creates a sink posting to url
func NewWebhookSink(url, service string, timeout time.Duration, opts ...WebhookOption) *WebhookSink {
	host, _ := os.Hostname()
	s := &WebhookSink{
		url:     url,
		service: service,
		host:    host,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsDiscord reports whether the sink posts Discord payloads
func (s *WebhookSink) IsDiscord() bool {
	return strings.Contains(s.url, "discord.com")
}

type discordPayload struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       int           `json:"color"`
	Timestamp   string        `json:"timestamp"`
	Footer      discordFooter `json:"footer"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *WebhookSink) payload(event Event) any {
	entry := event.Text()
	if s.IsDiscord() {
		return discordPayload{
			Content: fmt.Sprintf("🚨 **%s Error**", s.service),
			Embeds: []discordEmbed{{
				Title:       "Error Report",
				Description: "```" + entry + "```",
				Color:       discordErrorColor,
				Timestamp:   event.Time.UTC().Format(time.RFC3339),
				Footer:      discordFooter{Text: s.host},
			}},
		}
	}
	return slackPayload{
		Text: fmt.Sprintf("🚨 *%s Error*\n```%s```", s.service, entry),
	}
}

// Send implements Sink
func (s *WebhookSink) Send(ctx context.Context, event Event) error {
	if !s.limiter.Allow() {
		return ErrRateLimited
	}

	body, err := json.Marshal(s.payload(event))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("post alert: unexpected status %d", resp.StatusCode)
	}
	return nil
}
