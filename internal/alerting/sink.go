// Package alerting forwards error-level log records to a remote webhook.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Event is one structured alert
type Event struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Text renders the event the way it appears in chat alerts
func (e Event) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s - %s", e.Time.Format("2006-01-02 15:04:05"), e.Level.String(), e.Message)

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Attrs[k])
	}
	return b.String()
}

// Sink accepts alert events
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// NopSink discards every event
type NopSink struct{}

// Send implements Sink
func (NopSink) Send(context.Context, Event) error { return nil }
