// Package task reports the progress of a running operation.
//
// A Reporter is bound to the context of one operation with WithReporter and
// retrieved with FromContext. Reporting is fire-and-forget.
package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/ui"
)

// Reporter receives status updates.
type Reporter interface {
	UpdateStatus(phase, status string)
}

type reporterKey struct{}

// WithReporter returns a context carrying r.
func WithReporter(ctx context.Context, r Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// FromContext returns the reporter bound to ctx, or Discard.
func FromContext(ctx context.Context) Reporter {
	if r, ok := ctx.Value(reporterKey{}).(Reporter); ok && r != nil {
		return r
	}
	return Discard
}

type discard struct{}

func (discard) UpdateStatus(string, string) {}

// Discard drops every update.
var Discard Reporter = discard{}

// Console prints updates as console steps.
type Console struct {
	mu sync.Mutex
	n  int
}

// UpdateStatus implements Reporter.
func (c *Console) UpdateStatus(_, status string) {
	c.mu.Lock()
	c.n++
	n := c.n
	c.mu.Unlock()
	ui.Step(n, "%s", status)
}

// Logger writes updates to the logger carried by a context.
type Logger struct {
	ctx context.Context
}

// NewLogger creates a Logger using the slog logger in ctx.
func NewLogger(ctx context.Context) *Logger {
	return &Logger{ctx: ctx}
}

// UpdateStatus implements Reporter.
func (l *Logger) UpdateStatus(phase, status string) {
	slogcontext.FromCtx(l.ctx).InfoContext(l.ctx, status, slog.String("phase", phase))
}

// Entry is one recorded status update.
type Entry struct {
	Phase  string    `json:"phase"`
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// History records updates in order. It is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{now: time.Now}
}

// UpdateStatus implements Reporter.
func (h *History) UpdateStatus(phase, status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now
	if h.now != nil {
		now = h.now
	}
	h.entries = append(h.entries, Entry{Phase: phase, Status: status, Time: now().UTC()})
}

// Entries returns a copy of the recorded updates.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Statuses returns the recorded status messages.
func (h *History) Statuses() []string {
	entries := h.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Status
	}
	return out
}

// Multi fans each update out to every reporter.
type Multi []Reporter

// UpdateStatus implements Reporter.
func (m Multi) UpdateStatus(phase, status string) {
	for _, r := range m {
		r.UpdateStatus(phase, status)
	}
}
