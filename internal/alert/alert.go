// Package alert is the transient operator notification surface. At most one
// alert is visible; each one dismisses itself after a fixed delay.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Severity classifies an alert.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

const (
	// DisplayDuration is how long an alert stays visible.
	DisplayDuration = 5 * time.Second
	// FadeDuration is the exit transition between hide and removal.
	FadeDuration = 300 * time.Millisecond
)

// Alert is one notification.
type Alert struct {
	ID       uint64
	Message  string
	Severity Severity
	ShownAt  time.Time
}

// Sink renders alerts. Show is followed by Hide after DisplayDuration and
// Remove after FadeDuration, unless a newer alert removes it first.
type Sink interface {
	Show(a Alert)
	Hide(a Alert)
	Remove(a Alert)
}

// Notifier is what components post their outcomes to.
type Notifier interface {
	Notify(message string, severity Severity)
}

// Option configures a Channel.
type Option func(*Channel)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Channel) {
		c.clock = clock
	}
}

// Channel is a queue-of-one alert surface. It is safe for concurrent use.
type Channel struct {
	mu      sync.Mutex
	sink    Sink
	clock   clockwork.Clock
	metrics *telemetry.Metrics

	seq     uint64
	current *Alert
	timer   clockwork.Timer
}

// New creates a channel writing to sink.
func New(sink Sink, opts ...Option) *Channel {
	c := &Channel{
		sink:    sink,
		clock:   clockwork.NewRealClock(),
		metrics: telemetry.GetMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify shows message, replacing any visible alert. It never blocks on the
// sink timers and never panics.
func (c *Channel) Notify(message string, severity Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.stopTimerLocked()
		c.emit("remove", c.sink.Remove, *c.current)
		c.current = nil
	}

	c.seq++
	a := Alert{
		ID:       c.seq,
		Message:  message,
		Severity: severity,
		ShownAt:  c.clock.Now(),
	}
	c.current = &a

	c.metrics.AlertsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("severity", string(severity))))

	c.emit("show", c.sink.Show, a)

	c.timer = c.clock.AfterFunc(DisplayDuration, func() { c.hide(a.ID) })
}

// Success posts a success alert.
func (c *Channel) Success(message string) { c.Notify(message, Success) }

// Error posts an error alert.
func (c *Channel) Error(message string) { c.Notify(message, Error) }

// Warning posts a warning alert.
func (c *Channel) Warning(message string) { c.Notify(message, Warning) }

// Info posts an informational alert.
func (c *Channel) Info(message string) { c.Notify(message, Info) }

// Current returns the visible alert, if any. An alert in its exit
// transition still counts as visible.
func (c *Channel) Current() (Alert, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Alert{}, false
	}
	return *c.current, true
}

func (c *Channel) hide(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != id {
		return
	}

	c.emit("hide", c.sink.Hide, *c.current)
	c.timer = c.clock.AfterFunc(FadeDuration, func() { c.remove(id) })
}

func (c *Channel) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != id {
		return
	}

	a := *c.current
	c.current = nil
	c.timer = nil
	c.emit("remove", c.sink.Remove, a)
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// emit calls a sink method, swallowing panics so a broken sink cannot take
// down the caller.
func (c *Channel) emit(event string, fn func(Alert), a Alert) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", event).Uint64("alert", a.ID).Msg("alert sink panicked")
		}
	}()
	fn(a)
}
