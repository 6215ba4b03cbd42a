// Package poller drives view refreshes: it loads the active view when it is
// shown and again on every tick, and never touches hidden views.
package poller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// View names one dashboard pane.
type View string

const (
	Dashboard View = "dashboard"
	Users     View = "users"
	Channels  View = "channels"
	Logs      View = "logs"
	Stats     View = "stats"
	Updates   View = "updates"
)

// Views lists every view in navigation order.
var Views = []View{Dashboard, Users, Channels, Logs, Stats, Updates}

// DefaultInterval is the refresh period of the active view.
const DefaultInterval = 10 * time.Second

// ErrUnknownView is returned for a view name outside Views.
var ErrUnknownView = errors.New("unknown view")

// ParseView accepts a view name or its 1-based position in Views.
func ParseView(s string) (View, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > len(Views) {
			return "", fmt.Errorf("%w: %s", ErrUnknownView, s)
		}
		return Views[n-1], nil
	}
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownView, s)
}

// RenderFunc applies a completed load to the view.
type RenderFunc func()

// LoadFunc fetches a view's data. The returned RenderFunc is only invoked if
// no newer load of the same view has rendered in the meantime.
type LoadFunc func(ctx context.Context) (RenderFunc, error)

// ErrorFunc receives load failures. Views normally turn these into alerts
// inside their LoadFunc; this is the backstop for whatever escapes.
type ErrorFunc func(view View, err error)

// State is the single dashboard state value: the active view plus the user
// currently being edited, if any.
type State struct {
	View       View
	EditTarget string
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the refresh interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) {
		p.clock = clock
	}
}

// WithErrorHandler registers fn for load failures.
func WithErrorHandler(fn ErrorFunc) Option {
	return func(p *Poller) {
		p.onError = fn
	}
}

// WithInitialView selects the view active before the first ShowView.
func WithInitialView(v View) Option {
	return func(p *Poller) {
		p.state.View = v
	}
}

// Poller owns the dashboard state and schedules loads.
type Poller struct {
	mu      sync.Mutex
	state   State
	loaders map[View]LoadFunc
	issued  map[View]uint64

	// renderMu serializes renders and guards rendered.
	renderMu sync.Mutex
	rendered map[View]uint64

	interval time.Duration
	clock    clockwork.Clock
	onError  ErrorFunc
	metrics  *telemetry.Metrics
	wg       sync.WaitGroup

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a poller with the dashboard view active.
func New(opts ...Option) *Poller {
	p := &Poller{
		state:    State{View: Dashboard},
		loaders:  make(map[View]LoadFunc),
		issued:   make(map[View]uint64),
		rendered: make(map[View]uint64),
		interval: DefaultInterval,
		clock:    clockwork.NewRealClock(),
		metrics:  telemetry.GetMetrics(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.onError == nil {
		p.onError = func(view View, err error) {
			log.Error().Err(err).Str("view", string(view)).Msg("view load failed")
		}
	}
	return p
}

// Register sets the load function of a view.
func (p *Poller) Register(v View, fn LoadFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaders[v] = fn
}

// State returns a copy of the dashboard state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ActiveView returns the visible view.
func (p *Poller) ActiveView() View {
	return p.State().View
}

// SetEditTarget records the user whose edit form is open.
func (p *Poller) SetEditTarget(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.EditTarget = username
}

// ClearEditTarget closes the edit target.
func (p *Poller) ClearEditTarget() {
	p.SetEditTarget("")
}

// EditTarget returns the user being edited, if any.
func (p *Poller) EditTarget() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.EditTarget, p.state.EditTarget != ""
}

// ShowView makes v the active view and starts its load without waiting for
// it.
func (p *Poller) ShowView(ctx context.Context, v View) error {
	if _, err := ParseView(string(v)); err != nil {
		return err
	}

	p.mu.Lock()
	prev := p.state.View
	p.state.View = v
	p.mu.Unlock()

	log.Debug().Str("from", string(prev)).Str("to", string(v)).Msg("view switched")

	p.load(ctx, v, "show")
	return nil
}

// Refresh reloads the active view.
func (p *Poller) Refresh(ctx context.Context) {
	p.load(ctx, p.ActiveView(), "refresh")
}

// Tick reloads the active view and nothing else.
func (p *Poller) Tick(ctx context.Context) {
	v := p.ActiveView()
	p.metrics.PollTicksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("view", string(v))))
	p.load(ctx, v, "tick")
}

// Run loads the active view, then ticks every interval until ctx is done or
// Stop is called. It waits for in-flight loads before returning.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.Wait()

	p.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case <-ticker.Chan():
			p.Tick(ctx)
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Wait blocks until every started load has finished.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) load(ctx context.Context, v View, trigger string) {
	p.mu.Lock()
	fn, ok := p.loaders[v]
	if !ok {
		p.mu.Unlock()
		return
	}
	p.issued[v]++
	seq := p.issued[v]
	p.mu.Unlock()

	p.metrics.ViewLoadsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("view", string(v)),
		attribute.String("trigger", trigger),
	))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.onError(v, fmt.Errorf("view %s load panicked: %v", v, r))
			}
		}()

		render, err := fn(ctx)
		if err != nil {
			p.onError(v, err)
			return
		}
		p.render(ctx, v, seq, render)
	}()
}

func (p *Poller) render(ctx context.Context, v View, seq uint64, render RenderFunc) {
	p.renderMu.Lock()
	defer p.renderMu.Unlock()

	if seq <= p.rendered[v] {
		log.Debug().Str("view", string(v)).Uint64("seq", seq).Uint64("rendered", p.rendered[v]).Msg("discarding stale response")
		p.metrics.StaleResponsesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("view", string(v))))
		return
	}
	p.rendered[v] = seq

	if render != nil {
		render()
	}
}
