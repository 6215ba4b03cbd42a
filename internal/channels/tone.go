package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/alert"
	"github.com/wolfeidau/funkctl/internal/client"
	"github.com/wolfeidau/funkctl/internal/models"
)

// SentDuration is how long the button shows the sent label.
const SentDuration = 2 * time.Second

var (
	// ErrUnknownChannel is returned for ids outside the topology.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrToneBusy is returned while the channel's button is disabled.
	ErrToneBusy = errors.New("test tone already in progress")
)

// ButtonState is the per-channel test tone button.
type ButtonState int

const (
	Idle ButtonState = iota
	Sending
	Sent
)

func (s ButtonState) String() string {
	switch s {
	case Sending:
		return "⏳ Sende..."
	case Sent:
		return "✅ Gesendet"
	}
	return "🔊 Test"
}

// Disabled reports whether the button accepts clicks.
func (s ButtonState) Disabled() bool {
	return s != Idle
}

// ToneAPI sends test tones.
type ToneAPI interface {
	TestTone(ctx context.Context, channelID int) (*models.TestToneResult, error)
}

// ToneOption configures Tones.
type ToneOption func(*Tones)

// WithToneClock replaces the wall clock, mostly for tests.
func WithToneClock(clock clockwork.Clock) ToneOption {
	return func(t *Tones) {
		t.clock = clock
	}
}

// WithStateChange registers fn to run after every button transition.
func WithStateChange(fn func(id int, state ButtonState)) ToneOption {
	return func(t *Tones) {
		t.onChange = fn
	}
}

// Tones tracks test tone buttons. The state is UI feedback only.
type Tones struct {
	api      ToneAPI
	alerts   alert.Notifier
	clock    clockwork.Clock
	onChange func(id int, state ButtonState)

	mu     sync.Mutex
	states map[int]ButtonState
	timers map[int]clockwork.Timer
}

// NewTones creates the button tracker.
func NewTones(api ToneAPI, alerts alert.Notifier, opts ...ToneOption) *Tones {
	t := &Tones{
		api:      api,
		alerts:   alerts,
		clock:    clockwork.NewRealClock(),
		onChange: func(int, ButtonState) {},
		states:   make(map[int]ButtonState),
		timers:   make(map[int]clockwork.Timer),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the button state of id.
func (t *Tones) State(id int) ButtonState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[id]
}

// Send plays a test tone on id. The button goes to sending, then to sent
// for SentDuration on success, or straight back to idle on failure.
func (t *Tones) Send(ctx context.Context, id int) error {
	if !Exists(id) {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, id)
	}

	t.mu.Lock()
	if t.states[id].Disabled() {
		t.mu.Unlock()
		return ErrToneBusy
	}
	t.states[id] = Sending
	t.mu.Unlock()
	t.onChange(id, Sending)

	result, err := t.api.TestTone(ctx, id)
	if err != nil {
		log.Error().Err(err).Int("channel", id).Msg("test tone failed")
		t.set(id, Idle)
		t.alerts.Notify(client.Message(err, "Fehler beim Senden", "Fehler beim Senden des Test-Tons"), alert.Error)
		return err
	}

	t.alerts.Notify(fmt.Sprintf("Test-Ton wird an %s gesendet", result.ChannelName), alert.Success)

	t.mu.Lock()
	t.states[id] = Sent
	t.timers[id] = t.clock.AfterFunc(SentDuration, func() { t.reset(id) })
	t.mu.Unlock()
	t.onChange(id, Sent)

	return nil
}

func (t *Tones) reset(id int) {
	t.mu.Lock()
	if t.states[id] != Sent {
		t.mu.Unlock()
		return
	}
	delete(t.timers, id)
	t.mu.Unlock()

	t.set(id, Idle)
}

func (t *Tones) set(id int, s ButtonState) {
	t.mu.Lock()
	if s == Idle {
		delete(t.states, id)
	} else {
		t.states[id] = s
	}
	t.mu.Unlock()
	t.onChange(id, s)
}
