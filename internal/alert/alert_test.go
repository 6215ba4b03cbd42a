package alert

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind string
	id   uint64
}

type eventSink struct {
	mu     sync.Mutex
	events []event
}

func (s *eventSink) record(kind string, a Alert) {
	s.mu.Lock()
	s.events = append(s.events, event{kind, a.ID})
	s.mu.Unlock()
}

func (s *eventSink) Show(a Alert)   { s.record("show", a) }
func (s *eventSink) Hide(a Alert)   { s.record("hide", a) }
func (s *eventSink) Remove(a Alert) { s.record("remove", a) }

func (s *eventSink) snapshot() []event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event(nil), s.events...)
}

func (s *eventSink) has(e event) func() bool {
	return func() bool {
		for _, got := range s.snapshot() {
			if got == e {
				return true
			}
		}
		return false
	}
}

func TestNotifyLifecycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &eventSink{}
	ch := New(sink, WithClock(clock))

	ch.Notify("Benutzer erstellt", Success)

	cur, ok := ch.Current()
	require.True(t, ok)
	require.Equal(t, "Benutzer erstellt", cur.Message)
	require.Equal(t, Success, cur.Severity)
	require.Equal(t, []event{{"show", 1}}, sink.snapshot())

	clock.Advance(DisplayDuration - time.Millisecond)
	require.Equal(t, []event{{"show", 1}}, sink.snapshot())

	clock.Advance(time.Millisecond)
	require.Eventually(t, sink.has(event{"hide", 1}), time.Second, time.Millisecond)

	// still visible during the exit transition
	_, ok = ch.Current()
	require.True(t, ok)

	clock.Advance(FadeDuration)
	require.Eventually(t, sink.has(event{"remove", 1}), time.Second, time.Millisecond)

	_, ok = ch.Current()
	require.False(t, ok)
}

func TestNotifyReplacesVisibleAlert(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &eventSink{}
	ch := New(sink, WithClock(clock))

	ch.Error("Fehler beim Laden der Benutzer")
	clock.Advance(2 * time.Second)
	ch.Success("Benutzer gespeichert")

	require.Equal(t, []event{{"show", 1}, {"remove", 1}, {"show", 2}}, sink.snapshot())

	cur, ok := ch.Current()
	require.True(t, ok)
	require.Equal(t, uint64(2), cur.ID)

	// the first alert's timer no longer fires; the second one's does
	clock.Advance(3 * time.Second)
	require.Never(t, sink.has(event{"hide", 1}), 50*time.Millisecond, time.Millisecond)

	clock.Advance(2 * time.Second)
	require.Eventually(t, sink.has(event{"hide", 2}), time.Second, time.Millisecond)
}

type panicSink struct{}

func (panicSink) Show(Alert)   { panic("boom") }
func (panicSink) Hide(Alert)   { panic("boom") }
func (panicSink) Remove(Alert) { panic("boom") }

func TestNotifyNeverPanics(t *testing.T) {
	ch := New(panicSink{}, WithClock(clockwork.NewFakeClock()))

	require.NotPanics(t, func() {
		ch.Warning("one")
		ch.Info("two")
	})
}

func TestNotifyConcurrent(t *testing.T) {
	ch := New(&Recorder{}, WithClock(clockwork.NewFakeClock()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch.Info("tick")
		}()
	}
	wg.Wait()

	cur, ok := ch.Current()
	require.True(t, ok)
	require.Equal(t, uint64(20), cur.ID)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf, true)

	sink.Show(Alert{Message: "Upload erfolgreich", Severity: Success})
	sink.Show(Alert{Message: "Netzwerkfehler", Severity: Error})

	assert.Equal(t, "[OK] Upload erfolgreich\n[ERROR] Netzwerkfehler\n", buf.String())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_, ok := r.Last()
	require.False(t, ok)

	ch := New(r, WithClock(clockwork.NewFakeClock()))
	ch.Error("a")
	ch.Success("b")

	last, ok := r.Last()
	require.True(t, ok)
	require.Equal(t, "b", last.Message)
	require.Len(t, r.Alerts(), 2)
}
