package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counters struct {
	mu    sync.Mutex
	loads map[View]int
}

func (c *counters) get(v View) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads[v]
}

func (c *counters) register(p *Poller) {
	c.loads = make(map[View]int)
	for _, v := range Views {
		p.Register(v, func(context.Context) (RenderFunc, error) {
			c.mu.Lock()
			c.loads[v]++
			c.mu.Unlock()
			return nil, nil
		})
	}
}

func eventuallyCount(t *testing.T, c *counters, v View, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.get(v) == n }, time.Second, time.Millisecond,
		"view %s expected %d loads, got %d", v, n, c.get(v))
}

func TestParseView(t *testing.T) {
	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{in: "dashboard", want: Dashboard},
		{in: "logs", want: Logs},
		{in: "1", want: Dashboard},
		{in: "6", want: Updates},
		{in: "0", wantErr: true},
		{in: "7", wantErr: true},
		{in: "settings", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseView(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownView)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTickLoadsOnlyActiveView(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := New(WithClock(clock))
	c := &counters{}
	c.register(p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	eventuallyCount(t, c, Dashboard, 1)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(DefaultInterval)
	eventuallyCount(t, c, Dashboard, 2)

	// switch mid-interval: the switch loads once, the next tick refreshes
	// the new view and not the old one
	clock.Advance(DefaultInterval / 2)
	require.NoError(t, p.ShowView(ctx, Users))
	eventuallyCount(t, c, Users, 1)

	clock.Advance(DefaultInterval / 2)
	eventuallyCount(t, c, Users, 2)
	require.Equal(t, 2, c.get(Dashboard))

	for _, v := range []View{Channels, Logs, Stats, Updates} {
		require.Zero(t, c.get(v), "hidden view %s must not load", v)
	}

	cancel()
	<-done
}

func TestShowViewRejectsUnknown(t *testing.T) {
	p := New()
	require.ErrorIs(t, p.ShowView(context.Background(), View("settings")), ErrUnknownView)
	require.Equal(t, Dashboard, p.ActiveView())
}

func TestStaleResponseDiscarded(t *testing.T) {
	p := New()

	gates := []chan struct{}{make(chan struct{}), make(chan struct{})}
	var call atomic.Int32
	var mu sync.Mutex
	var rendered []int

	p.Register(Logs, func(context.Context) (RenderFunc, error) {
		n := int(call.Add(1))
		<-gates[n-1]
		return func() {
			mu.Lock()
			rendered = append(rendered, n)
			mu.Unlock()
		}, nil
	})

	ctx := context.Background()
	require.NoError(t, p.ShowView(ctx, Logs))
	require.Eventually(t, func() bool { return call.Load() == 1 }, time.Second, time.Millisecond)
	p.Refresh(ctx)
	require.Eventually(t, func() bool { return call.Load() == 2 }, time.Second, time.Millisecond)

	// the second load completes first, then the slow first one
	close(gates[1])
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(rendered) == 1
	}, time.Second, time.Millisecond)
	close(gates[0])
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{2}, rendered)
}

func TestFailingLoadDoesNotStopTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var errs atomic.Int32
	p := New(WithClock(clock), WithErrorHandler(func(View, error) { errs.Add(1) }))

	var calls atomic.Int32
	p.Register(Dashboard, func(context.Context) (RenderFunc, error) {
		switch calls.Add(1) {
		case 1:
			return nil, errors.New("backend down")
		case 2:
			panic("render bug")
		}
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return errs.Load() == 2 }, time.Second, time.Millisecond)
}

func TestEditTarget(t *testing.T) {
	p := New(WithInitialView(Users))

	_, ok := p.EditTarget()
	require.False(t, ok)

	p.SetEditTarget("u1")
	got, ok := p.EditTarget()
	require.True(t, ok)
	assert.Equal(t, "u1", got)
	assert.Equal(t, State{View: Users, EditTarget: "u1"}, p.State())

	p.ClearEditTarget()
	_, ok = p.EditTarget()
	require.False(t, ok)
}

func TestStopEndsRun(t *testing.T) {
	p := New(WithClock(clockwork.NewFakeClock()))
	c := &counters{}
	c.register(p)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	eventuallyCount(t, c, Dashboard, 1)
	p.Stop()
	p.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
