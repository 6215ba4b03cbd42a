package channels

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/funkctl/internal/alert"
	"github.com/wolfeidau/funkctl/internal/client"
	"github.com/wolfeidau/funkctl/internal/models"
)

var wantTopology = []int{41, 42, 43, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63, 64, 65, 66, 67, 68, 69}

func TestTopology(t *testing.T) {
	require.Equal(t, wantTopology, Topology())
}

func TestMergeTopologyCompleteness(t *testing.T) {
	tests := []struct {
		name  string
		usage []models.ChannelUsage
	}{
		{name: "nil payload"},
		{name: "empty payload", usage: []models.ChannelUsage{}},
		{name: "sparse payload", usage: []models.ChannelUsage{
			{ID: 42, UniqueUsers: 3, TotalConnections: 10},
			{ID: 60, Name: "Einsatzleitung", UniqueUsers: 1, TotalConnections: 2},
		}},
		{name: "unknown ids", usage: []models.ChannelUsage{
			{ID: 1, UniqueUsers: 9}, {ID: 44, UniqueUsers: 9}, {ID: 50}, {ID: 70}, {ID: 99},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := Merge(tt.usage)

			ids := make([]int, 0, len(merged))
			for _, ch := range merged {
				ids = append(ids, ch.ID)
			}
			require.Equal(t, wantTopology, ids)

			reported := make(map[int]bool)
			for _, u := range tt.usage {
				reported[u.ID] = true
			}
			for _, ch := range merged {
				if !reported[ch.ID] {
					assert.Zero(t, ch.UniqueUsers, "channel %d", ch.ID)
					assert.Zero(t, ch.TotalConnections, "channel %d", ch.ID)
				}
			}
		})
	}
}

func TestMergeNamesAndKinds(t *testing.T) {
	merged := Merge([]models.ChannelUsage{
		{ID: 42, UniqueUsers: 3, TotalConnections: 10},
		{ID: 60, Name: "Einsatzleitung"},
	})

	byID := make(map[int]Channel)
	for _, ch := range merged {
		byID[ch.ID] = ch
	}

	assert.Equal(t, Channel{ID: 41, Name: "Kanal 41 (Allgemein)", Kind: Public}, byID[41])
	assert.Equal(t, Channel{ID: 42, Name: "Kanal 42 (Allgemein)", Kind: Public, UniqueUsers: 3, TotalConnections: 10}, byID[42])
	assert.Equal(t, Channel{ID: 51, Name: "Kanal 51", Kind: Private}, byID[51])
	assert.Equal(t, "Einsatzleitung", byID[60].Name)
	assert.NotEqual(t, byID[41].Badge(), byID[51].Badge())
}

func TestTableRowPerChannel(t *testing.T) {
	tbl := Table(Merge(nil), func(id int) ButtonState {
		if id == 52 {
			return Sending
		}
		return Idle
	})
	require.Len(t, tbl.Rows, len(wantTopology))
	require.Equal(t, "Kanal 41", tbl.Rows[0][0])
	require.Equal(t, Sending.String(), tbl.Rows[4][4])
}

func TestCheckboxes(t *testing.T) {
	groups := Checkboxes([]int{41, 52, 99})
	require.Len(t, groups, 2)
	require.Equal(t, Public, groups[0].Kind)
	require.Len(t, groups[0].Boxes, 3)
	require.Equal(t, Private, groups[1].Kind)
	require.Len(t, groups[1].Boxes, 19)

	require.Equal(t, Checkbox{ID: 41, Checked: true}, groups[0].Boxes[0])
	require.Equal(t, Checkbox{ID: 42}, groups[0].Boxes[1])
	require.Equal(t, Checkbox{ID: 52, Checked: true}, groups[1].Boxes[1])

	out := FormatCheckboxes(groups)
	require.Contains(t, out, "Öffentliche Kanäle: [x] 41 [ ] 42 [ ] 43\n")
	require.Contains(t, out, "[x] 52")
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]int{52, 41, 52})
	require.NoError(t, err)
	require.Equal(t, []int{41, 52}, got)

	got, err = Normalize(nil)
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = Normalize([]int{41, 45})
	require.EqualError(t, err, "channel 45 does not exist")
}

type fakeToneAPI struct {
	err error
}

func (f *fakeToneAPI) TestTone(_ context.Context, id int) (*models.TestToneResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.TestToneResult{ChannelName: DefaultName(id)}, nil
}

type transitions struct {
	mu     sync.Mutex
	states []ButtonState
}

func (tr *transitions) record(_ int, s ButtonState) {
	tr.mu.Lock()
	tr.states = append(tr.states, s)
	tr.mu.Unlock()
}

func (tr *transitions) get() []ButtonState {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]ButtonState(nil), tr.states...)
}

func newTestAlerts() (*alert.Channel, *alert.Recorder) {
	rec := &alert.Recorder{}
	return alert.New(rec, alert.WithClock(clockwork.NewFakeClock())), rec
}

func TestToneSuccess(t *testing.T) {
	clock := clockwork.NewFakeClock()
	alerts, rec := newTestAlerts()
	tr := &transitions{}
	tones := NewTones(&fakeToneAPI{}, alerts, WithToneClock(clock), WithStateChange(tr.record))

	require.NoError(t, tones.Send(context.Background(), 52))
	require.Equal(t, Sent, tones.State(52))
	require.True(t, tones.State(52).Disabled())

	last, _ := rec.Last()
	require.Equal(t, "Test-Ton wird an Kanal 52 gesendet", last.Message)
	require.Equal(t, alert.Success, last.Severity)

	// clicks while disabled are refused
	require.ErrorIs(t, tones.Send(context.Background(), 52), ErrToneBusy)

	clock.Advance(SentDuration)
	require.Eventually(t, func() bool { return tones.State(52) == Idle }, time.Second, time.Millisecond)
	require.Equal(t, []ButtonState{Sending, Sent, Idle}, tr.get())
}

func TestToneFailureResetsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rejected",
			err:  &client.HTTPError{StatusCode: http.StatusServiceUnavailable, Detail: "Voice server not connected"},
			want: "Voice server not connected",
		},
		{
			name: "transport",
			err:  &client.TransportError{Op: "POST /api/channels/{id}/test-tone", Err: context.DeadlineExceeded},
			want: "Fehler beim Senden des Test-Tons",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts, rec := newTestAlerts()
			tr := &transitions{}
			tones := NewTones(&fakeToneAPI{err: tt.err}, alerts, WithToneClock(clockwork.NewFakeClock()), WithStateChange(tr.record))

			require.Error(t, tones.Send(context.Background(), 41))
			require.Equal(t, Idle, tones.State(41))
			require.Equal(t, []ButtonState{Sending, Idle}, tr.get())

			last, _ := rec.Last()
			require.Equal(t, tt.want, last.Message)
			require.Equal(t, alert.Error, last.Severity)
		})
	}
}

func TestToneUnknownChannel(t *testing.T) {
	alerts, _ := newTestAlerts()
	tones := NewTones(&fakeToneAPI{}, alerts)
	require.ErrorIs(t, tones.Send(context.Background(), 44), ErrUnknownChannel)
}
