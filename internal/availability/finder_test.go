package availability

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/LamPham123/CalPal.ai/internal/logging"
)

type fakeProvider struct {
	busy   map[string][]Interval
	errs   map[string]error
	delays map[string]time.Duration
	calls  atomic.Int32
}

func (p *fakeProvider) BusyIntervals(ctx context.Context, id string, _ Window) ([]Interval, error) {
	p.calls.Add(1)
	if d := p.delays[id]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := p.errs[id]; err != nil {
		return nil, err
	}
	return p.busy[id], nil
}

type recordingRecorder struct {
	mu        sync.Mutex
	fetches   []string
	malformed int
	searches  []string
}

func (r *recordingRecorder) RecordBusyFetch(_ context.Context, id, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches = append(r.fetches, id+"="+status)
}

func (r *recordingRecorder) RecordMalformedIntervals(_ context.Context, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.malformed += n
}

func (r *recordingRecorder) RecordSlotSearch(_ context.Context, status string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, status)
}

func newTestFinder(p BusyProvider, opts Options) *Finder {
	if opts.Logger == nil {
		opts.Logger = logging.DiscardLogger()
	}
	return NewFinder(p, opts)
}

func TestFindBestSlots_ScenarioA(t *testing.T) {
	provider := &fakeProvider{busy: map[string][]Interval{
		"p1": {iv(t, "2025-03-04 09:00", "2025-03-04 10:00")},
		"p2": {iv(t, "2025-03-04 14:00", "2025-03-04 15:00")},
	}}
	finder := newTestFinder(provider, Options{})

	result, err := finder.FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"p1", "p2"},
		Window:          win(t, "2025-03-04 00:00", "2025-03-05 00:00"),
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	var want []string
	for _, period := range [][2]string{{"00:00", "08:00"}, {"10:00", "13:00"}, {"15:00", "23:00"}} {
		for s := at(t, "2025-03-04 "+period[0]); !s.After(at(t, "2025-03-04 "+period[1])); s = s.Add(30 * time.Minute) {
			want = append(want, s.Format("01-02 15:04"))
		}
	}
	assert.Equal(t, want, starts(result.Slots))
	assert.Equal(t, 41, result.TotalFound)
	assertNoOverlap(t, result.Slots, provider.busy)
}

func TestFindBestSlots_ScenarioB(t *testing.T) {
	provider := &fakeProvider{busy: map[string][]Interval{
		"p1": {iv(t, "2025-03-04 08:00", "2025-03-04 13:00")},
		"p2": {iv(t, "2025-03-04 12:00", "2025-03-04 18:00")},
	}}
	recorder := &recordingRecorder{}
	finder := newTestFinder(provider, Options{Metrics: recorder})

	result, err := finder.FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"p1", "p2"},
		Window:          win(t, "2025-03-04 08:00", "2025-03-04 18:00"),
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Slots)
	assert.Empty(t, result.Slots)
	assert.Zero(t, result.TotalFound)
	assert.Equal(t, []string{"empty"}, recorder.searches)
}

func TestFindBestSlots_ScenarioC(t *testing.T) {
	// 2025-03-08 is a Saturday, 2025-03-10 the following Monday.
	provider := &fakeProvider{}
	finder := newTestFinder(provider, Options{})

	result, err := finder.FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"p1"},
		Window:          win(t, "2025-03-08 00:00", "2025-03-11 00:00"),
		DurationMinutes: 60,
		Preferences:     Preferences{WorkHoursStart: "09:00", WorkHoursEnd: "17:00", AvoidWeekends: true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Slots)

	assert.Equal(t, "03-10 13:00", starts(result.Slots)[0])
	assert.Len(t, result.Slots, 15)
	for _, s := range result.Slots {
		assert.Equal(t, time.Monday, s.Start.Weekday())
		assert.GreaterOrEqual(t, s.Start.Hour(), 9)
		assert.LessOrEqual(t, minuteOfDay(s.End), 17*60)
	}
}

func TestFindBestSlots_ScenarioD(t *testing.T) {
	busy := []Interval{
		iv(t, "2025-03-04 10:00", "2025-03-04 11:00"),
		iv(t, "2025-03-04 13:00", "2025-03-04 15:00"),
	}
	window := win(t, "2025-03-04 09:00", "2025-03-04 17:00")
	provider := &fakeProvider{busy: map[string][]Interval{"solo": busy}}

	free, _ := Invert(busy, window)
	assert.Equal(t, free, IntersectAll([][]Interval{free}))

	result, err := newTestFinder(provider, Options{}).FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"solo"},
		Window:          window,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"03-04 09:00", "03-04 11:00", "03-04 11:30", "03-04 12:00", "03-04 15:00", "03-04 15:30", "03-04 16:00"}, starts(result.Slots))
}

func TestFindBestSlots_ScenarioE(t *testing.T) {
	provider := &fakeProvider{}

	result, err := newTestFinder(provider, Options{}).FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"p1", "p2"},
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 480,
	})
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)
	assert.True(t, result.Slots[0].Start.Equal(at(t, "2025-03-04 09:00")))
	assert.True(t, result.Slots[0].End.Equal(at(t, "2025-03-04 17:00")))
}

func TestFindBestSlots_ValidationBeforeFetch(t *testing.T) {
	window := win(t, "2025-03-04 09:00", "2025-03-04 17:00")

	tests := []struct {
		name    string
		req     Request
		opts    Options
		wantErr error
	}{
		{"inverted window", Request{ParticipantIDs: []string{"p1"}, Window: Window{Start: window.End, End: window.Start}, DurationMinutes: 30}, Options{}, ErrInvalidWindow},
		{"empty window", Request{ParticipantIDs: []string{"p1"}, Window: Window{Start: window.Start, End: window.Start}, DurationMinutes: 30}, Options{}, ErrInvalidWindow},
		{"zero duration", Request{ParticipantIDs: []string{"p1"}, Window: window}, Options{}, ErrInvalidDuration},
		{"negative duration", Request{ParticipantIDs: []string{"p1"}, Window: window, DurationMinutes: -15}, Options{}, ErrInvalidDuration},
		{"bad granularity", Request{ParticipantIDs: []string{"p1"}, Window: window, DurationMinutes: 30}, Options{Granularity: -time.Minute}, ErrInvalidGranularity},
		{"bad preferences", Request{ParticipantIDs: []string{"p1"}, Window: window, DurationMinutes: 30, Preferences: Preferences{WorkHoursStart: "nine"}}, Options{}, ErrInvalidPreferences},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{}
			_, err := newTestFinder(provider, tt.opts).FindBestSlots(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsInvalidInput(err))
			assert.Zero(t, provider.calls.Load())
		})
	}
}

func TestFindBestSlots_FetchFailureIsFatal(t *testing.T) {
	upstream := errors.New("calendar unavailable")
	provider := &fakeProvider{
		errs:   map[string]error{"p2": upstream},
		delays: map[string]time.Duration{"p1": time.Second, "p3": time.Second},
	}
	recorder := &recordingRecorder{}
	finder := newTestFinder(provider, Options{Metrics: recorder})

	start := time.Now()
	result, err := finder.FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"p1", "p2", "p3"},
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 30,
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Less(t, time.Since(start), 900*time.Millisecond, "in-flight fetches should be cancelled")

	assert.ErrorIs(t, err, ErrProviderFetch)
	assert.ErrorIs(t, err, upstream)
	assert.False(t, IsInvalidInput(err))

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "p2", fetchErr.Participant)
	assert.Equal(t, []string{"error"}, recorder.searches)
}

func TestFindBestSlots_FetchTimeout(t *testing.T) {
	provider := &fakeProvider{delays: map[string]time.Duration{"slow": time.Second}}
	finder := newTestFinder(provider, Options{FetchTimeout: 20 * time.Millisecond})

	_, err := finder.FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"fast", "slow"},
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 30,
	})

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "slow", fetchErr.Participant)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
}

func TestFindBestSlots_CallerCancellation(t *testing.T) {
	provider := &fakeProvider{delays: map[string]time.Duration{"p1": time.Second}}
	recorder := &recordingRecorder{}
	finder := newTestFinder(provider, Options{Metrics: recorder})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	result, err := finder.FindBestSlots(ctx, Request{
		ParticipantIDs:  []string{"p1"},
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 30,
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrProviderFetch)
	assert.Equal(t, []string{"canceled"}, recorder.searches)
}

func TestFindBestSlots_OrderIndependentOfCompletion(t *testing.T) {
	busy := map[string][]Interval{
		"a": {iv(t, "2025-03-04 09:00", "2025-03-04 10:00")},
		"b": {iv(t, "2025-03-04 12:00", "2025-03-04 13:00")},
		"c": {iv(t, "2025-03-05 09:00", "2025-03-05 11:00")},
	}
	req := Request{
		ParticipantIDs:  []string{"a", "b", "c"},
		Window:          win(t, "2025-03-04 08:00", "2025-03-06 18:00"),
		DurationMinutes: 45,
		Preferences:     Preferences{WorkHoursStart: "08:00", WorkHoursEnd: "18:00"},
	}

	var first []Interval
	for i, delays := range []map[string]time.Duration{
		{"a": 30 * time.Millisecond},
		{"b": 30 * time.Millisecond},
		{"c": 30 * time.Millisecond},
		{},
	} {
		provider := &fakeProvider{busy: busy, delays: delays}
		result, err := newTestFinder(provider, Options{}).FindBestSlots(context.Background(), req)
		require.NoError(t, err)
		if i == 0 {
			first = result.Slots
			continue
		}
		assert.Equal(t, first, result.Slots)
	}
}

func TestFindBestSlots_MalformedIntervalsAreCounted(t *testing.T) {
	provider := &fakeProvider{busy: map[string][]Interval{
		"p1": {
			iv(t, "2025-03-04 11:00", "2025-03-04 10:00"),
			iv(t, "2025-03-04 14:00", "2025-03-04 14:00"),
			iv(t, "2025-03-04 12:00", "2025-03-04 13:00"),
		},
	}}
	recorder := &recordingRecorder{}

	result, err := newTestFinder(provider, Options{Metrics: recorder}).FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"p1"},
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DiscardedIntervals)
	assert.Equal(t, 1, recorder.malformed)
	assert.Contains(t, starts(result.Slots), "03-04 10:00")
	assert.NotContains(t, starts(result.Slots), "03-04 12:00")
	assert.ElementsMatch(t, []string{"p1=success"}, recorder.fetches)
}

func TestFindBestSlots_NoParticipants(t *testing.T) {
	result, err := newTestFinder(&fakeProvider{}, Options{}).FindBestSlots(context.Background(), Request{
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
}

func TestFindBestSlots_MaxResults(t *testing.T) {
	finder := newTestFinder(&fakeProvider{}, Options{MaxResults: 7})
	req := Request{
		ParticipantIDs:  []string{"p1"},
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 30,
	}

	result, err := finder.FindBestSlots(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Slots, 7)
	assert.Equal(t, 16, result.TotalFound)

	req.MaxResults = 3
	result, err = finder.FindBestSlots(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Slots, 3)
}

func TestFindBestSlots_Location(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	result, err := newTestFinder(&fakeProvider{}, Options{}).FindBestSlots(context.Background(), Request{
		ParticipantIDs:  []string{"p1"},
		Window:          win(t, "2025-03-04 00:00", "2025-03-05 00:00"),
		DurationMinutes: 60,
		Preferences:     Preferences{WorkHoursStart: "09:00", WorkHoursEnd: "12:00"},
		Location:        ny,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Slots)
	for _, s := range result.Slots {
		assert.Equal(t, ny, s.Start.Location())
		assert.GreaterOrEqual(t, s.Start.Hour(), 9)
		assert.LessOrEqual(t, minuteOfDay(s.End), 12*60)
	}
}

func TestFindBestSlots_RateLimited(t *testing.T) {
	provider := &fakeProvider{}
	limiter := rate.NewLimiter(rate.Inf, 1)
	finder := newTestFinder(provider, Options{Limiter: limiter, FetchConcurrency: 2})

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}
	_, err := finder.FindBestSlots(context.Background(), Request{
		ParticipantIDs:  ids,
		Window:          win(t, "2025-03-04 09:00", "2025-03-04 17:00"),
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(10), provider.calls.Load())
}

// TestFindBestSlots_Properties checks the result invariants over randomized
// calendars with a fixed seed.
func TestFindBestSlots_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	window := win(t, "2025-03-03 00:00", "2025-03-10 00:00")

	for round := 0; round < 25; round++ {
		busy := make(map[string][]Interval)
		ids := []string{"a", "b", "c"}[:1+rng.Intn(3)]
		for _, id := range ids {
			for n := rng.Intn(15); n > 0; n-- {
				start := window.Start.Add(time.Duration(rng.Intn(7*24*4)) * 15 * time.Minute)
				busy[id] = append(busy[id], Interval{Start: start, End: start.Add(time.Duration(1+rng.Intn(12)) * 15 * time.Minute)})
			}
		}
		prefs := Preferences{AvoidWeekends: rng.Intn(2) == 0}
		if rng.Intn(2) == 0 {
			prefs.WorkHoursStart, prefs.WorkHoursEnd = "08:30", "18:00"
		}
		duration := 15 * (1 + rng.Intn(8))
		req := Request{ParticipantIDs: ids, Window: window, DurationMinutes: duration, Preferences: prefs, MaxResults: 50}

		finder := newTestFinder(&fakeProvider{busy: busy}, Options{})
		result, err := finder.FindBestSlots(context.Background(), req)
		require.NoError(t, err)
		again, err := finder.FindBestSlots(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, result.Slots, again.Slots, "round %d not deterministic", round)
		assert.LessOrEqual(t, len(result.Slots), 50)
		assertNoOverlap(t, result.Slots, busy)
		for _, s := range result.Slots {
			assert.Equal(t, time.Duration(duration)*time.Minute, s.Duration())
			assert.False(t, s.Start.Before(window.Start) || s.End.After(window.End))
			if prefs.AvoidWeekends {
				assert.False(t, isWeekend(s.Start))
			}
			if prefs.WorkHoursStart != "" {
				assert.True(t, sameDate(s.Start, s.End))
				assert.GreaterOrEqual(t, minuteOfDay(s.Start), 8*60+30)
				assert.LessOrEqual(t, minuteOfDay(s.End), 18*60)
			}
		}
	}
}

func assertNoOverlap(t *testing.T, slots []Interval, busy map[string][]Interval) {
	t.Helper()
	for _, s := range slots {
		for id, blocks := range busy {
			for _, b := range blocks {
				if b.Valid() {
					assert.False(t, s.Overlaps(b), "slot %s overlaps busy %s of %s", s, b, id)
				}
			}
		}
	}
}

func TestRequestIDFromContext(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = RequestIDFromContext(WithRequestID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := RequestIDFromContext(WithRequestID(context.Background(), "req-1"))
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestFetchBusy_WaitsOnLimiter(t *testing.T) {
	provider := &fakeProvider{busy: map[string][]Interval{
		"p1": {iv(t, "2025-03-04 09:00", "2025-03-04 10:00")},
	}}
	recorder := &recordingRecorder{}
	finder := newTestFinder(provider, Options{
		Limiter: rate.NewLimiter(rate.Limit(0.001), 1),
		Metrics: recorder,
	})
	window := win(t, "2025-03-04 00:00", "2025-03-05 00:00")

	busy, err := finder.FetchBusy(context.Background(), "p1", window)
	require.NoError(t, err)
	assert.Len(t, busy, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = finder.FetchBusy(ctx, "p1", window)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, []string{"p1=success"}, recorder.fetches)
}
