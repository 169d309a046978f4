package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"junction-worker-go/internal/geometry"
	"junction-worker-go/internal/models"
	"junction-worker-go/internal/signals"
	"junction-worker-go/internal/timeutil"
	"junction-worker-go/internal/zones"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu        sync.Mutex
	emissions []Emission
	err       error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Emit(_ context.Context, e Emission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emissions = append(s.emissions, e)
	return s.err
}

func (s *recordingSink) events() []models.SignalEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SignalEvent
	for _, e := range s.emissions {
		out = append(out, e.Events...)
	}
	return out
}

func (s *recordingSink) samples() []models.ZoneSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ZoneSample
	for _, e := range s.emissions {
		out = append(out, e.Samples...)
	}
	return out
}

func scenarioZones() []zones.Definition {
	return []zones.Definition{
		{Name: "Z", Mode: models.ZoneModeCount, Points: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{Name: "W", Mode: models.ZoneModeSum, Points: [][2]float64{{10, 10}, {30, 10}, {30, 30}, {10, 30}}, SignalLinks: []string{"West_Straight"}},
	}
}

func newTestPipeline(t *testing.T, clock timeutil.Clock, sinks ...Sink) *Pipeline {
	t.Helper()
	p, err := New(Config{
		CameraID:      "cam-1",
		Zones:         scenarioZones(),
		ZoneCfg:       zones.DefaultConfig(),
		Signals:       signals.DefaultConfig(),
		StatsInterval: 5 * time.Second,
	}, Deps{
		Clock:     clock,
		Logger:    zerolog.Nop(),
		SessionID: "test-session",
		Sinks:     sinks,
	})
	require.NoError(t, err)
	return p
}

func car(x1, y1, x2, y2 float64) models.Detection {
	return models.Detection{Box: geometry.NewBox(x1, y1, x2, y2), Score: 0.9, ClassID: models.ClassCar}
}

func wQueue() []models.Detection {
	return []models.Detection{
		car(11, 11, 14, 14),
		car(16, 11, 19, 14),
		car(11, 16, 14, 19),
		car(16, 16, 19, 19),
	}
}

func TestNewRejectsBadZones(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, Deps{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, zones.ErrNoZones)

	_, err = New(Config{Zones: []zones.Definition{{
		Name:        "bad",
		Mode:        models.ZoneModeSum,
		Points:      [][2]float64{{0, 0}, {1, 0}, {1, 1}},
		SignalLinks: []string{"Centre_Straight"},
	}}}, Deps{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, zones.ErrUnknownSignal)
}

func TestEndToEndScenario(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(t0)
	sink := &recordingSink{}
	p := newTestPipeline(t, clock, sink)

	frames := map[int][]models.Detection{
		1: {car(0.1, 0.1, 0.9, 0.9)}, // A enters Z
		2: nil,                       // A leaves
		5: {car(0.55, 0.55, 0.95, 0.95)},
	}

	for s := 1; s <= 30; s++ {
		clock.Set(t0.Add(time.Duration(s) * time.Second))

		dets := frames[s]
		if s >= 3 {
			dets = append(dets, wQueue()...)
		}
		require.NoError(t, p.ProcessFrame(models.Frame{CameraID: "cam-1", FrameID: int64(s), Detections: dets}))

		if s%5 == 0 {
			require.NoError(t, p.Evaluate())
			p.Flush(context.Background())
		}

		snap := p.Snapshot()
		w, _ := snap.Zone(2)
		switch s {
		case 13:
			assert.False(t, w.Stalled, "no movement for exactly the stall window")
		case 14:
			assert.True(t, w.Stalled)
		case 25:
			assert.Equal(t, models.SignalIdle, w.Signals[0].State, "global debounce since start still holds")
		}
	}

	snap := p.Snapshot()
	z, ok := snap.Zone(1)
	require.True(t, ok)
	assert.Equal(t, 2, z.DisplayCount)

	w, ok := snap.Zone(2)
	require.True(t, ok)
	assert.Equal(t, 4, w.DisplayCount)
	assert.True(t, w.Stalled)
	assert.Equal(t, models.CongestionHigh, w.Congestion)
	assert.Equal(t, []models.SignalRef{{ID: "West_Straight", State: models.SignalRed}}, w.Signals)

	events := sink.events()
	require.Len(t, events, 1)
	assert.Equal(t, "West_Straight", events[0].SignalID)
	assert.Equal(t, signals.ReasonStalled, events[0].Reason)
	assert.Equal(t, 2, events[0].ZoneID)
	assert.Equal(t, "test-session", events[0].SessionID)
	assert.Equal(t, t0.Add(30*time.Second), events[0].At)
	assert.Equal(t, signals.DwellFor(8), events[0].Dwell)

	samples := sink.samples()
	require.Len(t, samples, 2, "one sample per zone every 30 frames")
	assert.Equal(t, int64(30), samples[0].FrameCount)

	require.Len(t, snap.Statistics, 2)
	assert.Equal(t, 4, snap.Statistics[1].MaxOccupancy)
	assert.Equal(t, 1, snap.Statistics[1].StallEpisodes)
}

func TestProcessFrameFiltersDetections(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(t0)
	p := newTestPipeline(t, clock)

	require.NoError(t, p.ProcessFrame(models.Frame{Detections: []models.Detection{
		car(11, 11, 14, 14),
		{Box: geometry.Box{X1: math.NaN(), Y1: 0, X2: 1, Y2: 1}, ClassID: models.ClassCar},
		{Box: geometry.NewBox(16, 16, 19, 19), ClassID: models.ClassPerson},
	}}))

	snap := p.Snapshot()
	assert.Equal(t, 1, snap.TrackedObjects)
	assert.Equal(t, int64(1), snap.SkippedDetections)
	assert.Equal(t, int64(1), snap.FrameCount)
	w, _ := snap.Zone(2)
	assert.Equal(t, 1, w.DisplayCount)
}

func TestProcessFrameCountsDecodeSkips(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, timeutil.NewMockClock(t0))
	require.NoError(t, p.ProcessFrame(models.Frame{Detections: wQueue(), Skipped: 2}))

	snap := p.Snapshot()
	assert.Equal(t, int64(2), snap.SkippedDetections)
	w, _ := snap.Zone(2)
	assert.Equal(t, 4, w.DisplayCount, "the rest of the frame is processed")
}

func TestLoopTimeFollowsFrameTimestamps(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(t0)
	p := newTestPipeline(t, clock)
	recorded := time.Date(2025, 6, 1, 17, 30, 0, 0, time.UTC)

	assert.Equal(t, t0, p.advance(recorded))
	assert.Equal(t, t0.Add(3*time.Second), p.advance(recorded.Add(3*time.Second)))
	assert.Equal(t, t0.Add(3*time.Second), p.advance(recorded.Add(time.Second)), "never runs backwards")

	clock.Advance(2 * time.Second)
	assert.Equal(t, t0.Add(5*time.Second), p.advance(time.Time{}), "unstamped steps follow the clock")
}

func TestRunReplaysRecordedTimeWithPausedClock(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(t0)
	sink := &recordingSink{}
	p := newTestPipeline(t, clock, sink)

	recorded := time.Date(2025, 6, 1, 17, 30, 0, 0, time.UTC)
	frames := make(chan models.Frame, 21)
	for i := 0; i <= 20; i++ {
		frames <- models.Frame{
			FrameID:    int64(i + 1),
			Timestamp:  recorded.Add(time.Duration(i) * time.Second),
			Detections: wQueue(),
		}
	}
	close(frames)

	require.NoError(t, p.Run(context.Background(), frames))

	snap := p.Snapshot()
	assert.Equal(t, int64(21), snap.FrameCount)
	assert.Equal(t, t0.Add(20*time.Second), snap.UpdatedAt)

	w, ok := snap.Zone(2)
	require.True(t, ok)
	assert.True(t, w.Stalled, "four parked vehicles for 20s of recorded time")
	assert.Equal(t, 4, w.DisplayCount)

	events := sink.events()
	require.NotEmpty(t, events, "evaluations run on recorded time")
	assert.Equal(t, "West_Straight", events[0].SignalID)
	assert.Equal(t, signals.ReasonOccupied, events[0].Reason)
	assert.Equal(t, t0.Add(10*time.Second), events[0].At)
}

func TestExpiredObjectsArePurged(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(t0)
	p := newTestPipeline(t, clock)

	require.NoError(t, p.ProcessFrame(models.Frame{Detections: []models.Detection{car(0.1, 0.1, 0.9, 0.9)}}))
	assert.Equal(t, 1, p.zones.EntryHistoryLen())

	clock.Advance(6 * time.Second)
	require.NoError(t, p.ProcessFrame(models.Frame{}))
	assert.Zero(t, p.Snapshot().TrackedObjects)
	assert.Zero(t, p.zones.EntryHistoryLen())

	// the same place now yields a fresh object that is counted again
	require.NoError(t, p.ProcessFrame(models.Frame{Detections: []models.Detection{car(0.1, 0.1, 0.9, 0.9)}}))
	z, _ := p.Snapshot().Zone(1)
	assert.Equal(t, 2, z.DisplayCount)
}

func TestSinkFailureDoesNotStopFlush(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(t0)
	failing := &recordingSink{err: errors.New("disk full")}
	ok := &recordingSink{}
	p := newTestPipeline(t, clock, failing, ok)
	var failed []string
	p.onSinkErr = func(sink string, _ error) { failed = append(failed, sink) }

	require.NoError(t, p.Evaluate())
	p.Flush(context.Background())

	assert.Len(t, failing.emissions, 1)
	assert.Len(t, ok.emissions, 1)
	assert.Equal(t, []string{"recording"}, failed)

	p.Flush(context.Background())
	assert.Len(t, ok.emissions, 1, "nothing pending, nothing emitted")
}

func TestSnapshotIsImmutableCopy(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(t0)
	p := newTestPipeline(t, clock)

	require.NoError(t, p.ProcessFrame(models.Frame{Detections: wQueue()}))
	before := p.Snapshot()

	clock.Advance(time.Second)
	require.NoError(t, p.ProcessFrame(models.Frame{}))
	after := p.Snapshot()

	w, _ := before.Zone(2)
	assert.Equal(t, []int{1, 2, 3, 4}, w.Members, "published snapshots never change")
	assert.NotEmpty(t, cmp.Diff(before.Zones, after.Zones))
}

func TestRunProcessesFramesAndCommands(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(t0)
	p := newTestPipeline(t, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frames := make(chan models.Frame)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, frames) }()

	frames <- models.Frame{FrameID: 1, Detections: wQueue()}

	autoMode, err := p.ToggleAutoMode(ctx)
	require.NoError(t, err)
	assert.False(t, autoMode)

	changed, err := p.SetSignalState(ctx, "North_Left", models.SignalRed)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = p.SetSignalState(ctx, "Nowhere_Left", models.SignalRed)
	assert.ErrorIs(t, err, signals.ErrUnknownSignal)

	snap := p.Snapshot()
	assert.False(t, snap.AutoMode)
	assert.Equal(t, int64(1), snap.FrameCount)

	close(frames)
	require.NoError(t, <-done)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, timeutil.NewMockClock(t0))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, make(chan models.Frame)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}

func TestFPSCounter(t *testing.T) {
	t.Parallel()

	f := newFPSCounter(3)
	assert.Zero(t, f.Rate())

	for i := 0; i < 5; i++ {
		f.Tick(t0.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	assert.InDelta(t, 10.0, f.Rate(), 1e-9)
}
