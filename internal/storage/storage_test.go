package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"junction-worker-go/internal/models"
	"junction-worker-go/internal/pipeline"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "junction.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := setupTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// running again is a no-op
	require.NoError(t, s.MigrateUp())
	require.NoError(t, s.Ping())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "junction.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestStatisticsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := models.ZoneStatistics{
		SessionID:    "s1",
		ZoneID:       1,
		Name:         "North",
		Mode:         models.ZoneModeSum,
		DisplayCount: 2,
		MaxOccupancy: 3,
		AvgOccupancy: 1.5,
		Window:       time.Minute,
		Congestion:   models.CongestionLow,
		At:           t0,
	}
	latest := first
	latest.DisplayCount = 6
	latest.StallEpisodes = 1
	latest.StalledSeconds = 12.5
	latest.HourlyOccupancy[8] = 4.25
	latest.Congestion = models.CongestionHigh
	latest.At = t0.Add(5 * time.Second)

	other := first
	other.ZoneID = 2
	other.Name = "South"
	other.Mode = models.ZoneModeCount

	require.NoError(t, s.InsertStatistics(ctx, []models.ZoneStatistics{first, other}))
	require.NoError(t, s.InsertStatistics(ctx, []models.ZoneStatistics{latest}))
	require.NoError(t, s.InsertStatistics(ctx, []models.ZoneStatistics{{SessionID: "s2", ZoneID: 1, Mode: models.ZoneModeSum, Congestion: models.CongestionLow, At: t0}}))

	got, err := s.LatestStatistics(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, latest, got[0])
	assert.Equal(t, other, got[1])

	none, err := s.LatestStatistics(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSignalEventsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	events := []models.SignalEvent{
		{SessionID: "s1", SignalID: "West_Straight", From: models.SignalIdle, To: models.SignalRed, Reason: "stalled", ZoneID: 2, Dwell: 46 * time.Second, At: t0.Add(30 * time.Second)},
		{SessionID: "s1", SignalID: "West_Straight", From: models.SignalRed, To: models.SignalIdle, Reason: "auto_release", Dwell: 46 * time.Second, At: t0.Add(80 * time.Second)},
		{SessionID: "s2", SignalID: "North_Left", From: models.SignalIdle, To: models.SignalGreen, Reason: "manual", At: t0},
	}
	require.NoError(t, s.InsertSignalEvents(ctx, events))

	got, err := s.SignalEvents(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, events[:2], got)

	limited, err := s.SignalEvents(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, events[:1], limited)
}

func TestSamplesSince(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var samples []models.ZoneSample
	for i := 0; i < 4; i++ {
		samples = append(samples, models.ZoneSample{
			SessionID:    "s1",
			ZoneID:       1,
			Name:         "North",
			Mode:         models.ZoneModeCount,
			FrameCount:   int64(30 * (i + 1)),
			DisplayCount: i,
			Members:      []int{i},
			At:           t0.Add(time.Duration(i) * time.Second),
		})
	}
	samples = append(samples, models.ZoneSample{SessionID: "s1", ZoneID: 2, Mode: models.ZoneModeSum, At: t0})
	require.NoError(t, s.InsertSamples(ctx, samples))

	got, err := s.Samples(ctx, 1, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, samples[2:4], got)

	empty, err := s.Samples(ctx, 2, t0)
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Equal(t, []int{}, empty[0].Members)
}

func TestEmitIsSinkAndIgnoresSnapshotOnly(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var sink pipeline.Sink = s
	assert.Equal(t, "sqlite", sink.Name())

	require.NoError(t, sink.Emit(ctx, pipeline.Emission{Snapshot: &models.Snapshot{}}))

	require.NoError(t, sink.Emit(ctx, pipeline.Emission{
		Statistics: []models.ZoneStatistics{{SessionID: "s1", ZoneID: 1, Mode: models.ZoneModeSum, Congestion: models.CongestionLow, At: t0}},
		Events:     []models.SignalEvent{{SessionID: "s1", SignalID: "East_Left", From: models.SignalIdle, To: models.SignalRed, Reason: "occupied", ZoneID: 1, At: t0}},
		Samples:    []models.ZoneSample{{SessionID: "s1", ZoneID: 1, Mode: models.ZoneModeSum, Members: []int{4, 7}, At: t0}},
	}))

	stats, err := s.LatestStatistics(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, stats, 1)

	events, err := s.SignalEvents(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	samples, err := s.Samples(ctx, 1, t0)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, []int{4, 7}, samples[0].Members)
}

func TestEmitHonoursCancelledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Emit(ctx, pipeline.Emission{Samples: []models.ZoneSample{{SessionID: "s1", ZoneID: 1, At: t0}}})
	assert.Error(t, err)
}
