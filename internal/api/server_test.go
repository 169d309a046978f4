package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"junction-worker-go/internal/api/handlers"
	"junction-worker-go/internal/config"
	"junction-worker-go/internal/metrics"
	"junction-worker-go/internal/models"
	"junction-worker-go/internal/signals"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fakeState struct {
	snap *models.Snapshot
}

func (f *fakeState) Snapshot() *models.Snapshot { return f.snap }

type fakeCommander struct {
	autoMode bool
	set      map[string]models.SignalState
	err      error
}

func (f *fakeCommander) ToggleAutoMode(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.autoMode = !f.autoMode
	return f.autoMode, nil
}

func (f *fakeCommander) SetSignalState(_ context.Context, id string, state models.SignalState) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if !signals.IsKnown(id) {
		return false, fmt.Errorf("%w: %s", signals.ErrUnknownSignal, id)
	}
	changed := f.set[id] != state
	f.set[id] = state
	return changed, nil
}

type fakeHistory struct {
	stats   []models.ZoneStatistics
	events  []models.SignalEvent
	samples []models.ZoneSample
	since   time.Time
	err     error
}

func (f *fakeHistory) LatestStatistics(context.Context, string) ([]models.ZoneStatistics, error) {
	return f.stats, f.err
}

func (f *fakeHistory) SignalEvents(_ context.Context, _ string, limit int) ([]models.SignalEvent, error) {
	if limit > 0 && limit < len(f.events) {
		return f.events[:limit], f.err
	}
	return f.events, f.err
}

func (f *fakeHistory) Samples(_ context.Context, _ int, since time.Time) ([]models.ZoneSample, error) {
	f.since = since
	return f.samples, f.err
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		SessionID:  "s1",
		FrameCount: 120,
		AutoMode:   true,
		Zones: []models.ZoneSnapshot{
			{ID: 1, Name: "North", Mode: models.ZoneModeCount, DisplayCount: 9, Congestion: models.CongestionMedium},
			{ID: 2, Name: "West", Mode: models.ZoneModeSum, DisplayCount: 4, Occupancy: 4, Members: []int{1, 2, 3, 4}, Stalled: true,
				Signals: []models.SignalRef{{ID: "West_Straight", State: models.SignalRed}}},
		},
		Signals: []models.SignalSnapshot{
			{ID: "West_Straight", Name: "West Straight", Group: "West", State: models.SignalRed},
		},
		Statistics: []models.ZoneStatistics{{SessionID: "s1", ZoneID: 1, DisplayCount: 9}},
		UpdatedAt:  t0,
	}
}

type testEnv struct {
	server   *Server
	commands *fakeCommander
	history  *fakeHistory
}

func newTestEnv(t *testing.T, history *fakeHistory, ping func() error) *testEnv {
	t.Helper()

	env := &testEnv{
		commands: &fakeCommander{autoMode: true, set: map[string]models.SignalState{}},
		history:  history,
	}
	deps := Deps{
		State:    &fakeState{snap: testSnapshot()},
		Commands: env.commands,
		Ping:     ping,
		Metrics:  metrics.New().Handler(),
		Logger:   zerolog.Nop(),
	}
	if history != nil {
		deps.History = history
	}
	env.server = NewServer(&config.Config{WorkerID: "junction-test", Version: "test", Port: 0}, deps)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndInfo(t *testing.T) {
	env := newTestEnv(t, &fakeHistory{}, func() error { return nil })

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[handlers.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "s1", health.SessionID)
	assert.Equal(t, "ok", health.Storage)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[handlers.WorkerInfoResponse](t, rec)
	assert.Equal(t, "junction-test", info.WorkerID)
	assert.Contains(t, info.Capabilities, "signal_control")

	rec = env.do(t, http.MethodGet, "/api/info", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthDegradedWhenStorageFails(t *testing.T) {
	env := newTestEnv(t, nil, func() error { return errors.New("database is locked") })

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	health := decode[handlers.HealthResponse](t, rec)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "database is locked", health.Storage)
}

func TestZones(t *testing.T) {
	env := newTestEnv(t, &fakeHistory{}, nil)

	rec := env.do(t, http.MethodGet, "/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	zones := decode[handlers.ZonesResponse](t, rec)
	require.Len(t, zones.Zones, 2)
	assert.Equal(t, "s1", zones.SessionID)

	rec = env.do(t, http.MethodGet, "/zones/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	zone := decode[models.ZoneSnapshot](t, rec)
	assert.Equal(t, "West", zone.Name)
	assert.True(t, zone.Stalled)
	assert.Equal(t, []models.SignalRef{{ID: "West_Straight", State: models.SignalRed}}, zone.Signals)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/zones/9", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/zones/west", "").Code)
}

func TestZoneFlow(t *testing.T) {
	history := &fakeHistory{samples: []models.ZoneSample{
		{SessionID: "s1", ZoneID: 1, DisplayCount: 0, At: t0},
		{SessionID: "s1", ZoneID: 1, DisplayCount: 6, At: t0.Add(30 * time.Second)},
	}}
	env := newTestEnv(t, history, nil)

	rec := env.do(t, http.MethodGet, "/zones/1/flow?minutes=10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[models.FlowReport](t, rec)
	assert.Equal(t, 6, report.TotalVehicles)
	assert.Equal(t, "North", report.Name)
	require.Len(t, report.Windows, 1)
	assert.WithinDuration(t, time.Now().Add(-10*time.Minute), history.since, 5*time.Second)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/zones/2/flow", "").Code, "SUM zones have no flow")
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/zones/1/flow?minutes=-1", "").Code)

	history.err = errors.New("disk I/O error")
	assert.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/zones/1/flow", "").Code)
}

func TestZoneFlowWithoutStorage(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/zones/1/flow", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/signals/events", "").Code)
}

func TestSignals(t *testing.T) {
	env := newTestEnv(t, &fakeHistory{}, nil)

	rec := env.do(t, http.MethodGet, "/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sigs := decode[handlers.SignalsResponse](t, rec)
	assert.True(t, sigs.AutoMode)
	require.Len(t, sigs.Signals, 1)

	rec = env.do(t, http.MethodPost, "/signals/auto-mode", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handlers.AutoModeResponse](t, rec).AutoMode)

	rec = env.do(t, http.MethodPost, "/signals/North_Left/state", `{"state":"green"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	set := decode[handlers.SetStateResponse](t, rec)
	assert.Equal(t, models.SignalGreen, set.State)
	assert.True(t, set.Changed)
	assert.Equal(t, models.SignalGreen, env.commands.set["North_Left"])

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/signals/North_Left/state", `{"state":"BLUE"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/signals/North_Left/state", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/signals/Centre_Left/state", `{"state":"RED"}`).Code)

	env.commands.err = context.DeadlineExceeded
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodPost, "/signals/auto-mode", "").Code)
}

func TestSignalEvents(t *testing.T) {
	history := &fakeHistory{events: []models.SignalEvent{
		{SessionID: "s1", SignalID: "West_Straight", To: models.SignalRed, At: t0},
		{SessionID: "s1", SignalID: "West_Straight", To: models.SignalIdle, At: t0.Add(time.Minute)},
	}}
	env := newTestEnv(t, history, nil)

	rec := env.do(t, http.MethodGet, "/signals/events?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.SignalEvent](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/signals/events?limit=x", "").Code)
}

func TestStats(t *testing.T) {
	history := &fakeHistory{}
	env := newTestEnv(t, history, nil)

	rec := env.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[handlers.StatsResponse](t, rec)
	assert.Equal(t, "snapshot", stats.Source, "nothing stored yet")
	assert.Len(t, stats.Statistics, 1)

	history.stats = []models.ZoneStatistics{{ZoneID: 1}, {ZoneID: 2}}
	stats = decode[handlers.StatsResponse](t, env.do(t, http.MethodGet, "/stats", ""))
	assert.Equal(t, "storage", stats.Source)
	assert.Len(t, stats.Statistics, 2)
}

func TestMetricsAndCORS(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "junction_frames_processed")

	rec = env.do(t, http.MethodOptions, "/zones", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
