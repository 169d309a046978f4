// Package metrics exposes pipeline state as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"junction-worker-go/internal/models"
	"junction-worker-go/internal/pipeline"
)

const namespace = "junction"

// Metrics holds the collectors and the latest snapshot the gauges read from.
type Metrics struct {
	registry *prometheus.Registry
	latest   atomic.Pointer[models.Snapshot]

	zoneCount      *prometheus.GaugeVec
	zoneOccupancy  *prometheus.GaugeVec
	zoneStalled    *prometheus.GaugeVec
	zoneAvg        *prometheus.GaugeVec
	zoneCongestion *prometheus.GaugeVec
	signalState    *prometheus.GaugeVec
	transitions    *prometheus.CounterVec
	samples        prometheus.Counter
	emitErrors     *prometheus.CounterVec
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		zoneCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zone_display_count",
			Help:      "Cumulative count (COUNT zones) or occupancy (SUM zones)",
		}, []string{"zone", "mode"}),
		zoneOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zone_occupancy",
			Help:      "Tracked objects currently inside the zone",
		}, []string{"zone"}),
		zoneStalled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zone_stalled",
			Help:      "Zone stalled (0=moving, 1=stalled)",
		}, []string{"zone"}),
		zoneAvg: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zone_avg_occupancy",
			Help:      "Average occupancy over the statistics window",
		}, []string{"zone"}),
		zoneCongestion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zone_congestion",
			Help:      "Congestion level (0=LOW, 1=MEDIUM, 2=HIGH)",
		}, []string{"zone"}),
		signalState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signal_state",
			Help:      "1 for the current state of each signal, 0 otherwise",
		}, []string{"signal", "state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_transitions_total",
			Help:      "Signal state changes by target state and reason",
		}, []string{"signal", "to", "reason"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_samples_total",
			Help:      "Zone samples recorded",
		}),
		emitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed emissions by sink",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		m.zoneCount, m.zoneOccupancy, m.zoneStalled, m.zoneAvg, m.zoneCongestion,
		m.signalState, m.transitions, m.samples, m.emitErrors,
	)
	m.registerSnapshotGauges()
	return m
}

func (m *Metrics) registerSnapshotGauges() {
	read := func(f func(s *models.Snapshot) float64) func() float64 {
		return func() float64 {
			s := m.latest.Load()
			if s == nil {
				return 0
			}
			return f(s)
		}
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: "frames_processed", Help: "Frames processed in this session"},
		read(func(s *models.Snapshot) float64 { return float64(s.FrameCount) }),
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: "frames_per_second", Help: "Recent frame rate"},
		read(func(s *models.Snapshot) float64 { return s.FPS }),
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: "tracked_objects", Help: "Objects currently tracked"},
		read(func(s *models.Snapshot) float64 { return float64(s.TrackedObjects) }),
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: "skipped_detections", Help: "Detections skipped for non-finite coordinates"},
		read(func(s *models.Snapshot) float64 { return float64(s.SkippedDetections) }),
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: "auto_mode", Help: "Auto release enabled (0=off, 1=on)"},
		read(func(s *models.Snapshot) float64 { return boolValue(s.AutoMode) }),
	))
}

// Name implements pipeline.Sink.
func (m *Metrics) Name() string { return "metrics" }

// Emit implements pipeline.Sink.
func (m *Metrics) Emit(_ context.Context, e pipeline.Emission) error {
	for _, ev := range e.Events {
		m.transitions.WithLabelValues(ev.SignalID, string(ev.To), ev.Reason).Inc()
	}
	m.samples.Add(float64(len(e.Samples)))

	for _, st := range e.Statistics {
		m.zoneAvg.WithLabelValues(zoneLabel(st.ZoneID, st.Name)).Set(st.AvgOccupancy)
	}

	if e.Snapshot != nil {
		m.Observe(e.Snapshot)
	}
	return nil
}

// Observe updates the zone and signal gauges from a snapshot.
func (m *Metrics) Observe(s *models.Snapshot) {
	m.latest.Store(s)

	for _, z := range s.Zones {
		label := zoneLabel(z.ID, z.Name)
		m.zoneCount.WithLabelValues(label, string(z.Mode)).Set(float64(z.DisplayCount))
		m.zoneOccupancy.WithLabelValues(label).Set(float64(z.Occupancy))
		m.zoneStalled.WithLabelValues(label).Set(boolValue(z.Stalled))
		m.zoneCongestion.WithLabelValues(label).Set(congestionValue(z.Congestion))
	}

	for _, sig := range s.Signals {
		for _, state := range []models.SignalState{models.SignalRed, models.SignalGreen, models.SignalIdle} {
			m.signalState.WithLabelValues(sig.ID, string(state)).Set(boolValue(sig.State == state))
		}
	}
}

// SinkFailed counts a failed emission of the named sink.
func (m *Metrics) SinkFailed(sink string) {
	m.emitErrors.WithLabelValues(sink).Inc()
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func zoneLabel(id int, name string) string {
	if name == "" {
		return strconv.Itoa(id)
	}
	return strconv.Itoa(id) + ":" + name
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func congestionValue(c models.CongestionLevel) float64 {
	switch c {
	case models.CongestionHigh:
		return 2
	case models.CongestionMedium:
		return 1
	default:
		return 0
	}
}
