// Package pipeline runs the per-frame loop: tracker, zone manager and signal
// controller, owned by a single goroutine that publishes immutable snapshots.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"junction-worker-go/internal/models"
	"junction-worker-go/internal/signals"
	"junction-worker-go/internal/timeutil"
	"junction-worker-go/internal/tracking"
	"junction-worker-go/internal/zones"
)

// Config holds everything the pipeline needs to build its core state.
type Config struct {
	CameraID string
	// Classes is the detector class allow-list; empty means the default vehicle classes.
	Classes        []int
	IoUThreshold   float64
	TrackerTimeout time.Duration

	Zones   []zones.Definition
	ZoneCfg zones.Config
	Signals signals.Config

	// StatsInterval is the cadence of controller evaluation and statistics emission.
	StatsInterval     time.Duration
	SampleEveryFrames int
	FPSWindow         int
	CommandBuffer     int
}

// Deps are the collaborators injected into the pipeline.
type Deps struct {
	Clock     timeutil.Clock
	Logger    zerolog.Logger
	SessionID string
	Sinks     []Sink
	// OnSinkError, if set, is called after a sink fails to emit.
	OnSinkError func(sink string, err error)
}

// Pipeline owns the tracker, the zones and the controller. Only the goroutine
// running Run (or a test calling ProcessFrame/Evaluate directly) touches them.
type Pipeline struct {
	cfg       Config
	clock     timeutil.Clock
	logger    zerolog.Logger
	sessionID string
	sinks     []Sink
	onSinkErr func(sink string, err error)

	allow      models.ClassAllowList
	tracker    *tracking.Tracker
	zones      *zones.Manager
	controller *signals.Controller

	frameCount int64
	skipped    int64
	ignored    int64
	fps        *fpsCounter
	statistics []models.ZoneStatistics
	pending    Emission

	// loop time, see advance
	loopTime time.Time
	loopWall time.Time
	offset   time.Duration
	anchored bool
	lastEval time.Time

	snapshot atomic.Pointer[models.Snapshot]
	commands chan command
}

// New validates the configuration and builds the pipeline. Zone definition
// problems are returned here, before any frame is processed.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Clock == nil {
		deps.Clock = timeutil.RealClock{}
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 5 * time.Second
	}
	if cfg.SampleEveryFrames <= 0 {
		cfg.SampleEveryFrames = 30
	}
	if cfg.FPSWindow <= 1 {
		cfg.FPSWindow = 30
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = 8
	}
	classes := cfg.Classes
	if len(classes) == 0 {
		classes = models.DefaultVehicleClasses
	}

	now := deps.Clock.Now()

	manager, err := zones.NewManager(cfg.Zones, signals.IsKnown, cfg.ZoneCfg, now)
	if err != nil {
		return nil, fmt.Errorf("failed to set up zones: %w", err)
	}

	p := &Pipeline{
		cfg:        cfg,
		clock:      deps.Clock,
		logger:     deps.Logger,
		sessionID:  deps.SessionID,
		sinks:      deps.Sinks,
		onSinkErr:  deps.OnSinkError,
		allow:      models.NewClassAllowList(classes),
		tracker:    tracking.New(cfg.IoUThreshold, cfg.TrackerTimeout),
		zones:      manager,
		controller: signals.NewController(cfg.Signals, deps.Logger.With().Str("component", "signals").Logger(), now),
		fps:        newFPSCounter(cfg.FPSWindow),
		commands:   make(chan command, cfg.CommandBuffer),
		loopTime:   now,
		loopWall:   now,
		lastEval:   now,
	}
	p.publish(now)

	p.logger.Info().
		Int("zones", manager.Len()).
		Ints("classes", classes).
		Dur("stats_interval", cfg.StatsInterval).
		Msg("Pipeline initialized")

	return p, nil
}

// SessionID returns the id stamped on every record of this run.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// Snapshot returns the latest published state. It is safe for concurrent use.
func (p *Pipeline) Snapshot() *models.Snapshot {
	return p.snapshot.Load()
}

// Run consumes frames until ctx is cancelled or frames is closed. Controller
// evaluation and statistics run every StatsInterval of loop time, driven by
// frames, and on the clock's ticker while no frames arrive. Commands run
// between frames. An invariant violation stops the loop and is returned.
func (p *Pipeline) Run(ctx context.Context, frames <-chan models.Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("Pipeline loop panic recovered")
			err = fmt.Errorf("pipeline loop panic: %v", r)
		}
	}()

	ticker := p.clock.NewTicker(p.cfg.StatsInterval)
	defer ticker.Stop()

	p.logger.Info().Str("session_id", p.sessionID).Msg("Pipeline loop started")

	for {
		if ctx.Err() != nil {
			p.finish()
			return nil
		}

		select {
		case <-ctx.Done():
			p.finish()
			return nil

		case frame, ok := <-frames:
			if !ok {
				p.logger.Info().Int64("frames", p.frameCount).Msg("Frame source closed")
				p.finish()
				return nil
			}
			if err := p.ProcessFrame(frame); err != nil {
				if errors.Is(err, zones.ErrInvariantViolation) {
					p.logger.Error().Err(err).Int64("frame_id", frame.FrameID).Msg("Zone invariant violated, stopping pipeline")
				}
				return err
			}
			if p.loopTime.Sub(p.lastEval) >= p.cfg.StatsInterval {
				if err := p.Evaluate(); err != nil {
					return err
				}
			}
			p.Flush(ctx)

		case <-ticker.C():
			if p.advance(time.Time{}).Sub(p.lastEval) < p.cfg.StatsInterval/2 {
				continue
			}
			if err := p.Evaluate(); err != nil {
				return err
			}
			p.Flush(ctx)

		case cmd := <-p.commands:
			p.execute(cmd)
		}
	}
}

// finish runs a last evaluation and flushes it with a bounded context.
func (p *Pipeline) finish() {
	if err := p.Evaluate(); err != nil {
		p.logger.Error().Err(err).Msg("Final evaluation failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Flush(ctx)
	p.logger.Info().Int64("frames", p.frameCount).Msg("Pipeline loop stopped")
}

func (p *Pipeline) zoneViews() []signals.Zone {
	all := p.zones.Zones()
	views := make([]signals.Zone, 0, len(all))
	for _, z := range all {
		views = append(views, z)
	}
	return views
}

// publish builds and stores a fresh snapshot.
func (p *Pipeline) publish(now time.Time) {
	snap := &models.Snapshot{
		SessionID:          p.sessionID,
		CameraID:           p.cfg.CameraID,
		FrameCount:         p.frameCount,
		FPS:                p.fps.Rate(),
		TrackedObjects:     p.tracker.Len(),
		SkippedDetections:  p.skipped,
		Zones:              p.zones.Snapshots(p.controller.State),
		Signals:            p.controller.Snapshot(now),
		AutoMode:           p.controller.AutoMode(),
		CongestionWarnings: p.zones.CongestionWarnings(),
		Statistics:         p.statistics,
		UpdatedAt:          now,
	}
	p.snapshot.Store(snap)
}
