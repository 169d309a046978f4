package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"junction-worker-go/internal/api"
	"junction-worker-go/internal/config"
	"junction-worker-go/internal/logging"
	"junction-worker-go/internal/metrics"
	"junction-worker-go/internal/models"
	"junction-worker-go/internal/pipeline"
	"junction-worker-go/internal/services/health"
	"junction-worker-go/internal/services/messaging"
	"junction-worker-go/internal/services/source"
	"junction-worker-go/internal/storage"
	"junction-worker-go/internal/timeutil"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config    *config.Config
	SessionID string

	Store     *storage.Store
	Metrics   *metrics.Metrics
	Messaging *messaging.Service // nil unless NATS is enabled
	Pipeline  *pipeline.Pipeline
	Source    source.Source
	Health    *health.Service
	API       *api.Server

	logger zerolog.Logger
}

// NewServiceContainer creates every service of one worker session. On error
// whatever was already opened is closed again.
func NewServiceContainer(cfg *config.Config) (_ *ServiceContainer, err error) {
	sessionID := uuid.NewString()
	sc := &ServiceContainer{
		Config:    cfg,
		SessionID: sessionID,
		logger:    logging.WithSession(logging.NewServiceLogger(cfg, "container"), sessionID),
	}
	defer func() {
		if err != nil {
			sc.Shutdown(context.Background())
		}
	}()

	defs, err := config.LoadZones(cfg.ZonesFile)
	if err != nil {
		return nil, err
	}

	sc.Store, err = storage.Open(cfg.DBPath, logging.NewServiceLogger(cfg, "storage"))
	if err != nil {
		return nil, err
	}

	sc.Metrics = metrics.New()
	sinks := []pipeline.Sink{sc.Store, sc.Metrics}

	if cfg.NatsEnabled {
		sc.Messaging, err = messaging.NewService(cfg, logging.NewServiceLogger(cfg, "messaging"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, messaging.NewSink(sc.Messaging, messaging.Subjects{
			Stats:    cfg.StatsSubject,
			Events:   cfg.EventsSubject,
			Snapshot: cfg.SnapshotSubject,
		}))
	}

	pipelineLogger := logging.WithCamera(logging.WithSession(logging.NewServiceLogger(cfg, "pipeline"), sessionID), cfg.CameraID)
	sc.Pipeline, err = pipeline.New(pipeline.Config{
		CameraID:          cfg.CameraID,
		Classes:           cfg.VehicleClasses,
		IoUThreshold:      cfg.TrackerIoUThreshold,
		TrackerTimeout:    cfg.TrackerTimeout,
		Zones:             defs,
		ZoneCfg:           cfg.ZoneSettings(),
		Signals:           cfg.SignalSettings(),
		StatsInterval:     cfg.StatsInterval,
		SampleEveryFrames: cfg.SampleEveryFrames,
	}, pipeline.Deps{
		Clock:     timeutil.RealClock{},
		Logger:    pipelineLogger,
		SessionID: sessionID,
		Sinks:     sinks,
		OnSinkError: func(sink string, _ error) {
			sc.Metrics.SinkFailed(sink)
		},
	})
	if err != nil {
		return nil, err
	}

	sc.Source, err = newSource(cfg, sc.Messaging)
	if err != nil {
		return nil, err
	}

	sc.Health = health.NewService(logging.NewServiceLogger(cfg, "health"))
	sc.API = api.NewServer(cfg, api.Deps{
		State:    sc.Pipeline,
		Commands: sc.Pipeline,
		History:  sc.Store,
		Ping:     sc.Store.Ping,
		Metrics:  sc.Metrics.Handler(),
		Logger:   logging.NewServiceLogger(cfg, "api"),
	})

	sc.logger.Info().
		Str("source", cfg.Source).
		Bool("nats", cfg.NatsEnabled).
		Int("zones", len(defs)).
		Msg("Services initialized")
	return sc, nil
}

func newSource(cfg *config.Config, msg *messaging.Service) (source.Source, error) {
	switch cfg.Source {
	case "file":
		return &source.FileSource{
			Path:     cfg.ReplayFile,
			CameraID: cfg.CameraID,
			Speed:    cfg.ReplaySpeed,
			Clock:    timeutil.RealClock{},
			Logger:   logging.NewServiceLogger(cfg, "replay"),
		}, nil
	case "nats":
		if msg == nil {
			return nil, errors.New("SOURCE=nats requires NATS_ENABLED=true")
		}
		return &source.NATSSource{
			Sub:      msg,
			Subject:  cfg.DetectionsSubject,
			CameraID: cfg.CameraID,
			Logger:   logging.NewServiceLogger(cfg, "detections"),
		}, nil
	default:
		return nil, fmt.Errorf("unknown frame source %q", cfg.Source)
	}
}

// Run starts the frame source, the pipeline loop and both servers, and blocks
// until ctx is cancelled or one of them fails. A replay that runs out of frames
// leaves the status surface up.
func (sc *ServiceContainer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan models.Frame, sc.Config.FrameBuffer)
	errCh := make(chan error, 4)

	sc.Health.SetServing(true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := sc.Source.Run(ctx, frames); err != nil {
			errCh <- fmt.Errorf("frame source: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		err := sc.Pipeline.Run(ctx, frames)
		sc.Health.SetServing(false)
		if err != nil {
			errCh <- fmt.Errorf("pipeline: %w", err)
			return
		}
		sc.logger.Info().Msg("Pipeline finished")
	}()

	go func() {
		if err := sc.API.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := sc.Health.ListenAndServe(sc.Config.GRPCPort); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		sc.logger.Error().Err(runErr).Msg("Service failed, shutting down")
	}

	cancel()
	wg.Wait()
	return runErr
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.API != nil {
		if err := sc.API.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	if sc.Health != nil {
		sc.Health.Stop()
	}

	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("messaging: %w", err))
		}
	}

	if sc.Store != nil {
		if err := sc.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}
