package pipeline

import (
	"context"

	"junction-worker-go/internal/models"
)

// Emission is what the loop hands to its sinks after a frame or an evaluation.
type Emission struct {
	Statistics []models.ZoneStatistics
	Events     []models.SignalEvent
	Samples    []models.ZoneSample
	// Snapshot is set after an evaluation tick.
	Snapshot *models.Snapshot
}

// Empty reports whether there is nothing to emit.
func (e Emission) Empty() bool {
	return len(e.Statistics) == 0 && len(e.Events) == 0 && len(e.Samples) == 0 && e.Snapshot == nil
}

// Sink receives emissions: storage, messaging, metrics.
type Sink interface {
	Name() string
	Emit(ctx context.Context, e Emission) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, e Emission) error
}

func (s SinkFunc) Name() string { return s.SinkName }

func (s SinkFunc) Emit(ctx context.Context, e Emission) error { return s.Fn(ctx, e) }

// Flush hands pending records to every sink. Sink failures are logged and never
// stop the loop.
func (p *Pipeline) Flush(ctx context.Context) {
	e := p.pending
	p.pending = Emission{}
	if e.Empty() {
		return
	}

	for _, sink := range p.sinks {
		if err := sink.Emit(ctx, e); err != nil {
			p.logger.Error().
				Err(err).
				Str("sink", sink.Name()).
				Int("statistics", len(e.Statistics)).
				Int("events", len(e.Events)).
				Int("samples", len(e.Samples)).
				Msg("Failed to emit pipeline records")
			if p.onSinkErr != nil {
				p.onSinkErr(sink.Name(), err)
			}
		}
	}
}
