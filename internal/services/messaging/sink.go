package messaging

import (
	"context"
	"errors"
	"fmt"

	"junction-worker-go/internal/pipeline"
)

// Publisher is the subset of Service the sink needs.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// Subjects are the NATS subjects records are published on.
type Subjects struct {
	Stats    string
	Events   string
	Snapshot string
}

// Sink publishes pipeline records: one message per statistics record and per
// signal event, and the snapshot after every evaluation.
type Sink struct {
	pub      Publisher
	subjects Subjects
}

func NewSink(pub Publisher, subjects Subjects) *Sink {
	return &Sink{pub: pub, subjects: subjects}
}

func (s *Sink) Name() string { return "nats" }

// Emit publishes every record, collecting failures rather than stopping at the
// first one.
func (s *Sink) Emit(ctx context.Context, e pipeline.Emission) error {
	var errs []error

	for _, st := range e.Statistics {
		if err := s.pub.Publish(s.subjects.Stats, st); err != nil {
			errs = append(errs, fmt.Errorf("statistics of zone %d: %w", st.ZoneID, err))
		}
	}
	for _, ev := range e.Events {
		if err := s.pub.Publish(s.subjects.Events, ev); err != nil {
			errs = append(errs, fmt.Errorf("event of signal %s: %w", ev.SignalID, err))
		}
	}
	if e.Snapshot != nil && s.subjects.Snapshot != "" {
		if err := s.pub.Publish(s.subjects.Snapshot, e.Snapshot); err != nil {
			errs = append(errs, fmt.Errorf("snapshot: %w", err))
		}
	}

	if ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
