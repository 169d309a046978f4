package source

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"junction-worker-go/internal/models"
)

// Subscriber is the subset of the messaging service the live source needs.
type Subscriber interface {
	Subscribe(subject string, handler func([]byte)) (*nats.Subscription, error)
}

// NATSSource receives frames published by the detector. Frames arriving while
// the output buffer is full are dropped and counted.
type NATSSource struct {
	Sub      Subscriber
	Subject  string
	CameraID string
	Logger   zerolog.Logger

	received atomic.Int64
	dropped  atomic.Int64
	invalid  atomic.Int64
}

func (s *NATSSource) Run(ctx context.Context, out chan<- models.Frame) error {
	// guards out against a handler still running after Unsubscribe
	var (
		mu     sync.RWMutex
		closed bool
	)

	sub, err := s.Sub.Subscribe(s.Subject, func(data []byte) {
		frame, err := Decode(data)
		if err != nil {
			s.invalid.Add(1)
			s.Logger.Warn().Err(err).Msg("Dropping malformed detection message")
			return
		}
		if !accepts(s.CameraID, frame) {
			return
		}

		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		s.received.Add(1)
		select {
		case out <- frame:
		default:
			if n := s.dropped.Add(1); n%100 == 1 {
				s.Logger.Warn().Int64("dropped", n).Msg("Pipeline busy, dropping frames")
			}
		}
	})
	if err != nil {
		close(out)
		return err
	}

	s.Logger.Info().Str("subject", s.Subject).Msg("Subscribed to detections")

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		s.Logger.Debug().Err(err).Msg("Failed to unsubscribe from detections")
	}

	mu.Lock()
	closed = true
	close(out)
	mu.Unlock()

	s.Logger.Info().
		Int64("received", s.received.Load()).
		Int64("dropped", s.dropped.Load()).
		Int64("invalid", s.invalid.Load()).
		Msg("Detection subscription closed")
	return nil
}

// Stats returns the received, dropped and invalid message counts.
func (s *NATSSource) Stats() (received, dropped, invalid int64) {
	return s.received.Load(), s.dropped.Load(), s.invalid.Load()
}
