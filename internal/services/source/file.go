package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"junction-worker-go/internal/models"
	"junction-worker-go/internal/timeutil"
)

const maxLineSize = 4 * 1024 * 1024

// FileSource replays a JSON-lines file of frames. With a positive speed the
// gaps between recorded timestamps are reproduced, divided by speed.
type FileSource struct {
	Path     string
	CameraID string
	Speed    float64
	Clock    timeutil.Clock
	Logger   zerolog.Logger
}

func (s *FileSource) Run(ctx context.Context, out chan<- models.Frame) error {
	defer close(out)

	clock := s.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	file, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("failed to open replay file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		line, sent, bad int
		prev            time.Time
	)
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		frame, err := Decode(raw)
		if err != nil {
			bad++
			s.Logger.Warn().Err(err).Int("line", line).Msg("Skipping malformed replay line")
			continue
		}
		if !accepts(s.CameraID, frame) {
			continue
		}

		if wait := s.gap(prev, frame.Timestamp); wait > 0 {
			select {
			case <-clock.After(wait):
			case <-ctx.Done():
				return nil
			}
		}
		if !frame.Timestamp.IsZero() {
			prev = frame.Timestamp
		}

		select {
		case out <- frame:
			sent++
		case <-ctx.Done():
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read replay file at line %d: %w", line+1, err)
	}

	s.Logger.Info().
		Str("path", s.Path).
		Int("frames", sent).
		Int("malformed", bad).
		Msg("Replay finished")
	return nil
}

func (s *FileSource) gap(prev, next time.Time) time.Duration {
	if s.Speed <= 0 || prev.IsZero() || next.IsZero() || !next.After(prev) {
		return 0
	}
	return time.Duration(float64(next.Sub(prev)) / s.Speed)
}
