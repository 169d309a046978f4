// Package source feeds detector frames into the pipeline, live from NATS or
// replayed from a JSON-lines file.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"junction-worker-go/internal/models"
)

// Source produces frames on out until ctx is cancelled or the input ends.
// Run closes out before returning.
type Source interface {
	Run(ctx context.Context, out chan<- models.Frame) error
}

// wireFrame defers detection decoding so one bad box does not drop the frame.
type wireFrame struct {
	CameraID   string            `json:"camera_id"`
	FrameID    int64             `json:"frame_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Detections []json.RawMessage `json:"detections"`
}

// Decode parses one JSON frame. Detections that do not decode (a box without
// four coordinates, a number out of float64 range) are dropped and counted in
// Frame.Skipped; the rest of the frame is kept.
func Decode(data []byte) (models.Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}

	f := models.Frame{
		CameraID:   w.CameraID,
		FrameID:    w.FrameID,
		Timestamp:  w.Timestamp,
		Detections: make([]models.Detection, 0, len(w.Detections)),
	}
	for _, raw := range w.Detections {
		var det models.Detection
		if err := json.Unmarshal(raw, &det); err != nil {
			f.Skipped++
			continue
		}
		f.Detections = append(f.Detections, det)
	}
	return f, nil
}

// accepts reports whether a frame belongs to cameraID. Frames without a
// camera id and sources without a filter accept everything.
func accepts(cameraID string, f models.Frame) bool {
	return cameraID == "" || f.CameraID == "" || f.CameraID == cameraID
}
