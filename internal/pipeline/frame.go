package pipeline

import (
	"time"

	"junction-worker-go/internal/models"
)

// ProcessFrame runs one frame through the tracker and the zone manager and
// publishes a new snapshot. Detections of other classes are ignored and boxes
// with non-finite coordinates are skipped; neither fails the frame.
func (p *Pipeline) ProcessFrame(frame models.Frame) error {
	now := p.advance(frame.Timestamp)

	if frame.Skipped > 0 {
		p.skipped += int64(frame.Skipped)
		p.logger.Debug().
			Int64("frame_id", frame.FrameID).
			Int("detections", frame.Skipped).
			Msg("Skipping detections that failed to decode")
	}

	objects := make([]models.TrackedObject, 0, len(frame.Detections))
	for _, det := range frame.Detections {
		if !p.allow.Allows(det.ClassID) {
			p.ignored++
			continue
		}
		if !det.Box.IsFinite() {
			p.skipped++
			p.logger.Debug().
				Int64("frame_id", frame.FrameID).
				Int("class_id", det.ClassID).
				Msg("Skipping detection with non-finite coordinates")
			continue
		}

		id, isNew := p.tracker.Track(det.Box, det.ClassID, det.Score, now)
		obj, _ := p.tracker.Get(id)
		objects = append(objects, obj)

		if isNew {
			p.logger.Debug().Int("object_id", id).Int("class_id", det.ClassID).Msg("New object tracked")
		}
	}

	if _, err := p.zones.Route(objects, now); err != nil {
		return err
	}

	if expired := p.tracker.Expire(now); len(expired) > 0 {
		p.zones.Forget(expired)
		p.logger.Debug().Ints("object_ids", expired).Msg("Tracked objects expired")
	}

	p.frameCount++
	p.fps.Tick(now)

	if p.frameCount%int64(p.cfg.SampleEveryFrames) == 0 {
		p.pending.Samples = append(p.pending.Samples, p.zones.Samples(p.sessionID, p.frameCount, now)...)
	}

	p.publish(now)
	return nil
}

// advance moves the loop time to the frame's capture time. The first stamped
// frame fixes the offset between capture time and the clock, so recorded gaps
// are kept whatever the replay speed or consumer lag. Frames without a
// timestamp, and evaluations, advance by the clock time elapsed since the last
// step. Loop time never runs backwards.
func (p *Pipeline) advance(captured time.Time) time.Time {
	wall := p.clock.Now()

	var now time.Time
	if captured.IsZero() {
		now = p.loopTime.Add(wall.Sub(p.loopWall))
	} else {
		if !p.anchored {
			p.offset = wall.Sub(captured)
			p.anchored = true
		}
		now = captured.Add(p.offset)
	}
	if now.Before(p.loopTime) {
		now = p.loopTime
	}

	p.loopTime, p.loopWall = now, wall
	return now
}
