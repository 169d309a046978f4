// Package tracking re-identifies vehicles across frames by bounding-box overlap.
package tracking

import (
	"time"

	"junction-worker-go/internal/geometry"
	"junction-worker-go/internal/models"
)

const (
	DefaultIoUThreshold = 0.3
	DefaultTimeout      = 5 * time.Second
)

// Tracker assigns stable integer ids to detections using greedy IoU matching.
// A detection is matched to the tracked object with the strictly highest IoU
// (first seen wins on ties, in ascending id order) when that IoU exceeds the
// threshold; otherwise it gets a fresh id. Ids are never reused.
//
// Tracker is not safe for concurrent use; the pipeline loop owns it.
type Tracker struct {
	iouThreshold float64
	timeout      time.Duration

	nextID  int
	order   []int
	objects map[int]*models.TrackedObject
}

// New creates a tracker. Non-positive values fall back to the defaults.
func New(iouThreshold float64, timeout time.Duration) *Tracker {
	if iouThreshold <= 0 {
		iouThreshold = DefaultIoUThreshold
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		iouThreshold: iouThreshold,
		timeout:      timeout,
		nextID:       1,
		objects:      make(map[int]*models.TrackedObject),
	}
}

// Track matches one detection and returns its id and whether it was minted now.
func (t *Tracker) Track(box geometry.Box, classID int, score float64, now time.Time) (int, bool) {
	bestID := 0
	bestIoU := 0.0
	for _, id := range t.order {
		iou := geometry.IoU(box, t.objects[id].Box)
		if iou > bestIoU {
			bestIoU = iou
			bestID = id
		}
	}

	if bestID != 0 && bestIoU > t.iouThreshold {
		obj := t.objects[bestID]
		obj.Box = box
		obj.ClassID = classID
		obj.Score = score
		obj.LastSeen = now
		return bestID, false
	}

	id := t.nextID
	t.nextID++
	t.objects[id] = &models.TrackedObject{
		ID:        id,
		Box:       box,
		ClassID:   classID,
		Score:     score,
		FirstSeen: now,
		LastSeen:  now,
	}
	t.order = append(t.order, id)
	return id, true
}

// Expire drops every object not matched for longer than the timeout and returns their ids.
func (t *Tracker) Expire(now time.Time) []int {
	var expired []int
	kept := t.order[:0]
	for _, id := range t.order {
		if now.Sub(t.objects[id].LastSeen) > t.timeout {
			expired = append(expired, id)
			delete(t.objects, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	return expired
}

// Get returns a copy of the tracked object with the given id.
func (t *Tracker) Get(id int) (models.TrackedObject, bool) {
	obj, ok := t.objects[id]
	if !ok {
		return models.TrackedObject{}, false
	}
	return *obj, true
}

// Len returns the number of live tracked objects.
func (t *Tracker) Len() int {
	return len(t.objects)
}

// Objects returns copies of the live tracked objects in ascending id order.
func (t *Tracker) Objects() []models.TrackedObject {
	out := make([]models.TrackedObject, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.objects[id])
	}
	return out
}
