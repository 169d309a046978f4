package models

import (
	"time"

	"junction-worker-go/internal/geometry"
)

// COCO class ids the detector emits for road users
const (
	ClassPerson     = 0
	ClassBicycle    = 1
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

// DefaultVehicleClasses is the allow-list used when none is configured
var DefaultVehicleClasses = []int{ClassCar, ClassMotorcycle, ClassBus, ClassTruck}

// Detection represents a single bounding box from the detector
type Detection struct {
	Box     geometry.Box `json:"box"`
	Score   float64      `json:"score"`
	ClassID int          `json:"class_id"`
}

// Frame is one detector output for one video frame
type Frame struct {
	CameraID   string      `json:"camera_id"`
	FrameID    int64       `json:"frame_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Detections []Detection `json:"detections"`
	// Skipped counts detections dropped while decoding.
	Skipped int `json:"-"`
}

// TrackedObject is a vehicle the tracker currently follows
type TrackedObject struct {
	ID        int          `json:"id"`
	Box       geometry.Box `json:"box"`
	ClassID   int          `json:"class_id"`
	Score     float64      `json:"score"`
	FirstSeen time.Time    `json:"first_seen"`
	LastSeen  time.Time    `json:"last_seen"`
}

// Center returns the center point of the object's latest box
func (o TrackedObject) Center() geometry.Point {
	return o.Box.Center()
}

// ClassAllowList filters detections by class id
type ClassAllowList map[int]struct{}

// NewClassAllowList builds an allow-list from class ids
func NewClassAllowList(ids []int) ClassAllowList {
	allow := make(ClassAllowList, len(ids))
	for _, id := range ids {
		allow[id] = struct{}{}
	}
	return allow
}

// Allows reports whether classID is accepted
func (a ClassAllowList) Allows(classID int) bool {
	_, ok := a[classID]
	return ok
}
