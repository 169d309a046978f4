package zones

import "errors"

var (
	// ErrNoZones is returned when a session is configured without any zone.
	ErrNoZones = errors.New("no zones configured")
	// ErrDegeneratePolygon is returned for polygons with fewer than 3 points.
	ErrDegeneratePolygon = errors.New("zone polygon needs at least 3 points")
	ErrInvalidMode       = errors.New("unknown zone mode")
	ErrUnknownSignal     = errors.New("zone links an unknown signal")
	// ErrInvariantViolation marks a zone whose counters went inconsistent.
	ErrInvariantViolation = errors.New("zone invariant violated")
)
