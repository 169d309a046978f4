package models

import (
	"time"
)

// ZoneMode represents how a zone reports its count
type ZoneMode string

const (
	ZoneModeCount ZoneMode = "COUNT"
	ZoneModeSum   ZoneMode = "SUM"
)

// String returns the string representation of ZoneMode
func (m ZoneMode) String() string {
	return string(m)
}

// IsValid checks if the zone mode is valid
func (m ZoneMode) IsValid() bool {
	switch m {
	case ZoneModeCount, ZoneModeSum:
		return true
	default:
		return false
	}
}

// CongestionLevel is the coarse traffic level of a zone
type CongestionLevel string

const (
	CongestionLow    CongestionLevel = "LOW"
	CongestionMedium CongestionLevel = "MEDIUM"
	CongestionHigh   CongestionLevel = "HIGH"
)

// SignalState represents the state of a traffic signal
type SignalState string

const (
	SignalRed   SignalState = "RED"
	SignalGreen SignalState = "GREEN"
	// SignalIdle is the display alias of the released state
	SignalIdle SignalState = "IDLE"
)

// String returns the string representation of SignalState
func (s SignalState) String() string {
	return string(s)
}

// IsValid checks if the signal state is valid
func (s SignalState) IsValid() bool {
	switch s {
	case SignalRed, SignalGreen, SignalIdle:
		return true
	default:
		return false
	}
}

// IsReleased reports whether the state lets traffic through (GREEN or IDLE)
func (s SignalState) IsReleased() bool {
	return s == SignalGreen || s == SignalIdle
}

// SignalRef is a signal id with its current state
type SignalRef struct {
	ID    string      `json:"id"`
	State SignalState `json:"state"`
}

// ZoneSnapshot is the read-only view of one zone
type ZoneSnapshot struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Mode             ZoneMode        `json:"mode"`
	DisplayCount     int             `json:"display_count"`
	CumulativeCount  int             `json:"cumulative_count"`
	Occupancy        int             `json:"occupancy"`
	Members          []int           `json:"members"`
	Stalled          bool            `json:"stalled"`
	StalledSince     *time.Time      `json:"stalled_since,omitempty"`
	MovementDetected bool            `json:"movement_detected"`
	LastChangeTime   time.Time       `json:"last_change_time"`
	Congestion       CongestionLevel `json:"congestion"`
	Signals          []SignalRef     `json:"signals"`
}

// ZoneStatistics is the periodic statistics record of one zone
type ZoneStatistics struct {
	SessionID       string          `json:"session_id"`
	ZoneID          int             `json:"zone_id"`
	Name            string          `json:"name"`
	Mode            ZoneMode        `json:"mode"`
	DisplayCount    int             `json:"display_count"`
	MaxOccupancy    int             `json:"max_occupancy"`
	AvgOccupancy    float64         `json:"avg_occupancy"`
	Window          time.Duration   `json:"window"`
	StalledSeconds  float64         `json:"stalled_seconds"`
	StallEpisodes   int             `json:"stall_episodes"`
	HourlyOccupancy [24]float64     `json:"hourly_occupancy"`
	Congestion      CongestionLevel `json:"congestion"`
	At              time.Time       `json:"at"`
}

// ZoneSample is the periodic per-zone data record (count and member ids)
type ZoneSample struct {
	SessionID    string    `json:"session_id"`
	ZoneID       int       `json:"zone_id"`
	Name         string    `json:"name"`
	Mode         ZoneMode  `json:"mode"`
	FrameCount   int64     `json:"frame_count"`
	DisplayCount int       `json:"display_count"`
	Members      []int     `json:"members"`
	At           time.Time `json:"at"`
}

// SignalSnapshot is the read-only view of one signal
type SignalSnapshot struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Group           string        `json:"group"`
	State           SignalState   `json:"state"`
	SinceChange     time.Duration `json:"since_change"`
	Dwell           time.Duration `json:"dwell"`
	RecentlyChanged bool          `json:"recently_changed"`
}

// SignalEvent records one signal state transition
type SignalEvent struct {
	SessionID string        `json:"session_id"`
	SignalID  string        `json:"signal_id"`
	From      SignalState   `json:"from"`
	To        SignalState   `json:"to"`
	Reason    string        `json:"reason"`
	ZoneID    int           `json:"zone_id,omitempty"`
	Dwell     time.Duration `json:"dwell"`
	At        time.Time     `json:"at"`
}

// CongestionWarning flags a zone whose traffic is blocked by a stalled neighbour
type CongestionWarning struct {
	StalledZoneID   int      `json:"stalled_zone_id"`
	StalledZoneName string   `json:"stalled_zone_name"`
	AffectedZoneID  int      `json:"affected_zone_id"`
	AffectedZone    string   `json:"affected_zone"`
	SharedSignals   []string `json:"shared_signals"`
	Members         int      `json:"members"`
}

// Snapshot is the immutable state published after every frame and evaluation
type Snapshot struct {
	SessionID          string              `json:"session_id"`
	CameraID           string              `json:"camera_id"`
	FrameCount         int64               `json:"frame_count"`
	FPS                float64             `json:"fps"`
	TrackedObjects     int                 `json:"tracked_objects"`
	SkippedDetections  int64               `json:"skipped_detections"`
	Zones              []ZoneSnapshot      `json:"zones"`
	Signals            []SignalSnapshot    `json:"signals"`
	AutoMode           bool                `json:"auto_mode"`
	CongestionWarnings []CongestionWarning `json:"congestion_warnings"`
	Statistics         []ZoneStatistics    `json:"statistics,omitempty"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Zone returns the zone snapshot with the given id
func (s *Snapshot) Zone(id int) (ZoneSnapshot, bool) {
	for _, z := range s.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return ZoneSnapshot{}, false
}

// FlowWindow is one sliding window of the flow analysis
type FlowWindow struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Vehicles int       `json:"vehicles"`
	PerMin   float64   `json:"vehicles_per_minute"`
	Level    string    `json:"level"`
}

// FlowReport is the traffic flow analysis of one zone
type FlowReport struct {
	ZoneID        int          `json:"zone_id"`
	Name          string       `json:"name"`
	TotalVehicles int          `json:"total_vehicles"`
	Duration      float64      `json:"duration_seconds"`
	AvgFlowRate   float64      `json:"avg_flow_rate"`
	StdFlowRate   float64      `json:"std_flow_rate"`
	PeakWindow    *FlowWindow  `json:"peak_window,omitempty"`
	DominantLevel string       `json:"dominant_level"`
	Windows       []FlowWindow `json:"windows"`
}
