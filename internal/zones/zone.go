// Package zones routes tracked vehicles into polygonal zones and keeps per-zone
// counts, stall state and occupancy statistics.
package zones

import (
	"slices"
	"time"

	"junction-worker-go/internal/geometry"
	"junction-worker-go/internal/models"
)

// Zone is a named polygon with a counting mode and its stall bookkeeping.
// Zones are created at setup and mutated only by the Manager's owner goroutine.
type Zone struct {
	id          int
	name        string
	polygon     geometry.Polygon
	mode        models.ZoneMode
	signalLinks []string
	cfg         Config

	cumulativeCount int
	occupancy       int
	members         map[int]struct{}
	previous        map[int]struct{}

	stalled          bool
	stalledSince     time.Time
	movementDetected bool
	lastChangeTime   time.Time

	stats *Statistics
}

func newZone(id int, name string, polygon geometry.Polygon, mode models.ZoneMode, links []string, cfg Config, now time.Time) *Zone {
	return &Zone{
		id:             id,
		name:           name,
		polygon:        slices.Clone(polygon),
		mode:           mode,
		signalLinks:    slices.Clone(links),
		cfg:            cfg,
		members:        make(map[int]struct{}),
		previous:       make(map[int]struct{}),
		lastChangeTime: now,
		stats:          NewStatistics(cfg.StatsWindow),
	}
}

func (z *Zone) ID() int                   { return z.id }
func (z *Zone) Name() string              { return z.name }
func (z *Zone) Mode() models.ZoneMode     { return z.mode }
func (z *Zone) Polygon() geometry.Polygon { return slices.Clone(z.polygon) }
func (z *Zone) SignalLinks() []string     { return slices.Clone(z.signalLinks) }
func (z *Zone) CumulativeCount() int      { return z.cumulativeCount }
func (z *Zone) Occupancy() int            { return z.occupancy }
func (z *Zone) MemberCount() int          { return len(z.members) }
func (z *Zone) Stalled() bool             { return z.stalled }
func (z *Zone) MovementDetected() bool    { return z.movementDetected }
func (z *Zone) LastChangeTime() time.Time { return z.lastChangeTime }
func (z *Zone) Statistics() *Statistics   { return z.stats }

// Contains reports whether p lies inside the zone polygon, edges included.
func (z *Zone) Contains(p geometry.Point) bool {
	return z.polygon.Contains(p)
}

// StalledSince returns the start of the open stall episode.
func (z *Zone) StalledSince() (time.Time, bool) {
	return z.stalledSince, z.stalled
}

// DisplayCount is the cumulative count for COUNT zones and the occupancy for SUM zones.
func (z *Zone) DisplayCount() int {
	if z.mode == models.ZoneModeCount {
		return z.cumulativeCount
	}
	return z.occupancy
}

// Members returns the current member ids in ascending order.
func (z *Zone) Members() []int {
	ids := make([]int, 0, len(z.members))
	for id := range z.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// HasMember reports whether the object was inside the zone on the last routed frame.
func (z *Zone) HasMember(id int) bool {
	_, ok := z.members[id]
	return ok
}

// LinksSignal reports whether the zone drives the given signal.
func (z *Zone) LinksSignal(id string) bool {
	return slices.Contains(z.signalLinks, id)
}

// Congestion returns the coarse congestion level of the zone.
func (z *Zone) Congestion() models.CongestionLevel {
	if z.stalled {
		return models.CongestionHigh
	}

	medium, high, value := z.cfg.Congestion.SumMedium, z.cfg.Congestion.SumHigh, z.occupancy
	if z.mode == models.ZoneModeCount {
		medium, high, value = z.cfg.Congestion.CountMedium, z.cfg.Congestion.CountHigh, z.cumulativeCount
	}

	switch {
	case value < medium:
		return models.CongestionLow
	case value < high:
		return models.CongestionMedium
	default:
		return models.CongestionHigh
	}
}

func (z *Zone) increment() {
	z.cumulativeCount++
}

// update replaces the membership with the frame's set and runs the stall evaluator.
func (z *Zone) update(members map[int]struct{}, now time.Time) {
	z.previous = z.members
	z.members = members
	if z.mode == models.ZoneModeSum {
		z.occupancy = len(members)
	}

	z.evaluateStall(now)
	z.stats.Observe(len(members), now)
}

// Snapshot returns a read-only copy of the zone; stateOf resolves linked signal states.
func (z *Zone) Snapshot(stateOf func(string) models.SignalState) models.ZoneSnapshot {
	snap := models.ZoneSnapshot{
		ID:               z.id,
		Name:             z.name,
		Mode:             z.mode,
		DisplayCount:     z.DisplayCount(),
		CumulativeCount:  z.cumulativeCount,
		Occupancy:        len(z.members),
		Members:          z.Members(),
		Stalled:          z.stalled,
		MovementDetected: z.movementDetected,
		LastChangeTime:   z.lastChangeTime,
		Congestion:       z.Congestion(),
		Signals:          make([]models.SignalRef, 0, len(z.signalLinks)),
	}
	if z.stalled {
		since := z.stalledSince
		snap.StalledSince = &since
	}
	for _, id := range z.signalLinks {
		ref := models.SignalRef{ID: id}
		if stateOf != nil {
			ref.State = stateOf(id)
		}
		snap.Signals = append(snap.Signals, ref)
	}
	return snap
}

// StatisticsRecord summarises the zone's rolling statistics at now.
func (z *Zone) StatisticsRecord(sessionID string, now time.Time) models.ZoneStatistics {
	var openSince *time.Time
	if z.stalled {
		since := z.stalledSince
		openSince = &since
	}
	return models.ZoneStatistics{
		SessionID:       sessionID,
		ZoneID:          z.id,
		Name:            z.name,
		Mode:            z.mode,
		DisplayCount:    z.DisplayCount(),
		MaxOccupancy:    z.stats.MaxOccupancy(),
		AvgOccupancy:    z.stats.AverageOccupancy(now),
		Window:          z.stats.Window(),
		StalledSeconds:  z.stats.StalledDuration(now, openSince).Seconds(),
		StallEpisodes:   z.stats.StallEpisodes(),
		HourlyOccupancy: z.stats.HourlyOccupancy(),
		Congestion:      z.Congestion(),
		At:              now,
	}
}
