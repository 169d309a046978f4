package zones

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"junction-worker-go/internal/geometry"
	"junction-worker-go/internal/models"
)

// Definition describes one zone as loaded from the zones file.
type Definition struct {
	Name        string          `json:"name"`
	Mode        models.ZoneMode `json:"mode"`
	Points      [][2]float64    `json:"points"`
	SignalLinks []string        `json:"signal_links"`
}

// Polygon converts the definition points into a polygon.
func (d Definition) Polygon() geometry.Polygon {
	poly := make(geometry.Polygon, 0, len(d.Points))
	for _, p := range d.Points {
		poly = append(poly, geometry.Point{X: p[0], Y: p[1]})
	}
	return poly
}

// Manager owns the zones of a session, routes tracked objects into them and
// remembers when each object last entered each zone.
type Manager struct {
	cfg     Config
	zones   []*Zone
	entries map[int]map[int]time.Time // object id -> zone id -> last entry
}

// NewManager validates the definitions and creates the zones with ids from 1.
// isKnownSignal rejects signal links the controller does not have.
func NewManager(defs []Definition, isKnownSignal func(string) bool, cfg Config, now time.Time) (*Manager, error) {
	if len(defs) == 0 {
		return nil, ErrNoZones
	}
	cfg = cfg.withDefaults()

	m := &Manager{
		cfg:     cfg,
		entries: make(map[int]map[int]time.Time),
	}

	for i, def := range defs {
		id := i + 1
		name := strings.TrimSpace(def.Name)
		if name == "" {
			name = fmt.Sprintf("Zone %d", id)
		}

		mode := models.ZoneMode(strings.ToUpper(string(def.Mode)))
		if !mode.IsValid() {
			return nil, fmt.Errorf("zone %q: %w: %q", name, ErrInvalidMode, def.Mode)
		}

		poly := def.Polygon()
		if len(poly) < 3 {
			return nil, fmt.Errorf("zone %q has %d points: %w", name, len(poly), ErrDegeneratePolygon)
		}
		for _, p := range poly {
			if !geometry.NewBox(p.X, p.Y, p.X, p.Y).IsFinite() {
				return nil, fmt.Errorf("zone %q has a non-finite point: %w", name, ErrDegeneratePolygon)
			}
		}

		links := make([]string, 0, len(def.SignalLinks))
		for _, link := range def.SignalLinks {
			if isKnownSignal != nil && !isKnownSignal(link) {
				return nil, fmt.Errorf("zone %q: %w: %q", name, ErrUnknownSignal, link)
			}
			if !slices.Contains(links, link) {
				links = append(links, link)
			}
		}

		m.zones = append(m.zones, newZone(id, name, poly, mode, links, cfg, now))
	}

	return m, nil
}

// Zones returns the zones in id order.
func (m *Manager) Zones() []*Zone {
	return slices.Clone(m.zones)
}

// Zone returns the zone with the given id.
func (m *Manager) Zone(id int) (*Zone, bool) {
	if id < 1 || id > len(m.zones) {
		return nil, false
	}
	return m.zones[id-1], true
}

// Len returns the number of zones.
func (m *Manager) Len() int {
	return len(m.zones)
}

// Route assigns the frame's tracked objects to zones by center-point containment,
// counts COUNT-zone entries, refreshes SUM occupancy and runs the stall evaluator.
// It returns the membership of every zone.
func (m *Manager) Route(objects []models.TrackedObject, now time.Time) (map[int]map[int]struct{}, error) {
	membership := make(map[int]map[int]struct{}, len(m.zones))
	countsBefore := make([]int, len(m.zones))
	for i, z := range m.zones {
		membership[z.id] = make(map[int]struct{})
		countsBefore[i] = z.cumulativeCount
	}

	for _, obj := range objects {
		center := obj.Center()
		for _, z := range m.zones {
			if !z.Contains(center) {
				continue
			}
			if _, dup := membership[z.id][obj.ID]; dup {
				continue
			}
			membership[z.id][obj.ID] = struct{}{}

			if z.mode == models.ZoneModeCount && !z.HasMember(obj.ID) {
				if m.recordEntry(obj.ID, z.id, now) {
					z.increment()
				}
			}
		}
	}

	for i, z := range m.zones {
		z.update(membership[z.id], now)
		if err := z.checkInvariants(countsBefore[i]); err != nil {
			return membership, err
		}
	}

	return membership, nil
}

// recordEntry stamps an entry and reports whether it should be counted: first
// entries always count, re-entries only once the cooldown has passed.
func (m *Manager) recordEntry(objectID, zoneID int, now time.Time) bool {
	history, ok := m.entries[objectID]
	if !ok {
		history = make(map[int]time.Time)
		m.entries[objectID] = history
	}

	last, seen := history[zoneID]
	history[zoneID] = now
	return !seen || now.Sub(last) > m.cfg.CountCooldown
}

// Forget drops the entry history of expired objects.
func (m *Manager) Forget(objectIDs []int) {
	for _, id := range objectIDs {
		delete(m.entries, id)
	}
}

// EntryHistoryLen returns how many objects still have entry history.
func (m *Manager) EntryHistoryLen() int {
	return len(m.entries)
}

// CongestionWarnings lists zones that share a signal with a stalled SUM zone
// holding more than WarnMembers vehicles.
func (m *Manager) CongestionWarnings() []models.CongestionWarning {
	var warnings []models.CongestionWarning
	for _, z := range m.zones {
		if z.mode != models.ZoneModeSum || !z.stalled || len(z.members) <= m.cfg.WarnMembers {
			continue
		}
		for _, other := range m.zones {
			if other.id == z.id {
				continue
			}
			var shared []string
			for _, link := range z.signalLinks {
				if other.LinksSignal(link) {
					shared = append(shared, link)
				}
			}
			if len(shared) == 0 {
				continue
			}
			warnings = append(warnings, models.CongestionWarning{
				StalledZoneID:   z.id,
				StalledZoneName: z.name,
				AffectedZoneID:  other.id,
				AffectedZone:    other.name,
				SharedSignals:   shared,
				Members:         len(z.members),
			})
		}
	}
	return warnings
}

// Snapshots returns read-only copies of all zones.
func (m *Manager) Snapshots(stateOf func(string) models.SignalState) []models.ZoneSnapshot {
	out := make([]models.ZoneSnapshot, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, z.Snapshot(stateOf))
	}
	return out
}

// Statistics returns the statistics record of every zone.
func (m *Manager) Statistics(sessionID string, now time.Time) []models.ZoneStatistics {
	out := make([]models.ZoneStatistics, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, z.StatisticsRecord(sessionID, now))
	}
	return out
}

// Samples returns the periodic data record of every zone.
func (m *Manager) Samples(sessionID string, frameCount int64, now time.Time) []models.ZoneSample {
	out := make([]models.ZoneSample, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, models.ZoneSample{
			SessionID:    sessionID,
			ZoneID:       z.id,
			Name:         z.name,
			Mode:         z.mode,
			FrameCount:   frameCount,
			DisplayCount: z.DisplayCount(),
			Members:      z.Members(),
			At:           now,
		})
	}
	return out
}

func (z *Zone) checkInvariants(countBefore int) error {
	if z.cumulativeCount < countBefore {
		return fmt.Errorf("zone %d (%s): cumulative count went from %d to %d: %w",
			z.id, z.name, countBefore, z.cumulativeCount, ErrInvariantViolation)
	}
	if z.mode == models.ZoneModeSum && (z.occupancy < 0 || z.occupancy != len(z.members)) {
		return fmt.Errorf("zone %d (%s): occupancy %d with %d members: %w",
			z.id, z.name, z.occupancy, len(z.members), ErrInvariantViolation)
	}
	return nil
}
