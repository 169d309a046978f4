// Package signals drives the twelve approach signals of a junction from zone
// occupancy and stall state.
package signals

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"junction-worker-go/internal/models"
)

var ErrUnknownSignal = errors.New("unknown signal")

// Transition reasons reported on signal events
const (
	ReasonStalled     = "stalled"
	ReasonOccupied    = "occupied"
	ReasonEmpty       = "empty"
	ReasonAutoRelease = "auto_release"
	ReasonManual      = "manual"
)

// Zone is the read-only view of a zone the rule set needs.
type Zone interface {
	ID() int
	Name() string
	Stalled() bool
	MemberCount() int
	LastChangeTime() time.Time
	SignalLinks() []string
}

// Config holds the controller timings.
type Config struct {
	// InitialDwell is the dwell of every signal at start.
	InitialDwell time.Duration
	// StallDebounce is the global quiet time required before the stall rule acts again.
	StallDebounce time.Duration
	// ZoneDebounce is the minimum age of a zone's last movement before it may turn signals red.
	ZoneDebounce time.Duration
	// ReleaseDebounce is the global quiet time required before an empty zone releases signals.
	ReleaseDebounce   time.Duration
	AutoCheckInterval time.Duration
	AutoMode          bool
	Dwell             DwellPolicy
}

// DwellPolicy maps a demand (vehicle count) to how long a red signal is held.
// Demand below LowDemand gets Low, below HighDemand gets Medium, anything else
// gets High plus PerVehicle for every vehicle over HighDemand, at most MaxExtra.
// The result is clamped to [Min, Max].
type DwellPolicy struct {
	LowDemand  int
	HighDemand int
	Low        time.Duration
	Medium     time.Duration
	High       time.Duration
	PerVehicle time.Duration
	MaxExtra   time.Duration
	Min        time.Duration
	Max        time.Duration
}

// DefaultDwellPolicy returns the reference dwell tiers.
func DefaultDwellPolicy() DwellPolicy {
	return DwellPolicy{
		LowDemand:  3,
		HighDemand: 10,
		Low:        20 * time.Second,
		Medium:     30 * time.Second,
		High:       30 * time.Second,
		PerVehicle: 2 * time.Second,
		MaxExtra:   30 * time.Second,
		Min:        15 * time.Second,
		Max:        60 * time.Second,
	}
}

// withDefaults fills every unset field from the reference policy.
func (p DwellPolicy) withDefaults() DwellPolicy {
	d := DefaultDwellPolicy()
	if p.LowDemand <= 0 {
		p.LowDemand = d.LowDemand
	}
	if p.HighDemand <= 0 {
		p.HighDemand = d.HighDemand
	}
	if p.Low <= 0 {
		p.Low = d.Low
	}
	if p.Medium <= 0 {
		p.Medium = d.Medium
	}
	if p.High <= 0 {
		p.High = d.High
	}
	if p.PerVehicle <= 0 {
		p.PerVehicle = d.PerVehicle
	}
	if p.MaxExtra <= 0 {
		p.MaxExtra = d.MaxExtra
	}
	if p.Min <= 0 {
		p.Min = d.Min
	}
	if p.Max <= 0 {
		p.Max = d.Max
	}
	return p
}

// For returns the dwell for a demand.
func (p DwellPolicy) For(demand int) time.Duration {
	var d time.Duration
	switch {
	case demand < p.LowDemand:
		d = p.Low
	case demand < p.HighDemand:
		d = p.Medium
	default:
		d = p.High + min(p.MaxExtra, time.Duration(demand-p.HighDemand)*p.PerVehicle)
	}
	return max(p.Min, min(p.Max, d))
}

// DefaultConfig returns the reference timings.
func DefaultConfig() Config {
	return Config{
		InitialDwell:      30 * time.Second,
		StallDebounce:     30 * time.Second,
		ZoneDebounce:      10 * time.Second,
		ReleaseDebounce:   5 * time.Second,
		AutoCheckInterval: 5 * time.Second,
		AutoMode:          true,
		Dwell:             DefaultDwellPolicy(),
	}
}

type signal struct {
	id        string
	state     models.SignalState
	changedAt time.Time
	dwell     time.Duration
}

// Controller is the signal bank and its rule set. It is owned by the pipeline loop.
type Controller struct {
	cfg    Config
	logger zerolog.Logger

	signals         map[string]*signal
	lastChange      time.Time
	lastAutoCheck   time.Time
	autoMode        bool
	recentlyChanged []string

	events []models.SignalEvent
}

// NewController creates the twelve signals in the released (IDLE) state.
func NewController(cfg Config, logger zerolog.Logger, now time.Time) *Controller {
	def := DefaultConfig()
	if cfg.InitialDwell <= 0 {
		cfg.InitialDwell = def.InitialDwell
	}
	if cfg.AutoCheckInterval <= 0 {
		cfg.AutoCheckInterval = def.AutoCheckInterval
	}
	cfg.Dwell = cfg.Dwell.withDefaults()

	c := &Controller{
		cfg:           cfg,
		logger:        logger,
		signals:       make(map[string]*signal, len(ids)),
		lastChange:    now,
		lastAutoCheck: now,
		autoMode:      cfg.AutoMode,
	}
	for _, id := range ids {
		c.signals[id] = &signal{id: id, state: models.SignalIdle, dwell: cfg.InitialDwell}
	}
	return c
}

func (c *Controller) get(id string) (*signal, error) {
	s, ok := c.signals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignal, id)
	}
	return s, nil
}

// State returns the state of a signal, empty for unknown ids.
func (c *Controller) State(id string) models.SignalState {
	if s, ok := c.signals[id]; ok {
		return s.state
	}
	return ""
}

// Dwell returns the current dwell of a signal.
func (c *Controller) Dwell(id string) time.Duration {
	if s, ok := c.signals[id]; ok {
		return s.dwell
	}
	return 0
}

// AutoMode reports whether auto-release is active.
func (c *Controller) AutoMode() bool {
	return c.autoMode
}

// ToggleAutoMode flips auto-release and returns the new value.
func (c *Controller) ToggleAutoMode() bool {
	c.autoMode = !c.autoMode
	c.logger.Info().Bool("auto_mode", c.autoMode).Msg("Auto mode toggled")
	return c.autoMode
}

// LastChange returns when a signal last turned red.
func (c *Controller) LastChange() time.Time {
	return c.lastChange
}

// RecentlyChanged lists signals turned red and not yet released, oldest first.
func (c *Controller) RecentlyChanged() []string {
	return slices.Clone(c.recentlyChanged)
}

// ToRed turns a signal red. It reports whether the state changed.
func (c *Controller) ToRed(id string, now time.Time) (bool, error) {
	return c.transition(id, models.SignalRed, now, ReasonManual, 0)
}

// ToGreen turns a signal green. It reports whether the state changed.
func (c *Controller) ToGreen(id string, now time.Time) (bool, error) {
	return c.transition(id, models.SignalGreen, now, ReasonManual, 0)
}

// ToIdle releases a signal to IDLE. It reports whether the state changed.
func (c *Controller) ToIdle(id string, now time.Time) (bool, error) {
	return c.transition(id, models.SignalIdle, now, ReasonManual, 0)
}

// SetState applies a manual state change.
func (c *Controller) SetState(id string, state models.SignalState, now time.Time) (bool, error) {
	if !state.IsValid() {
		return false, fmt.Errorf("invalid signal state %q", state)
	}
	return c.transition(id, state, now, ReasonManual, 0)
}

func (c *Controller) transition(id string, to models.SignalState, now time.Time, reason string, zoneID int) (bool, error) {
	s, err := c.get(id)
	if err != nil {
		return false, err
	}
	if s.state == to {
		return false, nil
	}

	from := s.state
	s.state = to
	s.changedAt = now

	if to == models.SignalRed {
		c.lastChange = now
		if !slices.Contains(c.recentlyChanged, id) {
			c.recentlyChanged = append(c.recentlyChanged, id)
		}
	} else {
		c.recentlyChanged = slices.DeleteFunc(c.recentlyChanged, func(r string) bool { return r == id })
	}

	c.events = append(c.events, models.SignalEvent{
		SignalID: id,
		From:     from,
		To:       to,
		Reason:   reason,
		ZoneID:   zoneID,
		Dwell:    s.dwell,
		At:       now,
	})
	return true, nil
}

// DwellFor maps a demand to a dwell with the reference policy.
func DwellFor(demand int) time.Duration {
	return DefaultDwellPolicy().For(demand)
}

// AdjustDwell sets the dwell of a signal from a demand. It reports whether it changed.
func (c *Controller) AdjustDwell(id string, demand int) (bool, error) {
	s, err := c.get(id)
	if err != nil {
		return false, err
	}
	d := c.cfg.Dwell.For(demand)
	if s.dwell == d {
		return false, nil
	}
	s.dwell = d
	return true, nil
}

// autoRelease releases every red signal whose dwell has elapsed.
func (c *Controller) autoRelease(now time.Time) bool {
	if !c.autoMode || now.Sub(c.lastAutoCheck) < c.cfg.AutoCheckInterval {
		return false
	}
	c.lastAutoCheck = now

	changed := false
	for _, id := range ids {
		s := c.signals[id]
		if s.state == models.SignalRed && now.Sub(s.changedAt) > s.dwell {
			ok, _ := c.transition(id, models.SignalIdle, now, ReasonAutoRelease, 0)
			changed = changed || ok
		}
	}
	return changed
}

// Manage runs one evaluation of the rule set over the zones and reports whether
// any signal changed.
func (c *Controller) Manage(zones []Zone, now time.Time) bool {
	changed := c.autoRelease(now)

	for _, z := range zones {
		var zoneChanged bool
		switch {
		case z.Stalled():
			zoneChanged = c.handleStalled(z, now)
		case z.MemberCount() == 0:
			zoneChanged = c.handleEmpty(z, now)
		default:
			zoneChanged = c.handleOccupied(z, now)
		}
		changed = changed || zoneChanged
	}
	return changed
}

func (c *Controller) handleStalled(z Zone, now time.Time) bool {
	if now.Sub(c.lastChange) < c.cfg.StallDebounce {
		return false
	}
	if now.Sub(z.LastChangeTime()) < c.cfg.ZoneDebounce {
		return false
	}

	changed := false
	for _, id := range z.SignalLinks() {
		c.AdjustDwell(id, z.MemberCount()*2)
		ok, err := c.transition(id, models.SignalRed, now, ReasonStalled, z.ID())
		if err != nil {
			c.logger.Error().Err(err).Int("zone_id", z.ID()).Msg("Stall rule skipped signal")
			continue
		}
		if ok {
			changed = true
			c.logger.Warn().
				Str("zone", z.Name()).
				Str("signal", DisplayName(id)).
				Msg("Vehicles stalled in zone, signal switched to red")
		}
	}
	return changed
}

func (c *Controller) handleEmpty(z Zone, now time.Time) bool {
	if now.Sub(c.lastChange) < c.cfg.ReleaseDebounce {
		return false
	}

	changed := false
	for _, id := range z.SignalLinks() {
		c.AdjustDwell(id, 0)
		ok, err := c.transition(id, models.SignalIdle, now, ReasonEmpty, z.ID())
		if err != nil {
			c.logger.Error().Err(err).Int("zone_id", z.ID()).Msg("Release rule skipped signal")
			continue
		}
		if ok {
			changed = true
			c.logger.Info().
				Str("zone", z.Name()).
				Str("signal", DisplayName(id)).
				Msg("Zone empty, signal released")
		}
	}
	return changed
}

func (c *Controller) handleOccupied(z Zone, now time.Time) bool {
	if now.Sub(z.LastChangeTime()) < c.cfg.ZoneDebounce {
		return false
	}

	changed := false
	for _, id := range z.SignalLinks() {
		c.AdjustDwell(id, z.MemberCount())
		ok, err := c.transition(id, models.SignalRed, now, ReasonOccupied, z.ID())
		if err != nil {
			c.logger.Error().Err(err).Int("zone_id", z.ID()).Msg("Occupancy rule skipped signal")
			continue
		}
		if ok {
			changed = true
			c.logger.Info().
				Str("zone", z.Name()).
				Int("vehicles", z.MemberCount()).
				Str("signal", DisplayName(id)).
				Msg("Vehicles detected in zone, signal switched to red")
		}
	}
	return changed
}

// DrainEvents returns and clears the transitions recorded since the last call.
func (c *Controller) DrainEvents() []models.SignalEvent {
	events := c.events
	c.events = nil
	return events
}

// Snapshot returns a read-only copy of every signal in display order.
func (c *Controller) Snapshot(now time.Time) []models.SignalSnapshot {
	out := make([]models.SignalSnapshot, 0, len(ids))
	for _, id := range ids {
		s := c.signals[id]
		var since time.Duration
		if !s.changedAt.IsZero() {
			since = now.Sub(s.changedAt)
		}
		out = append(out, models.SignalSnapshot{
			ID:              id,
			Name:            DisplayName(id),
			Group:           GroupOf(id),
			State:           s.state,
			SinceChange:     since,
			Dwell:           s.dwell,
			RecentlyChanged: slices.Contains(c.recentlyChanged, id),
		})
	}
	return out
}
