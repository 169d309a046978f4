package zones

import "time"

// CongestionThresholds maps a zone count to a congestion level. A value below
// Medium is LOW, below High is MEDIUM, anything else HIGH.
type CongestionThresholds struct {
	SumMedium   int
	SumHigh     int
	CountMedium int
	CountHigh   int
}

// Config holds the zone tuning knobs.
type Config struct {
	// CountCooldown suppresses recounting an object that re-enters a COUNT zone.
	CountCooldown time.Duration
	// StallWindow is how long a zone may go without movement before it stalls.
	StallWindow      time.Duration
	StallMinVehicles int
	// MaxChurnThreshold caps the membership churn that counts as movement.
	MaxChurnThreshold int
	// StatsWindow is the trailing window of the average occupancy.
	StatsWindow time.Duration
	Congestion  CongestionThresholds
	// WarnMembers is the stalled SUM zone size above which neighbours are warned.
	WarnMembers int
}

// DefaultConfig returns the tuning used by the reference deployment.
func DefaultConfig() Config {
	return Config{
		CountCooldown:     2 * time.Second,
		StallWindow:       10 * time.Second,
		StallMinVehicles:  3,
		MaxChurnThreshold: 3,
		StatsWindow:       60 * time.Second,
		Congestion: CongestionThresholds{
			SumMedium:   5,
			SumHigh:     10,
			CountMedium: 5,
			CountHigh:   15,
		},
		WarnMembers: 5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CountCooldown < 0 {
		c.CountCooldown = d.CountCooldown
	}
	if c.StallWindow <= 0 {
		c.StallWindow = d.StallWindow
	}
	if c.StallMinVehicles <= 0 {
		c.StallMinVehicles = d.StallMinVehicles
	}
	if c.MaxChurnThreshold <= 0 {
		c.MaxChurnThreshold = d.MaxChurnThreshold
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
	c.Congestion = c.Congestion.withDefaults(d.Congestion)
	if c.WarnMembers <= 0 {
		c.WarnMembers = d.WarnMembers
	}
	return c
}

// withDefaults replaces every unset threshold with its default.
func (t CongestionThresholds) withDefaults(d CongestionThresholds) CongestionThresholds {
	if t.SumMedium <= 0 {
		t.SumMedium = d.SumMedium
	}
	if t.SumHigh <= 0 {
		t.SumHigh = d.SumHigh
	}
	if t.CountMedium <= 0 {
		t.CountMedium = d.CountMedium
	}
	if t.CountHigh <= 0 {
		t.CountHigh = d.CountHigh
	}
	return t
}
