// Package analysis derives traffic flow reports from stored zone samples.
package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"junction-worker-go/internal/models"
)

// Flow levels by vehicles per minute.
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelVeryHigh = "very_high"
)

// FlowConfig controls the sliding windows and the level thresholds, in
// vehicles per minute.
type FlowConfig struct {
	Window time.Duration
	Low    float64
	Medium float64
	High   float64
}

// DefaultFlowConfig uses one minute windows.
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{Window: time.Minute, Low: 5, Medium: 10, High: 20}
}

// Level classifies a flow rate.
func (c FlowConfig) Level(perMin float64) string {
	switch {
	case perMin < c.Low:
		return LevelLow
	case perMin < c.Medium:
		return LevelMedium
	case perMin < c.High:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

type arrival struct {
	at       time.Time
	vehicles int
}

// arrivals turns display count increments between consecutive samples of the
// same session into vehicle arrivals at the later sample's time. The first
// sample of each session is the baseline.
func arrivals(samples []models.ZoneSample) []arrival {
	var out []arrival
	last := make(map[string]int)
	for _, s := range samples {
		prev, seen := last[s.SessionID]
		last[s.SessionID] = s.DisplayCount
		if !seen {
			continue
		}
		if d := s.DisplayCount - prev; d > 0 {
			out = append(out, arrival{at: s.At, vehicles: d})
		}
	}
	return out
}

// Flow analyses the samples of one COUNT zone. Windows of cfg.Window start at
// the first arrival and step by half a window while they start no later than
// the last arrival; each covers [start, start+window).
func Flow(zoneID int, name string, samples []models.ZoneSample, cfg FlowConfig) models.FlowReport {
	if cfg.Window <= 0 {
		cfg.Window = DefaultFlowConfig().Window
	}

	report := models.FlowReport{ZoneID: zoneID, Name: name, Windows: []models.FlowWindow{}}
	if len(samples) == 0 {
		return report
	}

	sorted := make([]models.ZoneSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	report.Duration = sorted[len(sorted)-1].At.Sub(sorted[0].At).Seconds()

	arr := arrivals(sorted)
	for _, a := range arr {
		report.TotalVehicles += a.vehicles
	}
	if minutes := report.Duration / 60; minutes > 0 {
		report.AvgFlowRate = float64(report.TotalVehicles) / minutes
	}
	if len(arr) == 0 {
		return report
	}

	step := cfg.Window / 2
	if step <= 0 {
		step = cfg.Window
	}
	windowMinutes := cfg.Window.Minutes()
	first, last := arr[0].at, arr[len(arr)-1].at

	var (
		rates  []float64
		levels = make(map[string]int)
		order  []string
		peak   = -1
	)
	for start := first; !start.After(last); start = start.Add(step) {
		end := start.Add(cfg.Window)
		count := 0
		for _, a := range arr {
			if !a.at.Before(start) && a.at.Before(end) {
				count += a.vehicles
			}
		}

		perMin := float64(count) / windowMinutes
		level := cfg.Level(perMin)
		report.Windows = append(report.Windows, models.FlowWindow{
			Start:    start,
			End:      end,
			Vehicles: count,
			PerMin:   perMin,
			Level:    level,
		})
		rates = append(rates, perMin)

		if levels[level] == 0 {
			order = append(order, level)
		}
		levels[level]++

		if peak < 0 || count > report.Windows[peak].Vehicles {
			peak = len(report.Windows) - 1
		}
	}

	pw := report.Windows[peak]
	report.PeakWindow = &pw

	// most frequent level, earliest seen wins a tie
	for _, level := range order {
		if report.DominantLevel == "" || levels[level] > levels[report.DominantLevel] {
			report.DominantLevel = level
		}
	}

	if len(rates) > 1 {
		report.StdFlowRate = stat.StdDev(rates, nil)
	}
	return report
}
