package zones

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

type occupancySample struct {
	at        time.Time
	occupancy float64
}

// Statistics keeps the rolling occupancy statistics of one zone.
type Statistics struct {
	window time.Duration

	maxOccupancy int
	samples      []occupancySample

	stallEpisodes int
	stalledClosed time.Duration
	hourlySum     [24]float64
	hourlySamples [24]int
}

// NewStatistics creates statistics with a trailing averaging window.
func NewStatistics(window time.Duration) *Statistics {
	return &Statistics{window: window}
}

// Observe records one frame's occupancy.
func (s *Statistics) Observe(occupancy int, now time.Time) {
	s.maxOccupancy = max(s.maxOccupancy, occupancy)
	s.samples = append(s.samples, occupancySample{at: now, occupancy: float64(occupancy)})
	s.trim(now)

	h := now.Hour()
	s.hourlySum[h] += float64(occupancy)
	s.hourlySamples[h]++
}

func (s *Statistics) trim(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.samples) && s.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

// Window returns the averaging window.
func (s *Statistics) Window() time.Duration {
	return s.window
}

// MaxOccupancy returns the session maximum occupancy.
func (s *Statistics) MaxOccupancy() int {
	return s.maxOccupancy
}

// AverageOccupancy returns the mean occupancy over the trailing window ending at now.
func (s *Statistics) AverageOccupancy(now time.Time) float64 {
	cutoff := now.Add(-s.window)
	values := make([]float64, 0, len(s.samples))
	for _, sample := range s.samples {
		if sample.at.Before(cutoff) {
			continue
		}
		values = append(values, sample.occupancy)
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// HourlyOccupancy returns the average occupancy per hour of day.
func (s *Statistics) HourlyOccupancy() [24]float64 {
	var out [24]float64
	for h := range out {
		if s.hourlySamples[h] > 0 {
			out[h] = s.hourlySum[h] / float64(s.hourlySamples[h])
		}
	}
	return out
}

// StallEpisodes returns how many stall episodes have started.
func (s *Statistics) StallEpisodes() int {
	return s.stallEpisodes
}

// StalledDuration returns the total stalled time, including an open episode.
func (s *Statistics) StalledDuration(now time.Time, openSince *time.Time) time.Duration {
	total := s.stalledClosed
	if openSince != nil && now.After(*openSince) {
		total += now.Sub(*openSince)
	}
	return total
}

func (s *Statistics) openStall() {
	s.stallEpisodes++
}

func (s *Statistics) closeStall(d time.Duration) {
	if d > 0 {
		s.stalledClosed += d
	}
}
