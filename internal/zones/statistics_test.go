package zones

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatisticsTrailingAverage(t *testing.T) {
	t.Parallel()

	s := NewStatistics(10 * time.Second)
	s.Observe(10, at(0))
	s.Observe(2, at(5))
	s.Observe(4, at(12))

	// the sample at 0s is outside the window ending at 12s
	assert.InDelta(t, 3.0, s.AverageOccupancy(at(12)), 1e-9)
	assert.Equal(t, 10, s.MaxOccupancy(), "maximum is kept for the whole session")
	assert.Zero(t, s.AverageOccupancy(at(100)))
}

func TestStatisticsHourlyBuckets(t *testing.T) {
	t.Parallel()

	s := NewStatistics(time.Minute)
	s.Observe(2, t0)
	s.Observe(4, t0.Add(time.Minute))
	s.Observe(9, t0.Add(time.Hour))

	hourly := s.HourlyOccupancy()
	assert.InDelta(t, 3.0, hourly[t0.Hour()], 1e-9)
	assert.InDelta(t, 9.0, hourly[t0.Add(time.Hour).Hour()], 1e-9)
	assert.Zero(t, hourly[(t0.Hour()+2)%24])
}

func TestStatisticsStalledDuration(t *testing.T) {
	t.Parallel()

	s := NewStatistics(time.Minute)
	s.openStall()
	s.closeStall(3 * time.Second)
	s.openStall()

	open := at(10)
	assert.Equal(t, 2, s.StallEpisodes())
	assert.Equal(t, 3*time.Second, s.StalledDuration(at(5), nil))
	assert.Equal(t, 8*time.Second, s.StalledDuration(at(15), &open))
}
