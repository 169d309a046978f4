package pipeline

import "time"

// fpsCounter estimates the frame rate over the last N frame times.
type fpsCounter struct {
	window int
	times  []time.Time
}

func newFPSCounter(window int) *fpsCounter {
	return &fpsCounter{window: window}
}

func (f *fpsCounter) Tick(now time.Time) {
	f.times = append(f.times, now)
	if len(f.times) > f.window {
		f.times = f.times[1:]
	}
}

func (f *fpsCounter) Rate() float64 {
	if len(f.times) < 2 {
		return 0
	}
	span := f.times[len(f.times)-1].Sub(f.times[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(f.times)-1) / span
}
