package zones

import "time"

// churn is the size of the symmetric difference between two member sets.
func churn(prev, cur map[int]struct{}) int {
	n := 0
	for id := range cur {
		if _, ok := prev[id]; !ok {
			n++
		}
	}
	for id := range prev {
		if _, ok := cur[id]; !ok {
			n++
		}
	}
	return n
}

// movementThreshold is the churn needed to count as movement: half the
// occupancy, at least 1 and at most MaxChurnThreshold.
func (z *Zone) movementThreshold() int {
	return min(z.cfg.MaxChurnThreshold, max(1, len(z.members)/2))
}

func (z *Zone) evaluateStall(now time.Time) {
	c := churn(z.previous, z.members)
	if c > 0 && c >= z.movementThreshold() {
		z.movementDetected = true
		z.lastChangeTime = now
		z.closeStall(now)
		return
	}
	z.movementDetected = false

	if len(z.members) == 0 {
		z.closeStall(now)
		return
	}

	if z.stalled {
		return
	}
	if now.Sub(z.lastChangeTime) > z.cfg.StallWindow && len(z.members) >= z.cfg.StallMinVehicles {
		z.stalled = true
		z.stalledSince = now
		z.stats.openStall()
	}
}

func (z *Zone) closeStall(now time.Time) {
	if !z.stalled {
		return
	}
	z.stats.closeStall(now.Sub(z.stalledSince))
	z.stalled = false
	z.stalledSince = time.Time{}
}
