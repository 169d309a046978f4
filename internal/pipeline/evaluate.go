package pipeline

import "time"

// Evaluate runs the signal rule set over the zones, computes the statistics
// records and queues them, with any signal transitions, for the sinks.
func (p *Pipeline) Evaluate() error {
	now := p.advance(time.Time{})
	p.lastEval = now

	if p.controller.Manage(p.zoneViews(), now) {
		p.logger.Debug().Strs("recently_changed", p.controller.RecentlyChanged()).Msg("Signal states changed")
	}

	for _, ev := range p.controller.DrainEvents() {
		ev.SessionID = p.sessionID
		p.pending.Events = append(p.pending.Events, ev)
	}

	for _, w := range p.zones.CongestionWarnings() {
		p.logger.Warn().
			Str("stalled_zone", w.StalledZoneName).
			Str("affected_zone", w.AffectedZone).
			Strs("signals", w.SharedSignals).
			Int("vehicles", w.Members).
			Msg("Congestion in zone spreads over shared signals")
	}

	p.statistics = p.zones.Statistics(p.sessionID, now)
	p.pending.Statistics = p.statistics

	p.publish(now)
	p.pending.Snapshot = p.Snapshot()
	return nil
}
