package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"junction-worker-go/internal/models"
	"junction-worker-go/internal/pipeline"
)

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Name implements pipeline.Sink.
func (s *Store) Name() string { return "sqlite" }

// Emit implements pipeline.Sink. All records of one emission are written in a
// single transaction.
func (s *Store) Emit(ctx context.Context, e pipeline.Emission) error {
	if len(e.Statistics) == 0 && len(e.Events) == 0 && len(e.Samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertStatistics(ctx, tx, e.Statistics); err != nil {
		return err
	}
	if err := insertSignalEvents(ctx, tx, e.Events); err != nil {
		return err
	}
	if err := insertSamples(ctx, tx, e.Samples); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// InsertStatistics stores zone statistics records.
func (s *Store) InsertStatistics(ctx context.Context, stats []models.ZoneStatistics) error {
	return s.Emit(ctx, pipeline.Emission{Statistics: stats})
}

// InsertSignalEvents stores signal transitions.
func (s *Store) InsertSignalEvents(ctx context.Context, events []models.SignalEvent) error {
	return s.Emit(ctx, pipeline.Emission{Events: events})
}

// InsertSamples stores zone samples.
func (s *Store) InsertSamples(ctx context.Context, samples []models.ZoneSample) error {
	return s.Emit(ctx, pipeline.Emission{Samples: samples})
}

func insertStatistics(ctx context.Context, tx *sql.Tx, stats []models.ZoneStatistics) error {
	if len(stats) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zone_statistics (
			session_id, zone_id, name, mode, display_count, max_occupancy, avg_occupancy,
			window_seconds, stalled_seconds, stall_episodes, hourly_occupancy, congestion, recorded_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statistics insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stats {
		hourly, err := json.Marshal(st.HourlyOccupancy)
		if err != nil {
			return fmt.Errorf("failed to encode hourly occupancy: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			st.SessionID, st.ZoneID, st.Name, string(st.Mode), st.DisplayCount, st.MaxOccupancy, st.AvgOccupancy,
			st.Window.Seconds(), st.StalledSeconds, st.StallEpisodes, string(hourly), string(st.Congestion), toMillis(st.At),
		); err != nil {
			return fmt.Errorf("failed to insert statistics for zone %d: %w", st.ZoneID, err)
		}
	}
	return nil
}

func insertSignalEvents(ctx context.Context, tx *sql.Tx, events []models.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signal_events (session_id, signal_id, from_state, to_state, reason, zone_id, dwell_seconds, at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare signal event insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		var zoneID sql.NullInt64
		if ev.ZoneID > 0 {
			zoneID = sql.NullInt64{Int64: int64(ev.ZoneID), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			ev.SessionID, ev.SignalID, string(ev.From), string(ev.To), ev.Reason, zoneID, ev.Dwell.Seconds(), toMillis(ev.At),
		); err != nil {
			return fmt.Errorf("failed to insert event for signal %s: %w", ev.SignalID, err)
		}
	}
	return nil
}

func insertSamples(ctx context.Context, tx *sql.Tx, samples []models.ZoneSample) error {
	if len(samples) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zone_samples (session_id, zone_id, name, mode, frame_count, display_count, members, at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, sm := range samples {
		members := sm.Members
		if members == nil {
			members = []int{}
		}
		encoded, err := json.Marshal(members)
		if err != nil {
			return fmt.Errorf("failed to encode members: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			sm.SessionID, sm.ZoneID, sm.Name, string(sm.Mode), sm.FrameCount, sm.DisplayCount, string(encoded), toMillis(sm.At),
		); err != nil {
			return fmt.Errorf("failed to insert sample for zone %d: %w", sm.ZoneID, err)
		}
	}
	return nil
}

// LatestStatistics returns the most recent statistics record of every zone of
// a session, ordered by zone id.
func (s *Store) LatestStatistics(ctx context.Context, sessionID string) ([]models.ZoneStatistics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, zone_id, name, mode, display_count, max_occupancy, avg_occupancy,
		       window_seconds, stalled_seconds, stall_episodes, hourly_occupancy, congestion, recorded_at_ms
		FROM zone_statistics AS zs
		WHERE session_id = ?
		  AND id = (
		      SELECT MAX(id) FROM zone_statistics
		      WHERE session_id = zs.session_id AND zone_id = zs.zone_id
		  )
		ORDER BY zone_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	var out []models.ZoneStatistics
	for rows.Next() {
		var (
			st               models.ZoneStatistics
			mode, congestion string
			hourly           string
			windowSeconds    float64
			recordedAt       int64
		)
		if err := rows.Scan(
			&st.SessionID, &st.ZoneID, &st.Name, &mode, &st.DisplayCount, &st.MaxOccupancy, &st.AvgOccupancy,
			&windowSeconds, &st.StalledSeconds, &st.StallEpisodes, &hourly, &congestion, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan statistics: %w", err)
		}
		if err := json.Unmarshal([]byte(hourly), &st.HourlyOccupancy); err != nil {
			return nil, fmt.Errorf("failed to decode hourly occupancy: %w", err)
		}
		st.Mode = models.ZoneMode(mode)
		st.Congestion = models.CongestionLevel(congestion)
		st.Window = time.Duration(windowSeconds * float64(time.Second))
		st.At = fromMillis(recordedAt)
		out = append(out, st)
	}
	return out, rows.Err()
}

// SignalEvents returns the signal transitions of a session, oldest first.
// A limit of zero or less returns all of them.
func (s *Store) SignalEvents(ctx context.Context, sessionID string, limit int) ([]models.SignalEvent, error) {
	query := `
		SELECT session_id, signal_id, from_state, to_state, reason, zone_id, dwell_seconds, at_ms
		FROM signal_events
		WHERE session_id = ?
		ORDER BY at_ms, id`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signal events: %w", err)
	}
	defer rows.Close()

	var out []models.SignalEvent
	for rows.Next() {
		var (
			ev       models.SignalEvent
			from, to string
			zoneID   sql.NullInt64
			dwell    float64
			at       int64
		)
		if err := rows.Scan(&ev.SessionID, &ev.SignalID, &from, &to, &ev.Reason, &zoneID, &dwell, &at); err != nil {
			return nil, fmt.Errorf("failed to scan signal event: %w", err)
		}
		ev.From = models.SignalState(from)
		ev.To = models.SignalState(to)
		if zoneID.Valid {
			ev.ZoneID = int(zoneID.Int64)
		}
		ev.Dwell = time.Duration(dwell * float64(time.Second))
		ev.At = fromMillis(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Samples returns the samples of a zone recorded at or after since, oldest
// first, across sessions.
func (s *Store) Samples(ctx context.Context, zoneID int, since time.Time) ([]models.ZoneSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, zone_id, name, mode, frame_count, display_count, members, at_ms
		FROM zone_samples
		WHERE zone_id = ? AND at_ms >= ?
		ORDER BY at_ms, id`, zoneID, toMillis(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []models.ZoneSample
	for rows.Next() {
		var (
			sm      models.ZoneSample
			mode    string
			members string
			at      int64
		)
		if err := rows.Scan(&sm.SessionID, &sm.ZoneID, &sm.Name, &mode, &sm.FrameCount, &sm.DisplayCount, &members, &at); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &sm.Members); err != nil {
			return nil, fmt.Errorf("failed to decode members: %w", err)
		}
		sm.Mode = models.ZoneMode(mode)
		sm.At = fromMillis(at)
		out = append(out, sm)
	}
	return out, rows.Err()
}
