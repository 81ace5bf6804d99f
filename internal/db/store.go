package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/seqscan/internal/seqscan"
)

// Run describes one persisted scan invocation.
type Run struct {
	RunID            string
	TagID            string
	IsCartesian      bool
	Eps              float64
	MinPoints        int
	DeltaSeconds     float64
	ObservationCount int
	StopCount        int
	CreatedUnixNanos int64
}

// InsertResult persists a scan result and its parameters in one
// transaction and returns the minted run id. The in-memory result is left
// untouched, so a failed insert can be retried.
func (db *DB) InsertResult(res *seqscan.Result, cartesian bool, params seqscan.Params, created time.Time) (string, error) {
	runID := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin insert transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO scan_runs (
			run_id, tag_id, is_cartesian, eps, min_points, delta_seconds,
			observation_count, stop_count, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.TagID, cartesian, params.Eps, params.MinPoints,
		params.Delta.Seconds(), len(res.Classifications), len(res.Stops),
		created.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	clsStmt, err := tx.Prepare(`
		INSERT INTO scan_classifications (
			run_id, seq, x, y, ts_unix_nanos, cluster, class, type, details
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare classification insert: %w", err)
	}
	defer clsStmt.Close()

	for i, row := range res.Classifications {
		if _, err := clsStmt.Exec(
			runID, i, row.X, row.Y, row.Time.UnixNano(),
			row.Cluster, row.Class, row.Type, row.Details,
		); err != nil {
			return "", fmt.Errorf("insert classification %d: %w", i, err)
		}
	}

	stopStmt, err := tx.Prepare(`
		INSERT INTO scan_stops (
			run_id, stop_id, tag_id, start_unix_nanos, end_unix_nanos,
			centroid_x, centroid_y
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare stop insert: %w", err)
	}
	defer stopStmt.Close()

	for _, s := range res.Stops {
		if _, err := stopStmt.Exec(
			runID, s.StopID, s.TagID, s.Start.UnixNano(), s.End.UnixNano(),
			s.CentroidX, s.CentroidY,
		); err != nil {
			return "", fmt.Errorf("insert stop %s: %w", s.StopID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit result insert: %w", err)
	}
	return runID, nil
}

// GetRun returns a persisted run header.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`
		SELECT run_id, tag_id, is_cartesian, eps, min_points, delta_seconds,
		       observation_count, stop_count, created_unix_nanos
		FROM scan_runs WHERE run_id = ?`, runID)

	var r Run
	err := row.Scan(&r.RunID, &r.TagID, &r.IsCartesian, &r.Eps, &r.MinPoints,
		&r.DeltaSeconds, &r.ObservationCount, &r.StopCount, &r.CreatedUnixNanos)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &r, nil
}

// GetClassifications returns the per-point stream of a run in scan order.
func (db *DB) GetClassifications(runID string) ([]seqscan.Classification, error) {
	rows, err := db.Query(`
		SELECT x, y, ts_unix_nanos, cluster, class, type, details
		FROM scan_classifications WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}
	defer rows.Close()

	var out []seqscan.Classification
	for rows.Next() {
		var c seqscan.Classification
		var nanos int64
		if err := rows.Scan(&c.X, &c.Y, &nanos, &c.Cluster, &c.Class, &c.Type, &c.Details); err != nil {
			return nil, fmt.Errorf("scan classification row: %w", err)
		}
		c.Time = time.Unix(0, nanos).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetStops returns the stops of a run ordered by start time.
func (db *DB) GetStops(runID string) ([]seqscan.Stop, error) {
	rows, err := db.Query(`
		SELECT stop_id, tag_id, start_unix_nanos, end_unix_nanos, centroid_x, centroid_y
		FROM scan_stops WHERE run_id = ? ORDER BY start_unix_nanos`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	return scanStops(rows)
}

// GetStopsInRange returns the stops of a tag overlapping the time range,
// across all runs, ordered by start time.
func (db *DB) GetStopsInRange(tagID string, startNanos, endNanos int64) ([]seqscan.Stop, error) {
	rows, err := db.Query(`
		SELECT stop_id, tag_id, start_unix_nanos, end_unix_nanos, centroid_x, centroid_y
		FROM scan_stops
		WHERE tag_id = ? AND end_unix_nanos >= ? AND start_unix_nanos <= ?
		ORDER BY start_unix_nanos`, tagID, startNanos, endNanos)
	if err != nil {
		return nil, fmt.Errorf("query stops in range: %w", err)
	}
	defer rows.Close()

	return scanStops(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanStops(rows rowScanner) ([]seqscan.Stop, error) {
	var out []seqscan.Stop
	for rows.Next() {
		var s seqscan.Stop
		var startNanos, endNanos int64
		if err := rows.Scan(&s.StopID, &s.TagID, &startNanos, &endNanos, &s.CentroidX, &s.CentroidY); err != nil {
			return nil, fmt.Errorf("scan stop row: %w", err)
		}
		s.Start = time.Unix(0, startNanos).UTC()
		s.End = time.Unix(0, endNanos).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
