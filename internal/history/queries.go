package history

import (
	"database/sql"
	"fmt"
	"time"
)

// Record is one persisted probe outcome.
type Record struct {
	ID        int64
	Server    string
	Mode      string // "deep" or "quick"
	Alive     bool
	LatencyMS *int64 // nil when the probe never got an ack
	ErrorTag  string
	ToolCount int
	CreatedAt time.Time
}

// Summary aggregates a server's probe history.
type Summary struct {
	Server       string
	Probes       int
	Successes    int
	AvgLatencyMS float64
	LastProbe    time.Time
	LastAlive    bool
}

// InsertProbe appends one probe outcome.
func (s *Store) InsertProbe(rec *Record) error {
	query := `
		INSERT INTO probes (server, mode, alive, latency_ms, error_tag, tool_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var latency any
	if rec.LatencyMS != nil {
		latency = *rec.LatencyMS
	}

	_, err := s.db.Exec(query,
		rec.Server,
		rec.Mode,
		rec.Alive,
		latency,
		rec.ErrorTag,
		rec.ToolCount,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert probe for %s: %w", rec.Server, err)
	}
	return nil
}

// ListRecent returns the most recent probes for one server, newest first.
func (s *Store) ListRecent(server string, limit int) ([]*Record, error) {
	query := `
		SELECT id, server, mode, alive, latency_ms, error_tag, tool_count, created_at
		FROM probes
		WHERE server = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, server, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list probes for %s: %w", server, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summaries aggregates probe history per server, alphabetically.
func (s *Store) Summaries() ([]*Summary, error) {
	query := `
		SELECT server,
		       COUNT(*),
		       SUM(CASE WHEN alive THEN 1 ELSE 0 END),
		       COALESCE(AVG(CASE WHEN alive THEN latency_ms END), 0),
		       MAX(created_at)
		FROM probes
		GROUP BY server
		ORDER BY server
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize probes: %w", err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		var sum Summary
		var lastProbe string
		if err := rows.Scan(&sum.Server, &sum.Probes, &sum.Successes, &sum.AvgLatencyMS, &lastProbe); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		sum.LastProbe, err = time.Parse(time.RFC3339, lastProbe)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last probe time for %s: %w", sum.Server, err)
		}
		summaries = append(summaries, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The newest row decides LastAlive.
	for _, sum := range summaries {
		recent, err := s.ListRecent(sum.Server, 1)
		if err != nil {
			return nil, err
		}
		if len(recent) > 0 {
			sum.LastAlive = recent[0].Alive
		}
	}
	return summaries, nil
}

// Prune deletes probe records older than the cutoff.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM probes WHERE created_at < ?`, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune probe history: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var latency sql.NullInt64
	var createdAt string

	if err := rows.Scan(&rec.ID, &rec.Server, &rec.Mode, &rec.Alive, &latency, &rec.ErrorTag, &rec.ToolCount, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan probe record: %w", err)
	}
	if latency.Valid {
		v := latency.Int64
		rec.LatencyMS = &v
	}

	var err error
	rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return &rec, nil
}
