package indexdb

import (
	"context"
	"database/sql"
)

// RunSummary aggregates the indexed ticks of one run.
type RunSummary struct {
	RunID        string
	Seed         int64
	Goal         int
	Ticks        int
	Completed    int
	Terminated   bool
	Events       int
	Discovered   int
	ByContent    map[string]int
	EventsByKind map[string]int
}

// Open opens an existing index for queries without starting a writer.
func Open(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path)
}

func Summarize(ctx context.Context, db *sql.DB, runID string) (RunSummary, error) {
	s := RunSummary{RunID: runID, ByContent: map[string]int{}, EventsByKind: map[string]int{}}

	row := db.QueryRowContext(ctx, `SELECT seed, goal FROM runs WHERE run_id=?`, runID)
	if err := row.Scan(&s.Seed, &s.Goal); err != nil {
		return s, err
	}

	var terminated sql.NullInt64
	var completed sql.NullInt64
	var events sql.NullInt64
	row = db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(completed), MAX(terminate), SUM(events) FROM ticks WHERE run_id=?`, runID)
	if err := row.Scan(&s.Ticks, &completed, &terminated, &events); err != nil {
		return s, err
	}
	s.Completed = int(completed.Int64)
	s.Terminated = terminated.Int64 == 1
	s.Events = int(events.Int64)

	rows, err := db.QueryContext(ctx, `SELECT content, COUNT(*) FROM discoveries WHERE run_id=? GROUP BY content`, runID)
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var content string
		var n int
		if err := rows.Scan(&content, &n); err != nil {
			rows.Close()
			return s, err
		}
		s.ByContent[content] = n
		s.Discovered += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}

	rows, err = db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events WHERE run_id=? GROUP BY kind`, runID)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return s, err
		}
		s.EventsByKind[kind] = n
	}
	return s, rows.Err()
}

// LatestRun returns the most recently started run id.
func LatestRun(ctx context.Context, db *sql.DB) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	return id, err
}
