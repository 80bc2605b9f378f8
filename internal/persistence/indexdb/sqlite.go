package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gridbot.ai/internal/agent/report"
)

// SQLiteIndex is a secondary index over tick reports. Writes are queued and
// applied by a single writer goroutine; the JSONL tick log stays the source of
// truth, so a full queue drops rows instead of stalling the tick loop.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqRun reqKind = iota + 1
	reqTick
)

type req struct {
	kind reqKind

	run  runRow
	tick tickRow
}

type runRow struct {
	RunID     string
	Seed      int64
	Goal      int
	StartedAt string
}

type tickRow struct {
	RunID string
	Tick  report.Tick
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			goal INTEGER NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			terminate INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			events INTEGER NOT NULL,
			discoveries INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			grid_row INTEGER NOT NULL,
			grid_col INTEGER NOT NULL,
			dir TEXT NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(run_id, kind);`,
		`CREATE TABLE IF NOT EXISTS discoveries (
			run_id TEXT NOT NULL,
			grid_row INTEGER NOT NULL,
			grid_col INTEGER NOT NULL,
			first_tick INTEGER NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (run_id, grid_row, grid_col)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped reports how many writes were discarded because the queue was full.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) RecordRun(runID string, seed int64, goal int) {
	s.enqueue(req{kind: reqRun, run: runRow{
		RunID:     runID,
		Seed:      seed,
		Goal:      goal,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

func (s *SQLiteIndex) WriteTick(runID string, t report.Tick) error {
	s.enqueue(req{kind: reqTick, tick: tickRow{RunID: runID, Tick: t}})
	return nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,seed,goal,started_at) VALUES(?,?,?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,terminate,completed,events,discoveries,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(run_id,tick,seq,kind,grid_row,grid_col,dir,amount) VALUES(?,?,?,?,?,?,?,?)`)
	insertDiscovery, _ := s.db.Prepare(`INSERT OR IGNORE INTO discoveries(run_id,grid_row,grid_col,first_tick,content) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertTick, insertEvent, insertDiscovery} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRun:
			exec(insertRun, r.run.RunID, r.run.Seed, r.run.Goal, r.run.StartedAt)

		case reqTick:
			t := r.tick.Tick
			raw, _ := json.Marshal(t)
			if !exec(insertTick, r.tick.RunID, int64(t.Tick), boolInt(t.Terminate), t.Completed, len(t.Events), len(t.Discoveries), string(raw)) {
				continue
			}
			for i, e := range t.Events {
				if !exec(insertEvent, r.tick.RunID, int64(t.Tick), i, string(e.Kind), e.At.Row, e.At.Col, e.Dir.String(), e.Amount) {
					break
				}
			}
			for _, d := range t.Discoveries {
				if !exec(insertDiscovery, r.tick.RunID, d.At.Row, d.At.Col, int64(t.Tick), d.Cell.Content.String()) {
					break
				}
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
