// Package diagnostics stores the per-step diagnostic scalars of simulation
// runs in a SQLite database.
package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/notargets/gofold/simulation"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	title     TEXT NOT NULL,
	started   TEXT NOT NULL,
	nodes     INTEGER NOT NULL,
	elements  INTEGER NOT NULL,
	dt        REAL NOT NULL,
	mode      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS steps (
	run_id     INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	step       INTEGER NOT NULL,
	time       REAL NOT NULL,
	min_edge   REAL NOT NULL,
	max_edge   REAL NOT NULL,
	mean_edge  REAL NOT NULL,
	volume     REAL NOT NULL,
	energy     REAL NOT NULL,
	degenerate INTEGER NOT NULL,
	contacts   INTEGER NOT NULL,
	PRIMARY KEY (run_id, step)
);
`

// Run describes one simulation run
type Run struct {
	ID       int64
	Title    string
	Started  time.Time
	Nodes    int
	Elements int
	Dt       float64
	Mode     string
}

// Recorder appends runs and their step diagnostics to a SQLite database
type Recorder struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open creates or opens the database at path
func Open(ctx context.Context, path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	insert, err := db.PrepareContext(ctx, `
		INSERT INTO steps (run_id, step, time, min_edge, max_edge, mean_edge, volume, energy, degenerate, contacts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare step insert: %w", err)
	}
	return &Recorder{db: db, insert: insert}, nil
}

// BeginRun registers a run and returns its id
func (r *Recorder) BeginRun(ctx context.Context, run Run) (int64, error) {
	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (title, started, nodes, elements, dt, mode) VALUES (?, ?, ?, ?, ?, ?)`,
		run.Title, run.Started.UTC().Format(time.RFC3339Nano), run.Nodes, run.Elements, run.Dt, run.Mode)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// Record stores the diagnostics of one step of run runID
func (r *Recorder) Record(ctx context.Context, runID int64, d simulation.Diagnostics) error {
	_, err := r.insert.ExecContext(ctx, runID, d.Step, d.Time, d.MinEdge, d.MaxEdge, d.MeanEdge,
		d.Volume, d.Energy, d.Degenerate, d.Contacts)
	if err != nil {
		return fmt.Errorf("failed to record step %d: %w", d.Step, err)
	}
	return nil
}

// Runs lists the recorded runs in insertion order
func (r *Recorder) Runs(ctx context.Context) (runs []Run, err error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, started, nodes, elements, dt, mode FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			run     Run
			started string
		)
		if err = rows.Scan(&run.ID, &run.Title, &started, &run.Nodes, &run.Elements, &run.Dt, &run.Mode); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %d has malformed start time: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Steps returns the recorded diagnostics of run runID ordered by step
func (r *Recorder) Steps(ctx context.Context, runID int64) (steps []simulation.Diagnostics, err error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT step, time, min_edge, max_edge, mean_edge, volume, energy, degenerate, contacts
		FROM steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d simulation.Diagnostics
		if err = rows.Scan(&d.Step, &d.Time, &d.MinEdge, &d.MaxEdge, &d.MeanEdge,
			&d.Volume, &d.Energy, &d.Degenerate, &d.Contacts); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, d)
	}
	return steps, rows.Err()
}

// Close releases the database
func (r *Recorder) Close() error {
	r.insert.Close()
	return r.db.Close()
}
