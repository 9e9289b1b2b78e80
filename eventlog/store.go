package eventlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists runs and steps in a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at path and ensures the schema.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		grid_name TEXT NOT NULL DEFAULT '',
		solver TEXT NOT NULL DEFAULT 'newton-raphson',
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME,
		islands INTEGER DEFAULT 0,
		converged INTEGER DEFAULT 0,
		error REAL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		island INTEGER NOT NULL,
		round INTEGER NOT NULL DEFAULT 0,
		iteration INTEGER NOT NULL,
		error REAL NOT NULL,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	CREATE INDEX IF NOT EXISTS idx_steps_run_island ON steps(run_id, island);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run record.
func (s *Store) CreateRun(r *Run) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, grid_name, solver, started_at, islands) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.GridName, r.Solver, r.StartedAt.UTC(), r.Islands,
	)
	return err
}

// FinishRun stamps a run with its outcome.
func (s *Store) FinishRun(id string, converged bool, mismatch float64) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, converged = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), converged, mismatch, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return err
}

// AppendSteps inserts a batch of iteration records in one transaction.
func (s *Store) AppendSteps(steps []Step) error {
	if len(steps) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO steps (run_id, island, round, iteration, error, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, st := range steps {
		if _, err := stmt.Exec(st.RunID, st.Island, st.Round, st.Iteration, st.Error, st.Timestamp.UTC()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, grid_name, solver, started_at, finished_at, islands, converged, error FROM runs WHERE id = ?`,
		id,
	)
	var r Run
	var finished sql.NullTime
	if err := row.Scan(&r.ID, &r.GridName, &r.Solver, &r.StartedAt, &finished, &r.Islands, &r.Converged, &r.Error); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// ListRuns returns all runs, most recent first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, grid_name, solver, started_at, finished_at, islands, converged, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.GridName, &r.Solver, &r.StartedAt, &finished, &r.Islands, &r.Converged, &r.Error); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Steps returns one run's iteration records ordered by island, round and
// iteration.
func (s *Store) Steps(runID string) ([]Step, error) {
	rows, err := s.db.Query(
		`SELECT run_id, island, round, iteration, error, timestamp
		 FROM steps WHERE run_id = ? ORDER BY island, round, iteration`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.RunID, &st.Island, &st.Round, &st.Iteration, &st.Error, &st.Timestamp); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}
