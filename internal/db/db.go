package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quantmind-br/gnushark/internal/core"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("run not found")

// DB represents the database with separate read/write pools
type DB struct {
	write *sql.DB
	read  *sql.DB
	path  string
}

// New creates a new database instance with separate read/write pools
func New(ctx context.Context, dbPath string) (*DB, error) {
	// Connection string with pragmas
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)

	// Write pool: MUST be 1 connection only
	write, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open write connection: %w", err)
	}
	write.SetMaxOpenConns(1)
	write.SetMaxIdleConns(1)
	write.SetConnMaxIdleTime(time.Minute)
	write.SetConnMaxLifetime(time.Hour)

	read, err := sql.Open("sqlite", connStr)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read connection: %w", err)
	}
	read.SetMaxOpenConns(4)
	read.SetMaxIdleConns(2)
	read.SetConnMaxIdleTime(time.Minute)
	read.SetConnMaxLifetime(time.Hour)

	db := &DB{
		write: write,
		read:  read,
		path:  dbPath,
	}

	if err := db.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Path returns the database file
func (db *DB) Path() string {
	return db.path
}

// Close closes both database connections
func (db *DB) Close() error {
	writeErr := db.write.Close()
	readErr := db.read.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    capability TEXT NOT NULL,
    source TEXT NOT NULL,
    packages TEXT NOT NULL,
    mode TEXT NOT NULL,
    status TEXT NOT NULL,
    log_path TEXT NOT NULL DEFAULT '',
    started_at DATETIME NOT NULL,
    finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_capability ON runs(capability);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	if _, err := db.write.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Create inserts a run record
func (db *DB) Create(ctx context.Context, run *core.RunRecord) error {
	packagesJSON, err := json.Marshal(run.Packages)
	if err != nil {
		return fmt.Errorf("marshal packages: %w", err)
	}

	query := `
INSERT INTO runs (run_id, capability, source, packages, mode, status, log_path, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}

	_, err = db.write.ExecContext(ctx, query,
		run.ID,
		run.Capability,
		string(run.Source),
		string(packagesJSON),
		run.Mode,
		string(run.Status),
		run.LogPath,
		run.StartedAt.UTC(),
		finished,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish records the terminal status of a run
func (db *DB) Finish(ctx context.Context, runID string, status core.RunStatus, logPath string, at time.Time) error {
	query := "UPDATE runs SET status = ?, log_path = CASE WHEN ? = '' THEN log_path ELSE ? END, finished_at = ? WHERE run_id = ?"

	result, err := db.write.ExecContext(ctx, query, string(status), logPath, logPath, at.UTC(), runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

// Get retrieves a run by id
func (db *DB) Get(ctx context.Context, runID string) (*core.RunRecord, error) {
	query := `
SELECT run_id, capability, source, packages, mode, status, log_path, started_at, finished_at
FROM runs WHERE run_id = ?
	`

	run, err := scanRun(db.read.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first. limit <= 0 returns every run.
func (db *DB) List(ctx context.Context, limit int) ([]core.RunRecord, error) {
	query := `
SELECT run_id, capability, source, packages, mode, status, log_path, started_at, finished_at
FROM runs ORDER BY started_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []core.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.RunRecord, error) {
	var (
		run          core.RunRecord
		source       string
		status       string
		packagesJSON string
		finished     sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.Capability,
		&source,
		&packagesJSON,
		&run.Mode,
		&status,
		&run.LogPath,
		&run.StartedAt,
		&finished,
	)
	if err != nil {
		return nil, err
	}

	run.Source = core.Source(source)
	run.Status = core.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(packagesJSON), &run.Packages); err != nil {
		return nil, fmt.Errorf("unmarshal packages: %w", err)
	}
	return &run, nil
}
