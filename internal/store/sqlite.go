package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"option-screener/internal/errors"
)

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-based run store, creating the parent
// directory when needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per screening run
	CREATE TABLE IF NOT EXISTS screen_runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		spot REAL NOT NULL,
		rank_key TEXT NOT NULL,
		reverse INTEGER NOT NULL DEFAULT 0,
		top_n INTEGER NOT NULL,
		elapsed_ns INTEGER NOT NULL DEFAULT 0,
		accepted INTEGER NOT NULL DEFAULT 0,
		stats TEXT NOT NULL,
		results TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_screen_runs_symbol ON screen_runs(symbol, created_at);
	CREATE INDEX IF NOT EXISTS idx_screen_runs_created ON screen_runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun saves a screening run. Saving the same ID twice replaces it.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode run stats: %w", err)
	}
	results, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to encode run results: %w", err)
	}

	reverse := 0
	if run.Reverse {
		reverse = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO screen_runs
			(id, created_at, symbol, spot, rank_key, reverse, top_n, elapsed_ns, accepted, stats, results)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt.UTC(), run.Symbol, run.Spot, run.RankKey, reverse, run.TopN,
		int64(run.Elapsed), run.Accepted(), string(stats), string(results))
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w: %w", run.ID, errors.ErrDatabaseError, err)
	}
	return nil
}

// GetRuns lists runs newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := "SELECT id, created_at, symbol, spot, rank_key, reverse, top_n, elapsed_ns, stats, results FROM screen_runs WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, symbol, spot, rank_key, reverse, top_n, elapsed_ns, stats, results
		FROM screen_runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrRunNotFound, "run %s", id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var reverse int
	var elapsedNs int64
	var statsJSON, resultsJSON string

	err := sc.Scan(&r.ID, &r.CreatedAt, &r.Symbol, &r.Spot, &r.RankKey, &reverse, &r.TopN, &elapsedNs, &statsJSON, &resultsJSON)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	r.Reverse = reverse == 1
	r.Elapsed = time.Duration(elapsedNs)
	if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats for run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &r.Results); err != nil {
		return nil, fmt.Errorf("failed to decode results for run %s: %w", r.ID, err)
	}
	return &r, nil
}
