// Package results keeps a local SQLite history of launcher runs.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/inference-sim/vllm-launcher/launcher"
)

// ErrNotFound is returned when a run id has no record.
var ErrNotFound = errors.New("run not found")

// Run is one persisted benchmark result.
type Run struct {
	ID               string
	RunAt            time.Time
	Engine           string
	Mode             string
	Model            string
	TensorParallel   int
	PipelineParallel int
	DataParallel     int
	NumPrompts       int
	TotalTokens      int
	ElapsedSeconds   float64
	TokensPerSecond  float64
}

// RunFromReport converts a launcher report into a record for engine.
func RunFromReport(r *launcher.Report, engine string) *Run {
	return &Run{
		Engine:           engine,
		Mode:             string(r.Config.Mode),
		Model:            r.Config.Model,
		TensorParallel:   r.Config.TensorParallelSize,
		PipelineParallel: r.Config.PipelineParallelSize,
		DataParallel:     r.Config.DataParallelSize,
		NumPrompts:       r.NumPrompts,
		TotalTokens:      r.TotalTokens,
		ElapsedSeconds:   r.Elapsed.Seconds(),
		TokensPerSecond:  r.Throughput(),
	}
}

const migrationRuns = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	run_at DATETIME NOT NULL,
	engine TEXT NOT NULL,
	mode TEXT NOT NULL,
	model TEXT NOT NULL,
	tensor_parallel INTEGER NOT NULL,
	pipeline_parallel INTEGER NOT NULL,
	data_parallel INTEGER NOT NULL,
	num_prompts INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	elapsed_seconds REAL NOT NULL,
	tokens_per_second REAL NOT NULL
)`

const migrationIndexes = `CREATE INDEX IF NOT EXISTS idx_runs_run_at ON runs(run_at)`

// Store handles run persistence.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and runs migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping results database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for i, m := range []string{migrationRuns, migrationIndexes} {
		if _, err := db.ExecContext(ctx, m); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts run, assigning an id and timestamp when unset.
func (s *Store) Create(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.RunAt.IsZero() {
		run.RunAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, run_at, engine, mode, model, tensor_parallel, pipeline_parallel,
			data_parallel, num_prompts, total_tokens, elapsed_seconds, tokens_per_second)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunAt, run.Engine, run.Mode, run.Model, run.TensorParallel, run.PipelineParallel,
		run.DataParallel, run.NumPrompts, run.TotalTokens, run.ElapsedSeconds, run.TokensPerSecond,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT id, run_at, engine, mode, model, tensor_parallel, pipeline_parallel,
		data_parallel, num_prompts, total_tokens, elapsed_seconds, tokens_per_second
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.RunAt, &r.Engine, &r.Mode, &r.Model, &r.TensorParallel, &r.PipelineParallel,
		&r.DataParallel, &r.NumPrompts, &r.TotalTokens, &r.ElapsedSeconds, &r.TokensPerSecond)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := selectRun + ` ORDER BY run_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
