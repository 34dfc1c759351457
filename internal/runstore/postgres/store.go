// Package postgres provides a Postgres-backed pipeline run store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/laborsync/internal/pipeline"
	"github.com/JakeFAU/laborsync/internal/runstore"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool for run history.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store writes pipeline runs into Postgres.
type Store struct {
	pool  dbPool
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(pool, cfg.Table)
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "pipeline_runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateRun records a newly started run.
func (s *Store) CreateRun(ctx context.Context, run pipeline.Run) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, kind, status, started_at) VALUES ($1, $2, $3, $4)`,
		s.table,
	)
	if _, err := s.pool.Exec(ctx, query, run.ID, string(run.Kind), string(run.Status), run.Started); err != nil {
		return fmt.Errorf("insert run %q: %w", run.ID, err)
	}
	return nil
}

// FinishRun marks a run terminal with its status and result detail.
func (s *Store) FinishRun(ctx context.Context, id string, status pipeline.RunStatus, finished time.Time, detail []byte) error {
	query := fmt.Sprintf(
		`UPDATE %s SET status = $2, finished_at = $3, detail = $4 WHERE id = $1`,
		s.table,
	)
	tag, err := s.pool.Exec(ctx, query, id, string(status), finished, detail)
	if err != nil {
		return fmt.Errorf("finish run %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return runstore.ErrNotFound
	}
	return nil
}

// GetRun returns one run by ID, or runstore.ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (pipeline.Run, error) {
	query := fmt.Sprintf(
		`SELECT id, kind, status, started_at, finished_at, detail FROM %s WHERE id = $1`,
		s.table,
	)
	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pipeline.Run{}, runstore.ErrNotFound
		}
		return pipeline.Run{}, fmt.Errorf("get run %q: %w", id, err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]pipeline.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(
		`SELECT id, kind, status, started_at, finished_at, detail FROM %s ORDER BY started_at DESC LIMIT $1`,
		s.table,
	)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []pipeline.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (pipeline.Run, error) {
	var (
		run      pipeline.Run
		kind     string
		status   string
		finished *time.Time
	)
	if err := row.Scan(&run.ID, &kind, &status, &run.Started, &finished, &run.Detail); err != nil {
		return pipeline.Run{}, err
	}
	run.Kind = pipeline.RunKind(kind)
	run.Status = pipeline.RunStatus(status)
	run.Finished = finished
	return run, nil
}
