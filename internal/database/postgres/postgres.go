// Package postgres keeps an optional copy of attendance records and the
// history of training runs in PostgreSQL. The CSV ledger stays the source of
// truth; nothing here is read back by the recognition pipeline.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
)

const (
	connectTimeout  = 10 * time.Second
	migrateTimeout  = time.Minute
	connMaxLifetime = time.Hour
	connMaxIdleTime = 10 * time.Minute
)

// Pool wraps the mirror's connection pool.
type Pool struct {
	db *sql.DB
}

// Open connects to the database at cfg.URL and verifies the connection.
func Open(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("postgres: DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Exec runs a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: exec: %w", err)
	}
	return res, nil
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	return rows, nil
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Initialize opens the mirror database, brings its schema up to date and
// registers the attendance and training-run repositories. The caller closes
// the returned pool on shutdown.
func Initialize(cfg *config.DatabaseConfig) (*Pool, error) {
	pool, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	attendance := NewAttendanceRepository(pool)
	runs := NewTrainingRunRepository(pool)
	database.RegisterPostgresBackend(
		func() database.AttendanceWriter { return attendance },
		func() database.TrainingRunWriter { return runs },
	)
	return pool, nil
}
