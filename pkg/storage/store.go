// Package storage persists enriched rows into PostgreSQL.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/logging"
	"github.com/Sternrassler/swapi-loader/pkg/swapi"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_db_operation_duration_seconds",
		Help:    "Database operation duration by operation",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})

	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_db_errors_total",
		Help: "Database operation errors by operation",
	}, []string{"operation"})
)

// Config holds pool settings.
type Config struct {
	// MaxConns caps the pool size (0 keeps the pgx default).
	MaxConns int32

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration
}

// DefaultConfig returns the default pool settings.
func DefaultConfig() Config {
	return Config{
		MaxConns:       10,
		ConnectTimeout: 10 * time.Second,
	}
}

// Store is the persistence sink backed by a pgx pool.
type Store struct {
	pool      *pgxpool.Pool
	closeOnce sync.Once
	logger    zerolog.Logger
}

// New opens a pool for dsn and verifies the database is reachable.
func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logging.NewLogger("storage"),
	}, nil
}

// WithTransaction runs fn in a transaction, committing on success and
// rolling back on error or panic.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("commit: %w", cerr)
		}
	}()

	return fn(tx)
}

// ResetSchema drops and recreates the table. Called once before a run.
func (s *Store) ResetSchema(ctx context.Context) error {
	defer observe("reset_schema", time.Now())

	err := s.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, dropTableSQL()); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
		if _, err := tx.Exec(ctx, createTableSQL()); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		return nil
	})
	if err != nil {
		operationErrors.WithLabelValues("reset_schema").Inc()
		return fmt.Errorf("reset schema: %w", err)
	}

	s.logger.Info().Str("table", TableName).Msg("Schema reset")
	return nil
}

// InsertBatch writes rows in one transaction: all of them or none.
// An empty batch is a successful no-op.
func (s *Store) InsertBatch(ctx context.Context, rows []swapi.Row) error {
	if len(rows) == 0 {
		s.logger.Debug().Msg("Empty batch, nothing to insert")
		return nil
	}
	defer observe("insert_batch", time.Now())

	err := s.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, group := range splitRows(rows, maxRowsPerStatement) {
			query, args := insertSQL(group)
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		operationErrors.WithLabelValues("insert_batch").Inc()
		return fmt.Errorf("insert %d rows (first id %d): %w", len(rows), rows[0].ID, err)
	}

	s.logger.Debug().Int("rows", len(rows)).Int("first_id", rows[0].ID).Msg("Batch inserted")
	return nil
}

// Rows returns every stored row ordered by id.
func (s *Store) Rows(ctx context.Context) ([]swapi.Row, error) {
	defer observe("select_rows", time.Now())

	query, args := selectAllSQL()
	pgRows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		operationErrors.WithLabelValues("select_rows").Inc()
		return nil, fmt.Errorf("query rows: %w", err)
	}

	rows, err := pgx.CollectRows(pgRows, pgx.RowToStructByName[swapi.Row])
	if err != nil {
		operationErrors.WithLabelValues("select_rows").Inc()
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	return rows, nil
}

// Close releases the pool. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.pool.Close()
		s.logger.Debug().Msg("Connection pool closed")
	})
}

func observe(operation string, start time.Time) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
