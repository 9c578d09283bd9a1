package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// maxParams is the PostgreSQL limit on bind parameters per statement.
const maxParams = 65535

var (
	rowsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ree_db_rows_inserted_total",
		Help: "Rows committed by table",
	}, []string{"table"})

	insertDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ree_db_insert_duration_seconds",
		Help:    "Duration of insert transactions by table",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"table"})
)

// Store wraps the pgx connection pool.
type Store struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Open creates a pool for cfg and pings it. When debug logging is enabled
// (on logger or globally), every SQL statement is traced through logger.
func Open(ctx context.Context, cfg DatabaseConfig, logger zerolog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	if level := max(logger.GetLevel(), zerolog.GlobalLevel()); level <= zerolog.DebugLevel {
		poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(logger.With().Str("component", "pgx").Logger()),
			LogLevel: traceLevel(level),
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database %s: %w", cfg, err)
	}

	logger.Info().Str("database", cfg.String()).Msg("Connected to database")
	return &Store{Pool: pool, log: logger}, nil
}

func traceLevel(level zerolog.Level) tracelog.LogLevel {
	if level <= zerolog.TraceLevel {
		return tracelog.LogLevelTrace
	}
	return tracelog.LogLevelDebug
}

// Insert writes every row of t in one transaction and returns the number of
// rows affected. Statements are split so none exceeds the bind parameter
// limit. An empty table is a no-op.
func (s *Store) Insert(ctx context.Context, t Table) (int64, error) {
	stmts, err := insertStatements(t)
	if err != nil {
		return 0, err
	}
	if len(stmts) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() {
		insertDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())
	}()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var total int64
	for i, stmt := range stmts {
		tag, err := tx.Exec(ctx, stmt.sql, stmt.args...)
		if err != nil {
			return 0, fmt.Errorf("insert into %s (chunk %d/%d): %w", t.Name, i+1, len(stmts), err)
		}
		total += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	rowsInserted.WithLabelValues(t.Name).Add(float64(total))
	s.log.Info().
		Str("table", t.Name).
		Int64("rows", total).
		Int("statements", len(stmts)).
		Dur("duration", time.Since(start)).
		Msg("Rows inserted")
	return total, nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.log.Info().Msg("Closing database pool")
	s.Pool.Close()
}

type statement struct {
	sql  string
	args []any
}

// insertStatements builds parameterized multi-row INSERTs for t, each using
// at most maxParams placeholders.
func insertStatements(t Table) ([]statement, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, nil
	}

	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		pgx.Identifier(strings.Split(t.Name, ".")).Sanitize(),
		strings.Join(cols, ", "))

	perChunk := maxParams / len(t.Columns)
	var stmts []statement
	for lo := 0; lo < len(t.Rows); lo += perChunk {
		hi := min(lo+perChunk, len(t.Rows))

		var b strings.Builder
		b.WriteString(head)
		args := make([]any, 0, (hi-lo)*len(t.Columns))
		for i, row := range t.Rows[lo:hi] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			for j, v := range row {
				if j > 0 {
					b.WriteString(", ")
				}
				args = append(args, v)
				fmt.Fprintf(&b, "$%d", len(args))
			}
			b.WriteByte(')')
		}
		stmts = append(stmts, statement{sql: b.String(), args: args})
	}
	return stmts, nil
}
