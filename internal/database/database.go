// Package database opens the configured relational backend and hands out
// the statement executor bound to it.
//
// It handles:
//   - selecting the dialect from config (postgres, sqlite, sqlserver)
//   - creating a pgx pool for PostgreSQL, wired with query tracing
//     (pgx tracelog) and optional New Relic instrumentation (nrpgx5), then
//     exposing it through database/sql
//   - opening SQLite and SQL Server through their database/sql drivers
//   - pool tuning, startup ping and shutdown
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/deppfellow/recordkeeper/internal/config"
	loggerConfig "github.com/deppfellow/recordkeeper/internal/logger"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Database wraps the *sql.DB every statement goes through.
//
// Pool is only set for PostgreSQL; it backs DB and is closed with it.
type Database struct {
	DB      *sql.DB
	Pool    *pgxpool.Pool
	Dialect sqlexec.Dialect

	executor *sqlexec.Executor
	log      *zerolog.Logger
}

// multiTracer chains several pgx query tracers behind the single
// ConnConfig.Tracer slot.
type multiTracer struct {
	tracers []any
}

func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryStart(context.Context, *pgx.Conn, pgx.TraceQueryStartData) context.Context
		}); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData)
		}); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

// DatabasePingTimeout is how long startup waits for the first ping, in
// seconds.
const DatabasePingTimeout = 10

// New opens the configured database, pings it and prepares the executor.
//
// loggerService may be nil; New Relic tracing is only attached to PostgreSQL
// when it carries an application.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	dialect, err := sqlexec.DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	database := &Database{Dialect: dialect, log: logger}

	if dialect.Name() == sqlexec.Postgres.Name() {
		pool, err := newPgxPool(cfg, logger, loggerService)
		if err != nil {
			return nil, err
		}
		database.Pool = pool
		database.DB = stdlib.OpenDBFromPool(pool)
	} else {
		db, err := sql.Open(dialect.DriverName(), cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name(), err)
		}
		database.DB = db
	}

	applyPoolSettings(database.DB, cfg.Database)

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()
	if err := database.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var slow time.Duration
	if cfg.Observability != nil {
		slow = cfg.Observability.Logging.SlowQueryThreshold
	}
	database.executor = sqlexec.New(database.DB, dialect,
		sqlexec.WithLogger(logger),
		sqlexec.WithSlowThreshold(slow),
	)

	logger.Info().Str("driver", dialect.Name()).Msg("connected to the database")

	return database, nil
}

func newPgxPool(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*pgxpool.Pool, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	if cfg.Database.MaxOpenConns > 0 {
		pgxPoolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		pgxPoolConfig.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Second
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		pgxPoolConfig.MaxConnIdleTime = time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second
	}

	if loggerService.GetApplication() != nil {
		pgxPoolConfig.ConnConfig.Tracer = nrpgx5.NewTracer()
	}

	// SQL echo is only wanted while developing locally.
	if cfg.Primary.Env == "local" {
		globalLevel := logger.GetLevel()
		pgxLogger := loggerConfig.NewPgxLogger(globalLevel)

		localTracer := &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(pgxLogger),
			LogLevel: tracelog.LogLevel(loggerConfig.GetPgxTraceLogLevel(globalLevel)),
		}

		if pgxPoolConfig.ConnConfig.Tracer != nil {
			pgxPoolConfig.ConnConfig.Tracer = &multiTracer{
				tracers: []any{pgxPoolConfig.ConnConfig.Tracer, localTracer},
			}
		} else {
			pgxPoolConfig.ConnConfig.Tracer = localTracer
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// applyPoolSettings tunes the database/sql pool. For PostgreSQL the pgx pool
// already enforces its own limits; these only bound the wrapper.
func applyPoolSettings(db *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	}
}

// Executor returns the statement executor bound to this database.
func (db *Database) Executor() *sqlexec.Executor {
	return db.executor
}

// Ping checks connectivity through a pooled connection.
func (db *Database) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

// Stats reports the database/sql pool counters.
func (db *Database) Stats() sql.DBStats {
	return db.DB.Stats()
}

// Close closes the database/sql handle and, for PostgreSQL, the pgx pool
// underneath it.
func (db *Database) Close() error {
	db.log.Info().Msg("closing database connection pool")

	err := db.DB.Close()
	if db.Pool != nil {
		db.Pool.Close()
	}
	return err
}
