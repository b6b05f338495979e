// Package testdb builds application servers backed by a throwaway database
// for tests.
package testdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deppfellow/recordkeeper/internal/config"
	"github.com/deppfellow/recordkeeper/internal/server"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// PostgresURLEnv names the variable that enables the PostgreSQL tests.
const PostgresURLEnv = "RECORDS_TEST_POSTGRES_URL"

var teams = []string{
	`INSERT INTO teams (team_id, team_name) VALUES ('T1', 'Tigers')`,
	`INSERT INTO teams (team_id, team_name) VALUES ('T2', 'Wolves')`,
}

// Schema returns the statements that create the teams and records tables.
func Schema(dialect sqlexec.Dialect) []string {
	switch dialect.Name() {
	case sqlexec.Postgres.Name():
		return []string{
			`DROP TABLE IF EXISTS records`,
			`DROP TABLE IF EXISTS teams`,
			`CREATE TABLE teams (
				team_id   VARCHAR(50) PRIMARY KEY,
				team_name VARCHAR(100) NOT NULL
			)`,
			`CREATE TABLE records (
				record_id        BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
				team_id          VARCHAR(50) NOT NULL REFERENCES teams (team_id),
				transaction_date DATE NOT NULL,
				amount           NUMERIC(12, 2) NOT NULL,
				description      VARCHAR(500)
			)`,
		}
	case sqlexec.SQLServer.Name():
		return []string{
			`IF OBJECT_ID('records', 'U') IS NOT NULL DROP TABLE records`,
			`IF OBJECT_ID('teams', 'U') IS NOT NULL DROP TABLE teams`,
			`CREATE TABLE teams (
				team_id   VARCHAR(50) PRIMARY KEY,
				team_name NVARCHAR(100) NOT NULL
			)`,
			`CREATE TABLE records (
				record_id        BIGINT IDENTITY(1, 1) PRIMARY KEY,
				team_id          VARCHAR(50) NOT NULL REFERENCES teams (team_id),
				transaction_date DATE NOT NULL,
				amount           DECIMAL(12, 2) NOT NULL,
				description      NVARCHAR(500)
			)`,
		}
	default:
		return []string{
			`CREATE TABLE teams (
				team_id   TEXT PRIMARY KEY,
				team_name TEXT NOT NULL
			)`,
			`CREATE TABLE records (
				record_id        INTEGER PRIMARY KEY AUTOINCREMENT,
				team_id          TEXT NOT NULL REFERENCES teams (team_id),
				transaction_date DATE NOT NULL,
				amount           DECIMAL(12, 2) NOT NULL,
				description      TEXT
			)`,
		}
	}
}

// Config returns a test configuration for driver and url.
func Config(driver, url string) *config.Config {
	obs := config.DefaultObservabilityConfig()
	obs.Environment = "test"

	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "0",
			ReadTimeout:        5,
			WriteTimeout:       5,
			IdleTimeout:        5,
			CORSAllowedOrigins: []string{"*"},
			QueryTimeout:       5 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:       driver,
			URL:          url,
			MaxOpenConns: 4,
			MaxIdleConns: 4,
		},
		Observability: obs,
	}
}

// NewSQLiteServer opens a server on a fresh SQLite file with the schema
// applied and teams T1 and T2 seeded.
func NewSQLiteServer(t testing.TB) *server.Server {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "records.db") + "?_pragma=foreign_keys(1)"
	return NewServer(t, Config("sqlite", dsn))
}

// NewPostgresServer is NewSQLiteServer against the database named by
// RECORDS_TEST_POSTGRES_URL. The test is skipped when it is unset.
func NewPostgresServer(t testing.TB) *server.Server {
	t.Helper()

	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}
	return NewServer(t, Config("postgres", url))
}

// NewServer opens cfg's database, recreates the schema and seeds the teams.
// The database is closed when the test ends.
func NewServer(t testing.TB, cfg *config.Config) *server.Server {
	t.Helper()

	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.WarnLevel)

	s, err := server.New(cfg, &logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DB.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range append(Schema(s.DB.Dialect), teams...) {
		_, err := s.DB.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return s
}
