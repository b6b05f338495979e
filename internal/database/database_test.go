package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/deppfellow/recordkeeper/internal/config"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, driver, url string) *config.Config {
	t.Helper()
	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Database: config.DatabaseConfig{
			Driver:       driver,
			URL:          url,
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Observability: config.DefaultObservabilityConfig(),
	}
}

func TestNewSQLite(t *testing.T) {
	logger := zerolog.Nop()
	url := "file:" + filepath.Join(t.TempDir(), "records.db") + "?_pragma=foreign_keys(1)"

	db, err := New(testConfig(t, "sqlite", url), &logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, sqlexec.SQLite.Name(), db.Dialect.Name())
	assert.Nil(t, db.Pool)
	require.NotNil(t, db.Executor())
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)

	rows, err := db.Executor().Execute(context.Background(), "SELECT 1 AS one")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	v, ok := rows[0].Get("one")
	require.True(t, ok)
	n, ok := v.AsInt64()
	require.True(t, ok)
	assert.Equal(t, int64(1), n)

	require.NoError(t, db.Ping(context.Background()))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	logger := zerolog.Nop()

	_, err := New(testConfig(t, "oracle", "whatever"), &logger, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	logger := zerolog.Nop()

	// The parent directory does not exist, so the file cannot be created.
	url := "file:" + filepath.Join(t.TempDir(), "missing", "records.db")
	_, err := New(testConfig(t, "sqlite", url), &logger, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
}
