package config_test

import (
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediatheque-go/lending/config"
)

func Test_Load_Defaults(t *testing.T) {
	// act
	cfg, err := config.Load()

	// assert
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.BorrowPeriod)
	assert.Equal(t, 3, cfg.DefaultMaxLoans)
	assert.Equal(t, 5*time.Minute, cfg.StandingCacheTTL)
	assert.Equal(t, int32(8), cfg.Pool.MaxConns)
	assert.False(t, cfg.UsesPostgres())
}

func Test_Load_FromEnvironment(t *testing.T) {
	// arrange
	t.Setenv("LENDING_DB_DRIVER", config.DriverPGXPool)
	t.Setenv("LENDING_BORROW_PERIOD", "336h")
	t.Setenv("LENDING_DEFAULT_MAX_LOANS", "5")
	t.Setenv("LENDING_LOG_LEVEL", "debug")
	t.Setenv("LENDING_POOL_MAX_CONNS", "32")

	// act
	cfg, err := config.Load()

	// assert
	require.NoError(t, err)
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t, 14*24*time.Hour, cfg.BorrowPeriod)
	assert.Equal(t, 5, cfg.DefaultMaxLoans)
	assert.Equal(t, int32(32), cfg.Pool.MaxConns)

	level, err := cfg.SlogLevel()
	assert.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func Test_Load_RejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name        string
		key         string
		value       string
		expectedErr error
	}{
		{name: "unknown driver", key: "LENDING_DB_DRIVER", value: "mysql", expectedErr: config.ErrUnsupportedDriver},
		{name: "zero loan limit", key: "LENDING_DEFAULT_MAX_LOANS", value: "0", expectedErr: config.ErrInvalidConfig},
		{name: "negative borrow period", key: "LENDING_BORROW_PERIOD", value: "-1h", expectedErr: config.ErrInvalidConfig},
		{name: "unparsable duration", key: "LENDING_STANDING_CACHE_TTL", value: "soon", expectedErr: config.ErrInvalidConfig},
		{name: "unknown log level", key: "LENDING_LOG_LEVEL", value: "chatty", expectedErr: config.ErrInvalidConfig},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := config.Load()

			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_SQLiteDSN_EnablesForeignKeys(t *testing.T) {
	dsn := config.SQLiteDSN("/tmp/lending.db")

	path, rawQuery, found := strings.Cut(dsn, "?")
	require.True(t, found)
	assert.Equal(t, "/tmp/lending.db", path)

	query, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	assert.Contains(t, query["_pragma"], "foreign_keys(1)")
	assert.Contains(t, query["_pragma"], "busy_timeout(5000)")
}

func Test_PostgresPGXPoolConfig_AppliesPoolSizing(t *testing.T) {
	pool := config.PoolConfig{MaxConns: 12, MinConns: 3, ConnectTimeout: time.Second}

	dbConfig, err := config.PostgresPGXPoolConfig("postgres://u:p@localhost:5432/lending", pool)

	require.NoError(t, err)
	assert.Equal(t, int32(12), dbConfig.MaxConns)
	assert.Equal(t, int32(3), dbConfig.MinConns)
	assert.Equal(t, time.Second, dbConfig.ConnConfig.ConnectTimeout)
}

func Test_Load_MemoryDriver(t *testing.T) {
	// arrange
	t.Setenv("LENDING_DB_DRIVER", config.DriverMemory)

	// act
	cfg, err := config.Load()

	// assert
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, cfg.DBDriver)
	assert.False(t, cfg.UsesPostgres())
}
