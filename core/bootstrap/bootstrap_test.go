package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/telegram/state"
)

func noLogger(*coreconfig.Config) error { return nil }

func configWith(backend string) *coreconfig.Config {
	cfg := &coreconfig.Config{}
	cfg.Session.Backend = backend
	cfg.Session.Prefix = "test:"
	return cfg
}

func TestRunRejectsNilConfig(t *testing.T) {
	_, err := Run(Options{})
	assert.Error(t, err)
}

func TestRunLoggerFailure(t *testing.T) {
	_, err := Run(Options{
		Config:     configWith(coreconfig.SessionBackendMemory),
		LoggerInit: func(*coreconfig.Config) error { return errors.New("no log dir") },
	})
	assert.ErrorContains(t, err, "logger init failed")
}

func TestRunMemoryBackend(t *testing.T) {
	res, err := Run(Options{Config: configWith(coreconfig.SessionBackendMemory), LoggerInit: noLogger})
	require.NoError(t, err)
	require.NotNil(t, res.Sessions)
	assert.NoError(t, res.Close())
}

func TestRunRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := configWith(coreconfig.SessionBackendRedis)
	cfg.Redis.Addr = mr.Addr()

	res, err := Run(Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	defer res.Close()

	require.NoError(t, res.Sessions.Set(context.Background(), 5, "HANDLE_CART"))
	got, err := mr.Get("test:5")
	require.NoError(t, err)
	assert.Equal(t, "HANDLE_CART", got)
}

func TestRunRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg := configWith(coreconfig.SessionBackendRedis)

	_, err := Run(Options{
		Config:     cfg,
		LoggerInit: noLogger,
		NewRedis: func(coreconfig.RedisConfig) *redis.Client {
			return redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
		},
	})
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestRunPostgresBackend(t *testing.T) {
	var migrated bool
	res, err := Run(Options{
		Config:     configWith(coreconfig.SessionBackendPostgres),
		LoggerInit: noLogger,
		Connect: func(coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			return sqlx.Open("sqlite", ":memory:")
		},
		Migrate: func(coreconfig.DatabaseConfig) error {
			migrated = true
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.IsType(t, &state.SQLStore{}, res.Sessions)
	assert.NoError(t, res.Close())
}

func TestRunPostgresMigrationFailureCloses(t *testing.T) {
	var db *sqlx.DB
	_, err := Run(Options{
		Config:     configWith(coreconfig.SessionBackendPostgres),
		LoggerInit: noLogger,
		Connect: func(coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			var err error
			db, err = sqlx.Open("sqlite", ":memory:")
			return db, err
		},
		Migrate: func(coreconfig.DatabaseConfig) error { return errors.New("dirty database") },
	})
	assert.ErrorContains(t, err, "migrations failed")
	require.NotNil(t, db)
	assert.Error(t, db.Ping())
}
