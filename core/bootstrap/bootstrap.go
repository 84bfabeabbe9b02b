// Package bootstrap brings up the infrastructure the bot needs before it can
// take updates: the logger and the session store backend.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
)

const pingTimeout = 5 * time.Second

// Options control the bootstrap pipeline. Nil hooks use the real implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(coreconfig.DatabaseConfig) error
	NewRedis   func(coreconfig.RedisConfig) *redis.Client
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Sessions state.Store
	closers  []func() error
}

// Close releases the session backend connections.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var result *multierror.Error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	r.closers = nil
	return result.ErrorOrNil()
}

// Run initializes the logger and the configured session backend.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	var err error
	switch opts.Config.Session.Backend {
	case coreconfig.SessionBackendPostgres:
		err = res.openPostgres(opts)
	case coreconfig.SessionBackendMemory:
		res.Sessions = state.NewMemoryStore()
	default:
		err = res.openRedis(opts)
	}
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	logger.Info(context.Background(), "session", "backend.ready",
		slog.String("backend", opts.Config.Session.Backend),
	)
	return res, nil
}

func (r *Result) openRedis(opts Options) error {
	newRedis := opts.NewRedis
	if newRedis == nil {
		newRedis = NewRedisClient
	}
	cfg := opts.Config
	store := state.NewRedisStore(newRedis(cfg.Redis),
		state.WithPrefix(cfg.Session.Prefix),
		state.WithTTL(time.Duration(cfg.Session.TTLSeconds)*time.Second),
	)
	r.closers = append(r.closers, store.Close)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("bootstrap: redis ping failed: %w", err)
	}
	r.Sessions = store
	return nil
}

func (r *Result) openPostgres(opts Options) error {
	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}

	db, err := connect(opts.Config.Database)
	if err != nil {
		return fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	store := state.NewSQLStore(db)
	r.closers = append(r.closers, store.Close)

	if err := migrate(opts.Config.Database); err != nil {
		return fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	r.Sessions = store
	return nil
}

// NewRedisClient builds a go-redis client from configuration.
func NewRedisClient(cfg coreconfig.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
