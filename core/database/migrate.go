package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
)

const (
	migrationsDir = "migrations"
	readyTimeout  = 30 * time.Second
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// RunMigrations waits for Postgres and applies every pending embedded up
// migration. An up-to-date schema is not an error.
func RunMigrations(cfg coreconfig.DatabaseConfig) error {
	ctx := context.Background()
	dsn := URL(cfg)
	if err := WaitForPostgres(ctx, dsn, readyTimeout); err != nil {
		logger.Error(ctx, "db.migrate", "not_ready", logger.Err(err))
		return fmt.Errorf("database not ready: %w", err)
	}

	files := MigrationFiles()
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.Debug(ctx, "db.migrate", "resolve",
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := newMigrator(dsn)
	if err != nil {
		logger.Error(ctx, "db.migrate", "init.fail", logger.Err(err))
		return err
	}
	defer m.Close()

	from := version(m)
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "apply.fail",
			slog.Duration("duration", logger.Took(start)),
			logger.Err(err),
		)
		return fmt.Errorf("migration execution failed: %w", err)
	}
	to := version(m)

	logger.Info(ctx, "db.migrate", "summary",
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", countApplied(files, from, to)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func newMigrator(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return m, nil
}

// version is the applied schema version; zero when none is recorded.
func version(m *migrate.Migrate) uint64 {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return uint64(v)
}

// MigrationFiles lists the embedded up migrations in apply order.
func MigrationFiles() []string {
	names, err := fs.Glob(migrationFS, path.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return nil
	}
	for i, n := range names {
		names[i] = path.Base(n)
	}
	slices.Sort(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// countApplied counts files whose version lies in (from, to].
func countApplied(files []string, from, to uint64) int {
	n := 0
	for _, f := range files {
		if v := parseVersion(f); from < v && v <= to {
			n++
		}
	}
	return n
}
