package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	coreconfig "github.com/m3rciful/reportbot/core/config"
	"github.com/m3rciful/reportbot/core/logger"
)

// migrateLog routes golang-migrate's own progress lines to the db.migrate logger.
type migrateLog struct{}

func (migrateLog) Printf(format string, v ...interface{}) {
	logger.MIG.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("event", "migrate.progress"))
}

func (migrateLog) Verbose() bool { return logger.ShouldSampleDebug() }

// RunMigrations brings the journal schema up to the latest version found in
// cfg.MigrationsDir. Cancelling ctx stops after the migration in flight.
func RunMigrations(ctx context.Context, cfg coreconfig.DatabaseConfig) error {
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := WaitForPostgres(waitCtx, DSN(cfg), 2*time.Second)
	cancel()
	if err != nil {
		logger.MIG.Error("db not ready", slog.String("event", "migrate.wait"), slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := listMigrationFiles(dir)
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.MIG.Debug("migrations found",
		slog.String("event", "migrate.resolve"),
		slog.String("path", dir),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), URL(cfg))
	if err != nil {
		logger.MIG.Error("migrate init failed", slog.String("event", "migrate.init"), slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	m.Log = migrateLog{}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "migrate.apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to, _, _ := m.Version()
	logger.MIG.Info("migrations applied",
		slog.String("event", "migrate.summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(selectApplied(files, uint64(from), uint64(to)))),
		slog.Duration("duration", took),
	)
	return nil
}

// listMigrationFiles returns the sorted *.up.sql names in dir.
func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// selectApplied returns the files whose numeric prefix lies in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		if v, err := strconv.ParseUint(prefix, 10, 64); err == nil && v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
