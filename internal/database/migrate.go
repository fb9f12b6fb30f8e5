package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/rankwatch/seo-checker/internal/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations for the configured backend.
// It is idempotent: an already current schema is not an error.
func Migrate(cfg config.DatabaseConfig, logger *zap.Logger) error {
	switch cfg.Type {
	case config.DBTypeSQLite:
		return migrateSQLite(cfg.SQLitePath, logger)
	case config.DBTypePostgres:
		return migratePostgres(cfg.Postgres.DSN(), logger)
	default:
		return fmt.Errorf("unknown database type %q", cfg.Type)
	}
}

func migrateSQLite(path string, logger *zap.Logger) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
		logger.Debug("ensured sqlite directory", zap.String("dir", dir))
	}

	db, err := sql.Open("sqlite3", SQLiteDSN(path))
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("init sqlite migration driver: %w", err)
	}
	return runMigrations("migrations/sqlite", "sqlite3", driver, logger)
}

func migratePostgres(dsn string, logger *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open postgres database: %w", err)
	}

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("init postgres migration driver: %w", err)
	}
	return runMigrations("migrations/postgres", "pgx", driver, logger)
}

func runMigrations(dir, databaseName string, driver migratedb.Driver, logger *zap.Logger) error {
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, databaseName, driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("closing migration source failed", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("closing migration database failed", zap.Error(dbErr))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("database schema already up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("database schema created successfully")
	return nil
}
