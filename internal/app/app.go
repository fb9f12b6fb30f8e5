// Package app wires configuration, logging, storage, and the provider
// clients into one dependency container shared by the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rankwatch/seo-checker/internal/analyzer"
	"github.com/rankwatch/seo-checker/internal/clock/system"
	"github.com/rankwatch/seo-checker/internal/config"
	"github.com/rankwatch/seo-checker/internal/database"
	"github.com/rankwatch/seo-checker/internal/id/uuid"
	"github.com/rankwatch/seo-checker/internal/logging"
	"github.com/rankwatch/seo-checker/internal/seo/ahrefs"
	"github.com/rankwatch/seo-checker/internal/seo/similarweb"
)

// App holds the fully wired service dependencies.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    database.Store
	analyzer *analyzer.Analyzer
}

// NewApp loads configuration and constructs every dependency. The store is
// pinged during construction so commands fail fast on an unreachable
// database.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := newStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	ahrefsClient := ahrefs.New(ahrefs.Config{Token: cfg.Ahrefs.Token}, logger.Named("ahrefs"))
	similarwebClient := similarweb.New(similarweb.Config{APIKey: cfg.SimilarWeb.APIKey}, logger.Named("similarweb"))

	svc := analyzer.New(
		store,
		ahrefsClient,
		similarwebClient,
		system.New(),
		uuid.NewGenerator(),
		logger.Named("analyzer"),
		analyzer.Config{},
	)

	logger.Info("application wired",
		zap.String("db_type", cfg.Database.Type),
		zap.Int("port", cfg.Server.Port),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		analyzer: svc,
	}, nil
}

func newStore(ctx context.Context, cfg config.DatabaseConfig) (database.Store, error) {
	switch cfg.Type {
	case config.DBTypeSQLite:
		store, err := database.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.DBTypePostgres:
		store, err := database.NewPostgresStore(ctx, database.PostgresConfig{DSN: cfg.Postgres.DSN()})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config { return a.cfg }

// GetLogger returns the root logger.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// GetStore returns the persistence layer.
func (a *App) GetStore() database.Store { return a.store }

// GetAnalyzer returns the aggregation service.
func (a *App) GetAnalyzer() *analyzer.Analyzer { return a.analyzer }

// Close releases the store and flushes buffered log entries.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.logger != nil {
		// Sync on stderr/stdout returns ENOTTY-style errors; ignore them.
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
