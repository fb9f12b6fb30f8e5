// Package cmd defines and implements the CLI commands for the seo-checker
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rankwatch/seo-checker/internal/analyzer"
	"github.com/rankwatch/seo-checker/internal/app"
	"github.com/rankwatch/seo-checker/internal/config"
	"github.com/rankwatch/seo-checker/internal/database"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application surface commands use. Keeping it an interface
// lets tests inject a mock app through the newApp factory.
type App interface {
	Close() error
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetStore() database.Store
	GetAnalyzer() *analyzer.Analyzer
}

// newApp is the application factory. It is a variable so tests can replace
// it with a mock factory.
var newApp func(ctx context.Context, configPath string) (App, error) = func(ctx context.Context, configPath string) (App, error) {
	return app.NewApp(ctx, configPath)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seo-checker",
		Short: "Aggregates SEO metrics for target domains.",
		Long: `seo-checker collects authority, traffic, and backlink metrics for
target domains from the Ahrefs and SimilarWeb APIs, stores them in SQLite or
PostgreSQL, and serves them over an HTTP API.`,

		// Runs before the subcommand's RunE: build and inject the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				if err := appInstance.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
				}
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (environment variables take precedence)")

	cmd.AddCommand(newInitDBCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. A non-zero exit on failure lets the
// container's init-then-serve shell composition stop at the failed step.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seo-checker: %v\n", err)
		os.Exit(1)
	}
}
