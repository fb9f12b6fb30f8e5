package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rankwatch/seo-checker/internal/database"
)

// newInitDBCmd creates the 'init-db' subcommand. It applies all pending
// schema migrations to the configured database and exits; the container runs
// it once before starting the API server.
func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Creates or migrates the database schema",
		Long: `Applies all pending schema migrations to the configured database.
Safe to run repeatedly; an up-to-date schema is a no-op.`,

		RunE: runInitDBCommand,
	}
}

func runInitDBCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()
	cfg := appInstance.GetConfig()

	if err := database.Migrate(cfg.Database, logger); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	logger.Info("database initialized", zap.String("db_type", cfg.Database.Type))
	return nil
}
