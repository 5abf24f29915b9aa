// Package cli implements paradoxctl, the operator tool for schema
// migrations, admin provisioning and question seeding.
package cli

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/database"
	"github.com/stemsi/paradox-backend/internal/logger"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envMigrations := os.Getenv("MIGRATIONS_PATH")
	if envMigrations == "" {
		envMigrations = "migrations"
	}

	var migrationsPath string
	cmd := &cobra.Command{
		Use:          "paradoxctl",
		Short:        "Operator tool for the Terminal Paradox backend",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&migrationsPath, "migrations", envMigrations, "path to SQL migration files")

	cmd.AddCommand(NewMigrateCmd(&migrationsPath))
	cmd.AddCommand(NewCreateAdminCmd())
	cmd.AddCommand(NewSeedQuestionsCmd())
	return cmd
}

// env bundles what every database-backed command needs.
type env struct {
	cfg  *config.Config
	log  zerolog.Logger
	pool *pgxpool.Pool
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, pool: pool}, nil
}

func (e *env) Close() {
	e.pool.Close()
}
