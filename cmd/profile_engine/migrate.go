package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply, roll back or report schema migrations",
	Long:      `Run the embedded SQL migrations against DATABASE_URL. "up" applies all pending migrations, "down" rolls back the latest one and "status" lists them.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{db.MigrateUp, db.MigrateDown, db.MigrateStatus},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	direction := db.MigrateUp
	if len(args) == 1 {
		direction = args[0]
	}

	cfg, err := loadServiceConfig()
	if err != nil {
		return err
	}
	if err := requireDatabase(cfg); err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	return db.Migrate(cmd.Context(), cfg.DatabaseURL, direction, log)
}
