package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/usergate/internal/config"
	"github.com/BradenHooton/usergate/internal/database"
)

var migrateTimeout time.Duration

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Run the embedded database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().DurationVar(&migrateTimeout, "timeout", 2*time.Minute, "time allowed for the migration run")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := "up"
	if len(args) == 1 {
		command = args[0]
	}

	logger := newLogger("info")

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()

	db, err := database.Open(ctx, dbCfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Migrate(ctx, command)
}
