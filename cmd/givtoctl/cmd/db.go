package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"givto/internal/database"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending schema migrations for the configured database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		ctx := cmd.Context()
		pending, err := db.PendingMigrations(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			log.Printf("No new migrations to apply")
			return nil
		}

		if migrateDryRun {
			for _, name := range pending {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}

		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Printf("Applied %d migrations", len(pending))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "List pending migrations without applying them")
}
