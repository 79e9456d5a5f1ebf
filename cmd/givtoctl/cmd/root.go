package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"givto/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "givtoctl",
	Short: "Maintenance commands for the Givto service",
	Long: `givtoctl runs maintenance tasks against the Givto database: schema migrations,
membership repair, login code cleanup and data export.

It reads the same environment variables (and .env file) as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("db-type") {
			cfg.DatabaseType, _ = cmd.Flags().GetString("db-type")
		}
		if cmd.Flags().Changed("db-path") {
			cfg.DatabasePath, _ = cmd.Flags().GetString("db-path")
		}
		if cmd.Flags().Changed("db-url") {
			cfg.DatabaseURL, _ = cmd.Flags().GetString("db-url")
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("db-type", "", "Database type: sqlite, postgres or mysql (env: DB_TYPE)")
	rootCmd.PersistentFlags().String("db-path", "", "SQLite database file (env: DB_PATH)")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")

	rootCmd.AddCommand(migrateCmd, repairCmd, purgeCodesCmd, exportCmd)
}

// Execute runs the root command, cancelling it on SIGINT or SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
