package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"givto/internal/credentials"
	"givto/internal/database"
	"givto/internal/repository"
	"givto/internal/service"
)

// openMaintenance connects to the configured storage. The returned function
// releases everything that was opened.
func openMaintenance(ctx context.Context) (*service.MaintenanceService, func(), error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	codes, closeCodes, err := repository.OpenLoginCodeStore(ctx, cfg, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	store := repository.NewStore(db)
	// Maintenance never issues codes, so nothing is ever notified
	auth := service.NewAuthService(store, codes, credentials.NewCodeHasher(cfg.CodeSecret()), nil, service.AuthOptions{
		CodeTTL: cfg.LoginCodeTTL,
		Debug:   cfg.Debug,
	})

	cleanup := func() {
		if err := closeCodes(); err != nil {
			log.Printf("Warning: failed to close login code store: %v", err)
		}
		db.Close()
	}
	return service.NewMaintenanceService(store, auth, time.Now), cleanup, nil
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair group memberships",
	Long: `Restores membership edges that should exist: group creators and accepted
invitees become members, and pending invites of existing members are marked
accepted. Running repair twice in a row reports no changes the second time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		maint, cleanup, err := openMaintenance(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := maint.Repair(cmd.Context())
		if err != nil {
			return err
		}
		if !report.Changed() {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to repair")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Creators added: %d\nMembers added: %d\nInvites accepted: %d\n",
			report.CreatorsAdded, report.MembersAdded, report.InvitesAccepted)
		return nil
	},
}

var purgeCodesCmd = &cobra.Command{
	Use:   "purge-codes",
	Short: "Delete expired login codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		maint, cleanup, err := openMaintenance(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := maint.PurgeExpiredCodes(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired login codes\n", n)
		return nil
	},
}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export users, groups, memberships and invites as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		maint, cleanup, err := openMaintenance(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			defer f.Close()
			w = f
		}

		if err := maint.Export(cmd.Context(), w); err != nil {
			return err
		}
		if exportOutput != "" && exportOutput != "-" {
			log.Printf("Export written to %s", exportOutput)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write the export to a file instead of stdout")
}
