package cli

import (
	"github.com/spf13/cobra"

	"reconciler/internal/repository"
	"reconciler/pkg/utils"
)

// NewMigrateCommand создаёт команду migrate: создание схемы
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Create the orders, balances, ledger_fills, fee_schedule and reconcile_runs
tables and their indexes. Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := repository.Open(cmd.Context(), rootOpts.Config.Database)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to connect to database", err)
			}
			defer db.Close()

			if err := repository.Migrate(cmd.Context(), db); err != nil {
				return WrapExitError(ExitFailure, "migration failed", err)
			}
			utils.L().Info("schema is up to date")
			return nil
		},
	}
}
