package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/crm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := initPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := crm.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		zap.L().Info("migrations up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
