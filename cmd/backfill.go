package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/backfill"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Normalize legacy deal timestamps in place",
	Long:  "Moves string-typed temporal fields from the raw import payload into typed columns and reconstructs missing activity and stage timestamps from deal history. Safe to rerun.",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := initPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := backfill.Run(cmd.Context(), pool)
		if err != nil {
			return err
		}

		zap.L().Info("backfill finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("updated", res.Updated),
			zap.Int("filled_last_activity", res.FilledLastActivity),
			zap.Int("filled_stage_changed", res.FilledStageChanged),
			zap.Int("failed_chunks", res.FailedChunks),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
