package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/revenue-intel/internal/forecast"
)

var repsPeriod string

var repsCmd = &cobra.Command{
	Use:   "reps",
	Short: "Report per-owner pipeline and win-rate stats for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := initPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		agg := forecast.New(pool, initDefaults())
		stats, err := agg.RepPerformance(cmd.Context(), repsPeriod, time.Now())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	repsCmd.Flags().StringVar(&repsPeriod, "period", "", "period keyword (current_month, current_quarter, ...)")
	rootCmd.AddCommand(repsCmd)
}
