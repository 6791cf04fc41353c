package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/export"
	"github.com/sells-group/revenue-intel/internal/forecast"
)

var (
	forecastPeriod         string
	forecastStart          string
	forecastEnd            string
	forecastOwner          string
	forecastExcludeOverdue bool
	forecastXLSX           string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Compute the revenue forecast for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := initPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		agg := forecast.New(pool, initDefaults())
		res, err := agg.Forecast(cmd.Context(), forecast.Options{
			Period:         forecastPeriod,
			StartDate:      forecastStart,
			EndDate:        forecastEnd,
			OwnerID:        forecastOwner,
			ExcludeOverdue: forecastExcludeOverdue,
		}, time.Now())
		if err != nil {
			return err
		}

		if forecastXLSX != "" {
			f, err := os.Create(forecastXLSX)
			if err != nil {
				return eris.Wrapf(err, "create %s", forecastXLSX)
			}
			defer f.Close()
			if err := export.ForecastXLSX(f, res); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", forecastXLSX))
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	forecastCmd.Flags().StringVar(&forecastPeriod, "period", "", "period keyword (current_month, current_quarter, ...)")
	forecastCmd.Flags().StringVar(&forecastStart, "start", "", "explicit start date (YYYY-MM-DD)")
	forecastCmd.Flags().StringVar(&forecastEnd, "end", "", "explicit end date (YYYY-MM-DD)")
	forecastCmd.Flags().StringVar(&forecastOwner, "owner", "", "filter by owner id (Unassigned for ownerless deals)")
	forecastCmd.Flags().BoolVar(&forecastExcludeOverdue, "exclude-overdue", false, "drop pipeline deals already past their close date")
	forecastCmd.Flags().StringVar(&forecastXLSX, "xlsx", "", "write an XLSX workbook to this path instead of JSON")
	rootCmd.AddCommand(forecastCmd)
}
