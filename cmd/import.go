package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/ingest"
)

var importSince string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import Salesforce opportunities into the CRM store",
	RunE: func(cmd *cobra.Command, args []string) error {
		var since time.Time
		if importSince != "" {
			t, err := time.Parse("2006-01-02", importSince)
			if err != nil {
				return eris.Wrapf(err, "invalid --since date %q", importSince)
			}
			since = t
		}

		pool, err := initPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		sf, err := initSalesforce()
		if err != nil {
			return err
		}

		res, err := ingest.ImportOpportunities(cmd.Context(), sf, pool, since)
		if err != nil {
			return err
		}

		zap.L().Info("import finished",
			zap.Int("fetched", res.Fetched),
			zap.Int64("accounts", res.Accounts),
			zap.Int64("deals", res.Deals),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSince, "since", "", "only import opportunities modified on or after this date (YYYY-MM-DD)")
	rootCmd.AddCommand(importCmd)
}
