package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/forecast"
)

var scoreCmd = &cobra.Command{
	Use:   "score <deal-id>",
	Short: "Score a single deal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return eris.Wrapf(err, "deal id %q is not a UUID", args[0])
		}

		pool, err := initPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		deal, err := crm.GetDeal(cmd.Context(), pool, id)
		if err != nil {
			return err
		}

		agg := forecast.New(pool, initDefaults())
		scored, err := agg.ScoreOne(cmd.Context(), *deal, time.Now())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scored)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
