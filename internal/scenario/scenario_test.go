package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/forecast"
	"github.com/sells-group/revenue-intel/internal/settings"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func strPtr(s string) *string     { return &s }
func f64Ptr(f float64) *float64   { return &f }
func tPtr(t time.Time) *time.Time { return &t }

func TestApplyAdjustment(t *testing.T) {
	orig := forecast.ScoredDeal{
		Deal:  crm.Deal{ID: uuid.New(), Stage: "Proposal", Amount: 1000},
		Score: 60,
	}

	adjusted := applyAdjustment(orig, &Adjustment{
		NewStage: strPtr("Closed Won"),
		NewValue: f64Ptr(1500),
	})

	assert.Equal(t, "Closed Won", adjusted.Stage)
	assert.Equal(t, 1500.0, adjusted.Amount)
	assert.True(t, adjusted.Adjusted)
	// The score carries over untouched.
	assert.Equal(t, 60, adjusted.Score)
	// The original is unchanged.
	assert.Equal(t, "Proposal", orig.Stage)
}

func TestApplyAdjustment_UnparseableCloseDateKeepsOriginal(t *testing.T) {
	closeDate := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	orig := forecast.ScoredDeal{
		Deal: crm.Deal{ID: uuid.New(), CloseDate: &closeDate},
	}

	adjusted := applyAdjustment(orig, &Adjustment{NewCloseDate: strPtr("whenever")})

	assert.Nil(t, adjusted.ForecastedCloseDate)
	assert.Equal(t, &closeDate, adjusted.EffectiveCloseDate())
	assert.True(t, adjusted.Adjusted)
}

func TestApplyAdjustment_CloseDateOverride(t *testing.T) {
	orig := forecast.ScoredDeal{Deal: crm.Deal{ID: uuid.New()}}

	adjusted := applyAdjustment(orig, &Adjustment{NewCloseDate: strPtr("2025-07-04")})

	require.NotNil(t, adjusted.ForecastedCloseDate)
	assert.Equal(t, time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC), *adjusted.ForecastedCloseDate)
}

func TestSimulate_MovingDealToClosedWon(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	dealID := uuid.New()
	closeDate := now.AddDate(0, 0, 5)

	mock.ExpectQuery("SELECT doc FROM crm.scoring_settings").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM crm.deals").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "sf_id", "name", "stage", "amount", "owner_id", "account_id",
			"created_at", "updated_at", "last_activity_at", "stage_changed_at",
			"close_date", "forecasted_close_date", "days_in_stage", "raw",
		}).AddRow(
			dealID, (*string)(nil), (*string)(nil), strPtr("Negotiation"),
			f64Ptr(10000.0), (*string)(nil), (*uuid.UUID)(nil),
			(*time.Time)(nil), (*time.Time)(nil), tPtr(now.AddDate(0, 0, -2)), (*time.Time)(nil),
			&closeDate, (*time.Time)(nil), (*int)(nil), []byte(`{}`),
		))

	sim := New(forecast.New(mock, settings.Default()))
	res, err := sim.Simulate(context.Background(), Request{
		Adjustments: []Adjustment{{DealID: dealID, NewStage: strPtr("Closed Won")}},
	}, now)
	require.NoError(t, err)

	// Baseline: one pipeline deal. Scenario: the same deal closed won.
	assert.Equal(t, 10000.0, res.Baseline.TotalPipeline)
	assert.Equal(t, 0.0, res.Baseline.ClosedWon)
	assert.Equal(t, 0.0, res.Scenario.Summary.TotalPipeline)
	assert.Equal(t, 10000.0, res.Scenario.Summary.ClosedWon)

	assert.Equal(t, -10000.0, res.Delta.TotalPipeline)
	assert.Equal(t, 10000.0, res.Delta.ClosedWon)
	// The three-point forecast rises: full value beats any multiplier.
	assert.Greater(t, res.Delta.Forecast.Pessimistic, 0.0)

	require.Len(t, res.Scenario.AdjustedDeals, 1)
	assert.True(t, res.Scenario.AdjustedDeals[0].Adjusted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiff_IsZeroForIdenticalSummaries(t *testing.T) {
	s := forecast.Summary{
		TotalPipeline:    100,
		WeightedPipeline: 50,
		ClosedWon:        25,
		Forecast:         forecast.ThreePoint{Pessimistic: 30, Likely: 50, Optimistic: 70},
	}
	d := diff(s, s)
	assert.Equal(t, Delta{}, d)
}
