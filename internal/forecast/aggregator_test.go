package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/scoring"
	"github.com/sells-group/revenue-intel/internal/settings"
)

func ownedDeal(owner string) crm.Deal {
	d := crm.Deal{ID: uuid.New()}
	if owner != "" {
		d.OwnerID = &owner
	}
	return d
}

func TestFilterOwner(t *testing.T) {
	alice := ownedDeal("alice")
	bob := ownedDeal("bob")
	nobody := ownedDeal("")
	empty := crm.Deal{ID: uuid.New(), OwnerID: new(string)}

	deals := []crm.Deal{alice, bob, nobody, empty}

	assert.Len(t, FilterOwner(deals, ""), 4)

	got := FilterOwner(deals, "alice")
	require.Len(t, got, 1)
	assert.Equal(t, alice.ID, got[0].ID)

	// The sentinel matches both nil and empty owners.
	unassigned := FilterOwner(deals, OwnerUnassigned)
	require.Len(t, unassigned, 2)
	assert.Equal(t, nobody.ID, unassigned[0].ID)
	assert.Equal(t, empty.ID, unassigned[1].ID)

	assert.Empty(t, FilterOwner(deals, "carol"))
}

func TestScoreDeals_DerivesDayCounts(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	accountID := uuid.New()

	created := now.AddDate(0, 0, -100)
	activity := now.AddDate(0, 0, -2)
	closeDate := now.AddDate(0, 0, 5)
	stageChanged := now.AddDate(0, 0, -40)

	d := crm.Deal{
		ID:             uuid.New(),
		Stage:          "Negotiation",
		Amount:         10000,
		AccountID:      &accountID,
		CreatedAt:      &created,
		LastActivityAt: &activity,
		CloseDate:      &closeDate,
		StageChangedAt: &stageChanged,
	}
	ages := map[uuid.UUID]int{accountID: 400}

	scored := ScoreDeals([]crm.Deal{d}, ages, settings.Default(), now)
	require.Len(t, scored, 1)

	// 50 base + 15 stage - 8 deal age (100d) + 10 hot activity + 8 mature
	// account - 5 stage duration (40d) + 8 closing soon while negotiating.
	assert.Equal(t, 78, scored[0].Score)
	assert.Equal(t, scoring.ConfidenceHigh, scored[0].Confidence)
	assert.Len(t, scored[0].Factors, 6)
}

func TestScoreDeals_StoredDaysInStageWins(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	stageChanged := now.AddDate(0, 0, -100)
	days := 5

	d := crm.Deal{
		ID:             uuid.New(),
		Stage:          "Proposal",
		DaysInStage:    &days,
		StageChangedAt: &stageChanged,
	}

	scored := ScoreDeals([]crm.Deal{d}, nil, settings.Default(), now)
	require.Len(t, scored, 1)
	for _, f := range scored[0].Factors {
		assert.NotEqual(t, "stage_duration", f.Factor, "stored 5 days should not penalize")
	}
}

func TestForecast_EndToEndWithMockStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	id := uuid.New()
	closeDate := now.AddDate(0, 0, 5)

	// Settings document lookup, then the range query.
	mock.ExpectQuery("SELECT doc FROM crm.scoring_settings").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM crm.deals").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "sf_id", "name", "stage", "amount", "owner_id", "account_id",
			"created_at", "updated_at", "last_activity_at", "stage_changed_at",
			"close_date", "forecasted_close_date", "days_in_stage", "raw",
		}).AddRow(
			id, (*string)(nil), (*string)(nil), strPtr("Negotiation"),
			f64Ptr(10000.0), (*string)(nil), (*uuid.UUID)(nil),
			(*time.Time)(nil), (*time.Time)(nil), tPtr(now.AddDate(0, 0, -2)), (*time.Time)(nil),
			&closeDate, (*time.Time)(nil), (*int)(nil), []byte(`{}`),
		))

	agg := New(mock, settings.Default())
	res, err := agg.Forecast(context.Background(), Options{}, now)
	require.NoError(t, err)

	assert.Equal(t, "current_month", res.Period)
	require.Len(t, res.Deals, 1)
	assert.Equal(t, 83, res.Deals[0].Score)
	assert.Equal(t, 8300.0, res.Summary.WeightedPipeline)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
