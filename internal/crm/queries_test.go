package crm

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
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var dealTestColumns = []string{
	"id", "sf_id", "name", "stage", "amount", "owner_id", "account_id",
	"created_at", "updated_at", "last_activity_at", "stage_changed_at",
	"close_date", "forecasted_close_date", "days_in_stage", "raw",
}

func strPtr(s string) *string     { return &s }
func f64Ptr(f float64) *float64   { return &f }
func tPtr(t time.Time) *time.Time { return &t }

// dealRow builds a full mock row with sensible nils everywhere but the
// provided fields.
func dealRow(id uuid.UUID, stage string, amount float64, closeDate *time.Time, raw []byte) []any {
	if raw == nil {
		raw = []byte(`{}`)
	}
	return []any{
		id, strPtr("006" + id.String()[:8]), strPtr("Deal " + id.String()[:4]), strPtr(stage),
		f64Ptr(amount), (*string)(nil), (*uuid.UUID)(nil),
		(*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil),
		closeDate, (*time.Time)(nil), (*int)(nil), raw,
	}
}

func TestDealsClosingBetween_FiltersOnEffectiveCloseDate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	inRange := uuid.New()
	rawOnly := uuid.New()
	rawOutOfRange := uuid.New()

	rows := pgxmock.NewRows(dealTestColumns).
		AddRow(dealRow(inRange, "Proposal", 1000, tPtr(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)), nil)...).
		AddRow(dealRow(rawOnly, "Negotiation", 2000, nil, []byte(`{"closeDate":"2025-06-20"}`))...).
		AddRow(dealRow(rawOutOfRange, "Lead", 3000, nil, []byte(`{"closeDate":"2025-09-20"}`))...)

	mock.ExpectQuery("FROM crm.deals").
		WithArgs(start, end).
		WillReturnRows(rows)

	deals, err := DealsClosingBetween(context.Background(), mock, start, end, false)
	require.NoError(t, err)

	// The SQL fetch is broad; the raw-only deal outside the range is dropped
	// after parsing.
	require.Len(t, deals, 2)
	assert.Equal(t, inRange, deals[0].ID)
	assert.Equal(t, rawOnly, deals[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDealsClosingBetween_CorruptRawLosesOnlyFallbacks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	id := uuid.New()
	rows := pgxmock.NewRows(dealTestColumns).
		AddRow(dealRow(id, "Proposal", 500, tPtr(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)), []byte(`{broken`))...)

	mock.ExpectQuery("FROM crm.deals").
		WithArgs(start, end).
		WillReturnRows(rows)

	deals, err := DealsClosingBetween(context.Background(), mock, start, end, false)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Nil(t, deals[0].Raw)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeal_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("FROM crm.deals WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = GetDeal(context.Background(), mock, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccount_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("FROM crm.accounts WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = GetAccount(context.Background(), mock, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreatedAts_EmptyIDsSkipsQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	out, err := AccountCreatedAts(context.Background(), mock, nil)
	assert.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreatedAts_ReturnsMap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a, b := uuid.New(), uuid.New()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM crm.accounts").
		WithArgs([]uuid.UUID{a, b}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(a, created))

	out, err := AccountCreatedAts(context.Background(), mock, []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]time.Time{a: created}, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
