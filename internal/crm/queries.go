package crm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/revenue-intel/internal/db"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = eris.New("crm: not found")

const dealColumns = `id, sf_id, name, stage, amount, owner_id, account_id,
	created_at, updated_at, last_activity_at, stage_changed_at,
	close_date, forecasted_close_date, days_in_stage, raw`

// scanDeal scans one deal row in dealColumns order.
func scanDeal(row pgx.Row) (Deal, error) {
	var (
		d       Deal
		sfID    *string
		name    *string
		stage   *string
		amount  *float64
		ownerID *string
		rawJSON []byte
	)
	err := row.Scan(
		&d.ID, &sfID, &name, &stage, &amount, &ownerID, &d.AccountID,
		&d.CreatedAt, &d.UpdatedAt, &d.LastActivityAt, &d.StageChangedAt,
		&d.CloseDate, &d.ForecastedCloseDate, &d.DaysInStage, &rawJSON,
	)
	if err != nil {
		return Deal{}, err
	}
	if sfID != nil {
		d.SFID = *sfID
	}
	if name != nil {
		d.Name = *name
	}
	if stage != nil {
		d.Stage = *stage
	}
	if amount != nil {
		d.Amount = *amount
	}
	d.OwnerID = ownerID
	if len(rawJSON) > 0 {
		// A corrupt raw payload only loses the legacy fallbacks, never the row.
		_ = json.Unmarshal(rawJSON, &d.Raw)
	}
	return d, nil
}

// DealsClosingBetween fetches deals whose effective close date (forecasted
// close date, else close date) falls in [start, endExclusive). Rows whose
// effective close date exists only as a legacy string in the raw payload are
// fetched broadly in SQL and re-filtered here after parsing. Closed Lost
// deals are excluded unless includeLost is set.
func DealsClosingBetween(ctx context.Context, pool db.Pool, start, endExclusive time.Time, includeLost bool) ([]Deal, error) {
	query := `SELECT ` + dealColumns + `
	FROM crm.deals
	WHERE (
		(COALESCE(forecasted_close_date, close_date) >= $1
			AND COALESCE(forecasted_close_date, close_date) < $2)
		OR (forecasted_close_date IS NULL AND raw ? 'forecastedCloseDate')
		OR (forecasted_close_date IS NULL AND close_date IS NULL AND raw ? 'closeDate')
	)`
	if !includeLost {
		query += ` AND btrim(COALESCE(stage, '')) <> 'Closed Lost'`
	}

	rows, err := pool.Query(ctx, query, start, endExclusive)
	if err != nil {
		return nil, eris.Wrap(err, "crm: query deals closing in range")
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "crm: scan deal row")
		}
		// Authoritative range check on the resolved effective close date.
		eff := d.EffectiveCloseDate()
		if eff == nil || eff.Before(start) || !eff.Before(endExclusive) {
			continue
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "crm: iterate deal rows")
	}
	return deals, nil
}

// CollectDeals drains rows selected in dealColumns order. It closes rows.
func CollectDeals(rows pgx.Rows) ([]Deal, error) {
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "crm: scan deal row")
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// GetDeal fetches a single deal by id. Returns ErrNotFound when absent.
func GetDeal(ctx context.Context, pool db.Pool, id uuid.UUID) (*Deal, error) {
	row := pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM crm.deals WHERE id = $1`, id)
	d, err := scanDeal(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "crm: get deal %s", id)
	}
	return &d, nil
}

// GetAccount fetches a single account by id. Returns ErrNotFound when absent.
func GetAccount(ctx context.Context, pool db.Pool, id uuid.UUID) (*Account, error) {
	var (
		a    Account
		sfID *string
		name *string
	)
	err := pool.QueryRow(ctx,
		`SELECT id, sf_id, name, created_at FROM crm.accounts WHERE id = $1`, id,
	).Scan(&a.ID, &sfID, &name, &a.CreatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "crm: get account %s", id)
	}
	if sfID != nil {
		a.SFID = *sfID
	}
	if name != nil {
		a.Name = *name
	}
	return &a, nil
}

// AccountCreatedAts batch-fetches account creation times for the given ids.
func AccountCreatedAts(ctx context.Context, pool db.Pool, ids []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	out := make(map[uuid.UUID]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := pool.Query(ctx,
		`SELECT id, created_at FROM crm.accounts WHERE id = ANY($1) AND created_at IS NOT NULL`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "crm: query account ages")
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var createdAt time.Time
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, eris.Wrap(err, "crm: scan account age row")
		}
		out[id] = createdAt
	}
	return out, rows.Err()
}
