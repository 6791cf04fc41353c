// Package backfill normalizes legacy deal rows in place: temporal fields that
// exist only as strings in the raw payload move into the typed columns, and
// missing activity/stage timestamps are reconstructed from deal history. The
// job is idempotent; rerunning it finds nothing left to fill.
package backfill

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/db"
)

const (
	// scanLimit caps one run; oversized datasets converge over repeated runs.
	scanLimit = 10000
	chunkSize = 500
	workers   = 4
)

// Result counts what one run touched.
type Result struct {
	Scanned            int            `json:"scanned"`
	Updated            int            `json:"updated"`
	NormalizedFields   map[string]int `json:"normalizedFields"`
	FilledLastActivity int            `json:"filledLastActivity"`
	FilledStageChanged int            `json:"filledStageChanged"`
	FailedChunks       int            `json:"failedChunks"`
}

// historyTimes is the per-deal aggregate over deal_events.
type historyTimes struct {
	lastEvent *time.Time
	lastStage *time.Time
}

// dealUpdate carries only the columns to fill; nil fields stay untouched.
type dealUpdate struct {
	id                  uuid.UUID
	createdAt           *time.Time
	updatedAt           *time.Time
	lastActivityAt      *time.Time
	stageChangedAt      *time.Time
	closeDate           *time.Time
	forecastedCloseDate *time.Time
}

func (u *dealUpdate) empty() bool {
	return u.createdAt == nil && u.updatedAt == nil && u.lastActivityAt == nil &&
		u.stageChangedAt == nil && u.closeDate == nil && u.forecastedCloseDate == nil
}

// Run scans candidate deals, computes the fill for each, and applies the
// fills in independently committed chunks. A failed chunk is logged and
// counted; the rest of the run proceeds.
func Run(ctx context.Context, pool db.Pool) (*Result, error) {
	deals, err := scanCandidates(ctx, pool)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Scanned:          len(deals),
		NormalizedFields: make(map[string]int),
	}
	if len(deals) == 0 {
		zap.L().Info("backfill: nothing to do")
		return res, nil
	}

	history := loadHistory(ctx, pool, deals)

	var updates []dealUpdate
	for i := range deals {
		u := planUpdate(&deals[i], history[deals[i].ID], res)
		if !u.empty() {
			updates = append(updates, u)
		}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(workers)
	for start := 0; start < len(updates); start += chunkSize {
		end := start + chunkSize
		if end > len(updates) {
			end = len(updates)
		}
		chunk := updates[start:end]
		g.Go(func() error {
			applied, err := applyChunk(ctx, pool, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.FailedChunks++
				zap.L().Warn("backfill: chunk failed", zap.Int("size", len(chunk)), zap.Error(err))
				return nil
			}
			res.Updated += applied
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("backfill: complete",
		zap.Int("scanned", res.Scanned),
		zap.Int("updated", res.Updated),
		zap.Int("failed_chunks", res.FailedChunks),
	)
	return res, nil
}

// scanCandidates fetches deals with anything left to normalize or fill.
func scanCandidates(ctx context.Context, pool db.Pool) ([]crm.Deal, error) {
	rows, err := pool.Query(ctx, `SELECT id, sf_id, name, stage, amount, owner_id, account_id,
		created_at, updated_at, last_activity_at, stage_changed_at,
		close_date, forecasted_close_date, days_in_stage, raw
	FROM crm.deals
	WHERE last_activity_at IS NULL
	   OR stage_changed_at IS NULL
	   OR (created_at IS NULL AND raw ? 'createdAt')
	   OR (updated_at IS NULL AND raw ? 'updatedAt')
	   OR (close_date IS NULL AND raw ? 'closeDate')
	   OR (forecasted_close_date IS NULL AND raw ? 'forecastedCloseDate')
	LIMIT $1`, scanLimit)
	if err != nil {
		return nil, eris.Wrap(err, "backfill: scan candidates")
	}

	deals, err := crm.CollectDeals(rows)
	if err != nil {
		return nil, eris.Wrap(err, "backfill: collect candidates")
	}
	return deals, nil
}

// loadHistory aggregates deal_events per candidate. History is best effort:
// a failed lookup degrades to the updatedAt/createdAt fallbacks.
func loadHistory(ctx context.Context, pool db.Pool, deals []crm.Deal) map[uuid.UUID]historyTimes {
	ids := make([]uuid.UUID, len(deals))
	for i := range deals {
		ids[i] = deals[i].ID
	}

	out := make(map[uuid.UUID]historyTimes)
	rows, err := pool.Query(ctx, `SELECT deal_id,
		max(occurred_at) AS last_event,
		max(occurred_at) FILTER (WHERE event_type = $2) AS last_stage
	FROM crm.deal_events
	WHERE deal_id = ANY($1)
	GROUP BY deal_id`, ids, crm.EventStageChanged)
	if err != nil {
		zap.L().Warn("backfill: history lookup failed, using fallbacks", zap.Error(err))
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var h historyTimes
		if err := rows.Scan(&id, &h.lastEvent, &h.lastStage); err != nil {
			zap.L().Warn("backfill: history scan failed, using fallbacks", zap.Error(err))
			return out
		}
		out[id] = h
	}
	if err := rows.Err(); err != nil {
		zap.L().Warn("backfill: history iteration failed, using fallbacks", zap.Error(err))
	}
	return out
}

// planUpdate decides the fill for one deal and tallies counters.
func planUpdate(d *crm.Deal, h historyTimes, res *Result) dealUpdate {
	u := dealUpdate{id: d.ID}

	// Legacy strings in raw become typed column values.
	normalize := func(typed *time.Time, key string, dst **time.Time) *time.Time {
		if typed != nil {
			return typed
		}
		if v, ok := d.Raw[key]; ok {
			if t, ok := crm.ParseLegacyTime(v); ok {
				*dst = &t
				res.NormalizedFields[key]++
				return &t
			}
		}
		return nil
	}
	createdAt := normalize(d.CreatedAt, "createdAt", &u.createdAt)
	updatedAt := normalize(d.UpdatedAt, "updatedAt", &u.updatedAt)
	lastActivity := normalize(d.LastActivityAt, "lastActivityAt", &u.lastActivityAt)
	stageChanged := normalize(d.StageChangedAt, "stageChangedAt", &u.stageChangedAt)
	normalize(d.CloseDate, "closeDate", &u.closeDate)
	normalize(d.ForecastedCloseDate, "forecastedCloseDate", &u.forecastedCloseDate)

	// Reconstruct lastActivityAt: history, then updatedAt, then createdAt.
	if lastActivity == nil {
		if t := firstOf(h.lastEvent, updatedAt, createdAt); t != nil {
			u.lastActivityAt = t
			res.FilledLastActivity++
		}
	}

	// Reconstruct stageChangedAt: last stage change, then any history event,
	// then updatedAt, then createdAt.
	if stageChanged == nil {
		if t := firstOf(h.lastStage, h.lastEvent, updatedAt, createdAt); t != nil {
			u.stageChangedAt = t
			res.FilledStageChanged++
		}
	}

	return u
}

func firstOf(candidates ...*time.Time) *time.Time {
	for _, t := range candidates {
		if t != nil {
			return t
		}
	}
	return nil
}

// applyChunk writes one chunk in a single batch. COALESCE keeps updates
// fill-only, so reruns never overwrite values already present.
func applyChunk(ctx context.Context, pool db.Pool, chunk []dealUpdate) (int, error) {
	const stmt = `UPDATE crm.deals SET
		created_at = COALESCE(created_at, $2),
		updated_at = COALESCE(updated_at, $3),
		last_activity_at = COALESCE(last_activity_at, $4),
		stage_changed_at = COALESCE(stage_changed_at, $5),
		close_date = COALESCE(close_date, $6),
		forecasted_close_date = COALESCE(forecasted_close_date, $7)
	WHERE id = $1`

	batch := &pgx.Batch{}
	for _, u := range chunk {
		batch.Queue(stmt, u.id, u.createdAt, u.updatedAt, u.lastActivityAt,
			u.stageChangedAt, u.closeDate, u.forecastedCloseDate)
	}

	br := pool.SendBatch(ctx, batch)
	defer br.Close()

	applied := 0
	for range chunk {
		tag, err := br.Exec()
		if err != nil {
			return applied, eris.Wrap(err, "backfill: apply update")
		}
		applied += int(tag.RowsAffected())
	}
	return applied, nil
}
