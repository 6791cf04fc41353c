package forecast

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/db"
	"github.com/sells-group/revenue-intel/internal/scoring"
	"github.com/sells-group/revenue-intel/internal/settings"
	"github.com/sells-group/revenue-intel/internal/timerange"
)

// OwnerUnassigned is the ownerId filter sentinel meaning "no owner": a null,
// absent, or empty owner_id.
const OwnerUnassigned = "Unassigned"

// Options select the deals a forecast covers.
type Options struct {
	Period         string `json:"period,omitempty"`
	StartDate      string `json:"startDate,omitempty"`
	EndDate        string `json:"endDate,omitempty"`
	OwnerID        string `json:"ownerId,omitempty"`
	ExcludeOverdue bool   `json:"excludeOverdue,omitempty"`
}

// Aggregator fetches, scores, and aggregates deals for a period.
type Aggregator struct {
	pool     db.Pool
	defaults settings.Settings
}

// New creates an Aggregator. defaults is the baseline the stored settings
// document resolves over.
func New(pool db.Pool, defaults settings.Settings) *Aggregator {
	return &Aggregator{pool: pool, defaults: defaults}
}

// Pool exposes the underlying pool for collaborators sharing the store.
func (a *Aggregator) Pool() db.Pool { return a.pool }

// Settings resolves the effective scoring settings for one request.
func (a *Aggregator) Settings(ctx context.Context) settings.Settings {
	return settings.LoadResolved(ctx, a.pool, a.defaults)
}

// Forecast computes the full forecast for the period selected by opts.
func (a *Aggregator) Forecast(ctx context.Context, opts Options, now time.Time) (*Result, error) {
	rng := timerange.Resolve(opts.Period, now, opts.StartDate, opts.EndDate)
	st := a.Settings(ctx)

	deals, err := crm.DealsClosingBetween(ctx, a.pool, rng.Start, rng.EndExclusive, false)
	if err != nil {
		return nil, eris.Wrap(err, "forecast: fetch deals")
	}
	deals = FilterOwner(deals, opts.OwnerID)

	ages, err := a.accountAges(ctx, deals, now)
	if err != nil {
		return nil, err
	}

	scored := ScoreDeals(deals, ages, st, now)
	res := Assemble(rng, scored, opts.ExcludeOverdue, now)

	zap.L().Info("forecast: computed",
		zap.String("period", res.Period),
		zap.Int("total_deals", res.Summary.TotalDeals),
		zap.Float64("weighted_pipeline", res.Summary.WeightedPipeline),
	)
	return res, nil
}

// ScoreOne scores a single deal under the current settings.
func (a *Aggregator) ScoreOne(ctx context.Context, d crm.Deal, now time.Time) (ScoredDeal, error) {
	st := a.Settings(ctx)
	ages, err := a.accountAges(ctx, []crm.Deal{d}, now)
	if err != nil {
		return ScoredDeal{}, err
	}
	return ScoreDeals([]crm.Deal{d}, ages, st, now)[0], nil
}

// FilterOwner applies the owner filter. Empty means all owners; the
// Unassigned sentinel matches deals whose owner is null, absent, or empty.
func FilterOwner(deals []crm.Deal, ownerID string) []crm.Deal {
	if ownerID == "" {
		return deals
	}
	var out []crm.Deal
	for _, d := range deals {
		unassigned := d.OwnerID == nil || *d.OwnerID == ""
		if ownerID == OwnerUnassigned {
			if unassigned {
				out = append(out, d)
			}
			continue
		}
		if !unassigned && *d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out
}

// accountAges batch-fetches account ages in days, keyed by account id.
func (a *Aggregator) accountAges(ctx context.Context, deals []crm.Deal, now time.Time) (map[uuid.UUID]int, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, d := range deals {
		if d.AccountID != nil && !seen[*d.AccountID] {
			seen[*d.AccountID] = true
			ids = append(ids, *d.AccountID)
		}
	}

	createdAts, err := crm.AccountCreatedAts(ctx, a.pool, ids)
	if err != nil {
		return nil, eris.Wrap(err, "forecast: fetch account ages")
	}

	ages := make(map[uuid.UUID]int, len(createdAts))
	for id, createdAt := range createdAts {
		ages[id] = daysSince(createdAt, now)
	}
	return ages, nil
}

// ScoreDeals derives each deal's age, recency, account age and stage duration,
// then scores it.
func ScoreDeals(deals []crm.Deal, accountAges map[uuid.UUID]int, st settings.Settings, now time.Time) []ScoredDeal {
	scored := make([]ScoredDeal, 0, len(deals))
	for _, d := range deals {
		in := scoring.Input{
			Stage:              d.Stage,
			EffectiveCloseDate: d.EffectiveCloseDate(),
			Now:                now,
		}
		if created := d.EffectiveCreatedAt(); created != nil {
			in.DealAgeDays = intPtr(daysSince(*created, now))
		}
		if activity := d.EffectiveLastActivity(); activity != nil {
			in.ActivityRecencyDays = intPtr(daysSince(*activity, now))
		}
		if d.AccountID != nil {
			if age, ok := accountAges[*d.AccountID]; ok {
				in.AccountAgeDays = intPtr(age)
			}
		}
		in.DaysInStage = daysInStage(&d, now)

		r := scoring.Score(in, st)
		scored = append(scored, ScoredDeal{
			Deal:       d,
			Score:      r.Score,
			Confidence: r.Confidence,
			Factors:    r.Factors,
		})
	}
	return scored
}

// daysInStage prefers the stored counter, then derives from stageChangedAt.
func daysInStage(d *crm.Deal, now time.Time) *int {
	if d.DaysInStage != nil {
		return d.DaysInStage
	}
	if changed := stageChangedAt(d); changed != nil {
		return intPtr(daysSince(*changed, now))
	}
	return nil
}

func stageChangedAt(d *crm.Deal) *time.Time {
	if d.StageChangedAt != nil {
		return d.StageChangedAt
	}
	if v, ok := d.Raw["stageChangedAt"]; ok {
		if t, ok := crm.ParseLegacyTime(v); ok {
			return &t
		}
	}
	return nil
}

func daysSince(t, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}

func intPtr(v int) *int { return &v }
