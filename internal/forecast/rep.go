package forecast

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/timerange"
)

// RepStats is the per-owner rollup for a period.
type RepStats struct {
	OwnerID           string  `json:"ownerId"`
	TotalDeals        int     `json:"totalDeals"`
	WonDeals          int     `json:"wonDeals"`
	LostDeals         int     `json:"lostDeals"`
	WinRate           float64 `json:"winRate"`
	PipelineValue     float64 `json:"pipelineValue"`
	ForecastedRevenue float64 `json:"forecastedRevenue"`
	ClosedRevenue     float64 `json:"closedRevenue"`
	Performance       int     `json:"performance"`
}

// RepPerformance computes per-owner deal counts, win rate, forecasted revenue
// and a 0-100 performance heuristic for the period. Closed Lost deals are
// included here (unlike forecasting) because win rate needs them.
func (a *Aggregator) RepPerformance(ctx context.Context, period string, now time.Time) ([]RepStats, error) {
	rng := timerange.Resolve(period, now, "", "")
	st := a.Settings(ctx)

	deals, err := crm.DealsClosingBetween(ctx, a.pool, rng.Start, rng.EndExclusive, true)
	if err != nil {
		return nil, eris.Wrap(err, "forecast: fetch deals for rep performance")
	}

	ages, err := a.accountAges(ctx, deals, now)
	if err != nil {
		return nil, err
	}
	scored := ScoreDeals(deals, ages, st, now)

	type repAccum struct {
		RepStats
		pipelineScoreSum int
		pipelineCount    int
	}
	byOwner := make(map[string]*repAccum)

	for _, d := range scored {
		owner := OwnerUnassigned
		if d.OwnerID != nil && *d.OwnerID != "" {
			owner = *d.OwnerID
		}
		acc := byOwner[owner]
		if acc == nil {
			acc = &repAccum{RepStats: RepStats{OwnerID: owner}}
			byOwner[owner] = acc
		}

		acc.TotalDeals++
		switch {
		case d.IsClosedWon():
			acc.WonDeals++
			acc.ClosedRevenue += d.Amount
		case d.IsClosedLost():
			acc.LostDeals++
		default:
			acc.PipelineValue += d.Amount
			acc.ForecastedRevenue += d.Amount * float64(d.Score) / 100
			acc.pipelineScoreSum += d.Score
			acc.pipelineCount++
		}
	}

	stats := make([]RepStats, 0, len(byOwner))
	for _, acc := range byOwner {
		if closed := acc.WonDeals + acc.LostDeals; closed > 0 {
			acc.WinRate = float64(acc.WonDeals) / float64(closed)
		}
		acc.ForecastedRevenue = math.Round((acc.ForecastedRevenue+acc.ClosedRevenue)*100) / 100
		acc.Performance = performanceScore(acc.WinRate, acc.pipelineScoreSum, acc.pipelineCount, acc.WonDeals)
		stats = append(stats, acc.RepStats)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].ForecastedRevenue != stats[j].ForecastedRevenue {
			return stats[i].ForecastedRevenue > stats[j].ForecastedRevenue
		}
		return stats[i].OwnerID < stats[j].OwnerID
	})
	return stats, nil
}

// performanceScore is a bounded secondary heuristic:
// 50 points for win rate, 30 for average pipeline score, 20 for won volume.
func performanceScore(winRate float64, pipelineScoreSum, pipelineCount, wonDeals int) int {
	score := 50 * winRate
	if pipelineCount > 0 {
		avg := float64(pipelineScoreSum) / float64(pipelineCount)
		score += 0.3 * avg
	}
	score += math.Min(20, float64(2*wonDeals))

	n := int(math.Round(score))
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n
}
