// Package scenario runs what-if simulations over a baseline forecast.
// Adjustments rewrite stage, value, or close date on individual deals; the
// forecast is then re-aggregated without re-scoring, so the delta isolates
// the effect of the adjustments themselves.
package scenario

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/forecast"
)

// Adjustment overrides fields on one deal. Nil fields keep the original.
type Adjustment struct {
	DealID       uuid.UUID `json:"dealId"`
	NewStage     *string   `json:"newStage,omitempty"`
	NewValue     *float64  `json:"newValue,omitempty"`
	NewCloseDate *string   `json:"newCloseDate,omitempty"`
}

// Request is one simulation: a period plus the adjustments to apply.
type Request struct {
	Period      string       `json:"period,omitempty"`
	StartDate   string       `json:"startDate,omitempty"`
	EndDate     string       `json:"endDate,omitempty"`
	Adjustments []Adjustment `json:"adjustments"`
}

// Outcome is the adjusted side of a simulation.
type Outcome struct {
	Summary       forecast.Summary      `json:"summary"`
	AdjustedDeals []forecast.ScoredDeal `json:"adjustedDeals"`
}

// Delta holds scenario-minus-baseline differences for the numeric summary
// fields.
type Delta struct {
	TotalPipeline    float64             `json:"totalPipeline"`
	WeightedPipeline float64             `json:"weightedPipeline"`
	ClosedWon        float64             `json:"closedWon"`
	Forecast         forecast.ThreePoint `json:"forecast"`
}

// Result pairs the baseline and adjusted summaries with their delta.
type Result struct {
	Period   string           `json:"period"`
	Baseline forecast.Summary `json:"baseline"`
	Scenario Outcome          `json:"scenario"`
	Delta    Delta            `json:"delta"`
}

// Simulator applies adjustments on top of an aggregator's baseline.
type Simulator struct {
	agg *forecast.Aggregator
}

func New(agg *forecast.Aggregator) *Simulator {
	return &Simulator{agg: agg}
}

// Simulate computes the baseline forecast for the period, applies the
// adjustments, and re-aggregates. Scores carry over unchanged from the
// baseline; only partitioning and amounts move.
func (s *Simulator) Simulate(ctx context.Context, req Request, now time.Time) (*Result, error) {
	// Baseline ignores owner filtering so adjustments always find their deal.
	base, err := s.agg.Forecast(ctx, forecast.Options{
		Period:    req.Period,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}, now)
	if err != nil {
		return nil, eris.Wrap(err, "scenario: baseline forecast")
	}

	byID := make(map[uuid.UUID]*Adjustment, len(req.Adjustments))
	for i := range req.Adjustments {
		byID[req.Adjustments[i].DealID] = &req.Adjustments[i]
	}

	adjusted := make([]forecast.ScoredDeal, 0, len(base.Deals))
	var touched []forecast.ScoredDeal
	for _, d := range base.Deals {
		if adj, ok := byID[d.ID]; ok {
			d = applyAdjustment(d, adj)
			touched = append(touched, d)
		}
		adjusted = append(adjusted, d)
	}

	pipeline, won := forecast.Partition(adjusted)
	scenarioSummary := forecast.Summarize(pipeline, won)

	zap.L().Info("scenario: simulated",
		zap.String("period", base.Period),
		zap.Int("adjustments", len(req.Adjustments)),
		zap.Int("applied", len(touched)),
	)

	return &Result{
		Period:   base.Period,
		Baseline: base.Summary,
		Scenario: Outcome{Summary: scenarioSummary, AdjustedDeals: touched},
		Delta:    diff(base.Summary, scenarioSummary),
	}, nil
}

// applyAdjustment returns a copy of d with the overrides applied and the
// adjusted flag set. An unparseable close date keeps the original.
func applyAdjustment(d forecast.ScoredDeal, adj *Adjustment) forecast.ScoredDeal {
	if adj.NewStage != nil {
		d.Stage = *adj.NewStage
	}
	if adj.NewValue != nil {
		d.Amount = *adj.NewValue
	}
	if adj.NewCloseDate != nil {
		if t, ok := crm.ParseLegacyTime(*adj.NewCloseDate); ok {
			d.ForecastedCloseDate = &t
		}
	}
	d.Adjusted = true
	return d
}

func diff(baseline, scenario forecast.Summary) Delta {
	return Delta{
		TotalPipeline:    round2(scenario.TotalPipeline - baseline.TotalPipeline),
		WeightedPipeline: round2(scenario.WeightedPipeline - baseline.WeightedPipeline),
		ClosedWon:        round2(scenario.ClosedWon - baseline.ClosedWon),
		Forecast: forecast.ThreePoint{
			Pessimistic: scenario.Forecast.Pessimistic - baseline.Forecast.Pessimistic,
			Likely:      scenario.Forecast.Likely - baseline.Forecast.Likely,
			Optimistic:  scenario.Forecast.Optimistic - baseline.Forecast.Optimistic,
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
