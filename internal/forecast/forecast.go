// Package forecast turns scored deals into probability-weighted revenue
// forecasts with confidence bands.
package forecast

import (
	"math"
	"time"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/scoring"
	"github.com/sells-group/revenue-intel/internal/timerange"
)

// ScoredDeal annotates a deal with its score. Derived per request, never persisted.
type ScoredDeal struct {
	crm.Deal
	Score      int                `json:"aiScore"`
	Confidence scoring.Confidence `json:"aiConfidence"`
	Factors    []scoring.Factor   `json:"aiFactors"`
	Adjusted   bool               `json:"_adjusted,omitempty"`
}

// ThreePoint is a pessimistic/likely/optimistic forecast triple.
type ThreePoint struct {
	Pessimistic float64 `json:"pessimistic"`
	Likely      float64 `json:"likely"`
	Optimistic  float64 `json:"optimistic"`
}

// ConfidenceCounts tallies pipeline deals per confidence bucket.
type ConfidenceCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Summary holds the aggregate forecast metrics for a period.
type Summary struct {
	TotalDeals       int              `json:"totalDeals"`
	TotalPipeline    float64          `json:"totalPipeline"`
	WeightedPipeline float64          `json:"weightedPipeline"`
	ClosedWon        float64          `json:"closedWon"`
	Forecast         ThreePoint       `json:"forecast"`
	Confidence       ConfidenceCounts `json:"confidence"`
}

// StageBreakdown accumulates pipeline value per stage.
type StageBreakdown struct {
	Count         int     `json:"count"`
	Value         float64 `json:"value"`
	WeightedValue float64 `json:"weightedValue"`
}

// Result is a full forecast response for one period.
type Result struct {
	Period    string                    `json:"period"`
	StartDate time.Time                 `json:"startDate"`
	EndDate   time.Time                 `json:"endDate"`
	Summary   Summary                   `json:"summary"`
	ByStage   map[string]StageBreakdown `json:"byStage"`
	Deals     []ScoredDeal              `json:"deals"`
}

// confidenceMultipliers is the fixed three-point table applied to pipeline
// amounts per confidence bucket.
var confidenceMultipliers = map[scoring.Confidence]ThreePoint{
	scoring.ConfidenceHigh:   {Pessimistic: 0.70, Likely: 0.85, Optimistic: 0.95},
	scoring.ConfidenceMedium: {Pessimistic: 0.30, Likely: 0.50, Optimistic: 0.70},
	scoring.ConfidenceLow:    {Pessimistic: 0.10, Likely: 0.20, Optimistic: 0.40},
}

// Partition splits scored deals into pipeline and closed-won sets.
// Closed-lost deals belong to neither.
func Partition(deals []ScoredDeal) (pipeline, won []ScoredDeal) {
	for _, d := range deals {
		switch {
		case d.IsClosedWon():
			won = append(won, d)
		case !d.IsClosedLost():
			pipeline = append(pipeline, d)
		}
	}
	return pipeline, won
}

// Summarize computes the aggregate metrics over a won/pipeline partition.
func Summarize(pipeline, won []ScoredDeal) Summary {
	var s Summary
	s.TotalDeals = len(pipeline) + len(won)

	for _, d := range won {
		s.ClosedWon += d.Amount
	}

	var bucketValue = map[scoring.Confidence]float64{}
	for _, d := range pipeline {
		s.TotalPipeline += d.Amount
		s.WeightedPipeline += d.Amount * float64(d.Score) / 100
		bucketValue[d.Confidence] += d.Amount
		switch d.Confidence {
		case scoring.ConfidenceHigh:
			s.Confidence.High++
		case scoring.ConfidenceMedium:
			s.Confidence.Medium++
		case scoring.ConfidenceLow:
			s.Confidence.Low++
		}
	}
	s.WeightedPipeline = round2(s.WeightedPipeline)

	s.Forecast = ThreePoint{
		Pessimistic: s.ClosedWon,
		Likely:      s.ClosedWon,
		Optimistic:  s.ClosedWon,
	}
	for conf, value := range bucketValue {
		m := confidenceMultipliers[conf]
		s.Forecast.Pessimistic += value * m.Pessimistic
		s.Forecast.Likely += value * m.Likely
		s.Forecast.Optimistic += value * m.Optimistic
	}
	s.Forecast.Pessimistic = math.Round(s.Forecast.Pessimistic)
	s.Forecast.Likely = math.Round(s.Forecast.Likely)
	s.Forecast.Optimistic = math.Round(s.Forecast.Optimistic)

	return s
}

// StageGroups buckets pipeline deals by stage, "Unknown" when absent.
func StageGroups(pipeline []ScoredDeal) map[string]StageBreakdown {
	byStage := make(map[string]StageBreakdown)
	for _, d := range pipeline {
		stage := d.StageOrUnknown()
		b := byStage[stage]
		b.Count++
		b.Value += d.Amount
		b.WeightedValue += d.Amount * float64(d.Score) / 100
		byStage[stage] = b
	}
	for stage, b := range byStage {
		b.WeightedValue = round2(b.WeightedValue)
		byStage[stage] = b
	}
	return byStage
}

// Assemble builds the forecast result over already-scored deals.
func Assemble(rng timerange.Range, scored []ScoredDeal, excludeOverdue bool, now time.Time) *Result {
	pipeline, won := Partition(scored)

	if excludeOverdue {
		today := timerange.StartOfDay(now)
		kept := pipeline[:0]
		for _, d := range pipeline {
			// Deals with no close date at all stay in the pipeline.
			if eff := d.EffectiveCloseDate(); eff != nil && eff.Before(today) {
				continue
			}
			kept = append(kept, d)
		}
		pipeline = kept
	}

	deals := make([]ScoredDeal, 0, len(pipeline)+len(won))
	deals = append(deals, pipeline...)
	deals = append(deals, won...)

	return &Result{
		Period:    rng.Period,
		StartDate: rng.Start,
		EndDate:   rng.End,
		Summary:   Summarize(pipeline, won),
		ByStage:   StageGroups(pipeline),
		Deals:     deals,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
