package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/scoring"
	"github.com/sells-group/revenue-intel/internal/timerange"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func scoredDeal(stage string, amount float64, score int, conf scoring.Confidence) ScoredDeal {
	return ScoredDeal{
		Deal:       crm.Deal{Stage: stage, Amount: amount},
		Score:      score,
		Confidence: conf,
	}
}

func TestPartition(t *testing.T) {
	deals := []ScoredDeal{
		scoredDeal("Proposal", 100, 60, scoring.ConfidenceMedium),
		scoredDeal("Closed Won", 200, 50, scoring.ConfidenceMedium),
		scoredDeal("Contract Signed / Closed Won", 300, 50, scoring.ConfidenceMedium),
		scoredDeal("Closed Lost", 400, 10, scoring.ConfidenceLow),
	}

	pipeline, won := Partition(deals)
	require.Len(t, pipeline, 1)
	assert.Equal(t, 100.0, pipeline[0].Amount)
	require.Len(t, won, 2)
	assert.Equal(t, 500.0, won[0].Amount+won[1].Amount)
}

func TestSummarize_ThreePointForecast(t *testing.T) {
	pipeline := []ScoredDeal{
		scoredDeal("Proposal", 1000, 80, scoring.ConfidenceHigh),
	}
	won := []ScoredDeal{
		scoredDeal("Closed Won", 500, 50, scoring.ConfidenceMedium),
	}

	s := Summarize(pipeline, won)

	assert.Equal(t, 2, s.TotalDeals)
	assert.Equal(t, 1000.0, s.TotalPipeline)
	assert.Equal(t, 800.0, s.WeightedPipeline)
	assert.Equal(t, 500.0, s.ClosedWon)
	assert.Equal(t, 1200.0, s.Forecast.Pessimistic)
	assert.Equal(t, 1350.0, s.Forecast.Likely)
	assert.Equal(t, 1450.0, s.Forecast.Optimistic)
	assert.Equal(t, ConfidenceCounts{High: 1}, s.Confidence)
}

func TestSummarize_ForecastOrderingHolds(t *testing.T) {
	pipeline := []ScoredDeal{
		scoredDeal("Proposal", 1000, 80, scoring.ConfidenceHigh),
		scoredDeal("Qualified", 750, 55, scoring.ConfidenceMedium),
		scoredDeal("Lead", 12000, 20, scoring.ConfidenceLow),
	}

	s := Summarize(pipeline, nil)

	assert.LessOrEqual(t, s.Forecast.Pessimistic, s.Forecast.Likely)
	assert.LessOrEqual(t, s.Forecast.Likely, s.Forecast.Optimistic)
}

func TestSummarize_WeightedPipelineRounds(t *testing.T) {
	pipeline := []ScoredDeal{
		scoredDeal("Proposal", 99.99, 33, scoring.ConfidenceMedium),
	}
	s := Summarize(pipeline, nil)
	assert.Equal(t, 33.0, s.WeightedPipeline)
}

func TestStageGroups(t *testing.T) {
	pipeline := []ScoredDeal{
		scoredDeal("Proposal", 100, 50, scoring.ConfidenceMedium),
		scoredDeal("Proposal", 300, 80, scoring.ConfidenceHigh),
		scoredDeal("", 50, 40, scoring.ConfidenceMedium),
	}

	groups := StageGroups(pipeline)

	require.Contains(t, groups, "Proposal")
	assert.Equal(t, 2, groups["Proposal"].Count)
	assert.Equal(t, 400.0, groups["Proposal"].Value)
	assert.Equal(t, 290.0, groups["Proposal"].WeightedValue)

	require.Contains(t, groups, "Unknown")
	assert.Equal(t, 1, groups["Unknown"].Count)
}

func TestAssemble_ExcludeOverdueDropsPastDeals(t *testing.T) {
	rng := timerange.Resolve("", testNow, "", "")

	overdue := scoredDeal("Proposal", 100, 50, scoring.ConfidenceMedium)
	overdue.CloseDate = tPtr(testNow.AddDate(0, 0, -3))

	noClose := scoredDeal("Qualified", 200, 50, scoring.ConfidenceMedium)

	future := scoredDeal("Negotiation", 300, 70, scoring.ConfidenceHigh)
	future.CloseDate = tPtr(testNow.AddDate(0, 0, 5))

	res := Assemble(rng, []ScoredDeal{overdue, noClose, future}, true, testNow)

	// The overdue deal is dropped; the deal with no close date stays.
	assert.Equal(t, 2, res.Summary.TotalDeals)
	assert.Equal(t, 500.0, res.Summary.TotalPipeline)
}

func TestAssemble_KeepsOverdueByDefault(t *testing.T) {
	rng := timerange.Resolve("", testNow, "", "")

	overdue := scoredDeal("Proposal", 100, 50, scoring.ConfidenceMedium)
	overdue.CloseDate = tPtr(testNow.AddDate(0, 0, -3))

	res := Assemble(rng, []ScoredDeal{overdue}, false, testNow)
	assert.Equal(t, 1, res.Summary.TotalDeals)
}

func tPtr(t time.Time) *time.Time { return &t }
