// Package scoring implements the deterministic multi-factor deal score.
//
// A deal scores from a base of 50, adjusted by ordered factor groups: stage
// weight, deal age, activity recency, account maturity, stage duration, and
// close-date proximity. Each group contributes at most one factor; the
// factors list order matches evaluation order. Threshold cascades are
// explicit ordered rule lists, so the first-match-wins behavior is an
// artifact of the data, not of if/else chains.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sells-group/revenue-intel/internal/settings"
)

// Confidence buckets a score for forecasting.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

const (
	baseScore = 50
	minScore  = 0
	maxScore  = 100

	// noCloseDateDays stands in for daysToClose when a deal has no close date.
	noCloseDateDays = 999
)

// Factor records one scoring contribution, in evaluation order.
type Factor struct {
	Factor      string `json:"factor"`
	Impact      int    `json:"impact"`
	Description string `json:"description"`
}

// Input carries a deal's scoring-relevant fields plus derived day counts.
// Nil derived values skip their factor group entirely.
type Input struct {
	Stage               string
	EffectiveCloseDate  *time.Time
	DealAgeDays         *int
	ActivityRecencyDays *int
	AccountAgeDays      *int
	DaysInStage         *int
	Now                 time.Time
}

// Result is a deal's score, confidence tier, and contributing factors.
type Result struct {
	Score      int        `json:"score"`
	Confidence Confidence `json:"confidence"`
	Factors    []Factor   `json:"factors"`
}

// tierRule is one entry of an ordered cascade; the first rule whose match
// holds supplies the group's single factor.
type tierRule struct {
	match       bool
	impact      int
	description string
}

// firstMatch returns the factor for the first matching rule, or nil.
func firstMatch(name string, rules []tierRule) *Factor {
	for _, r := range rules {
		if r.match {
			return &Factor{Factor: name, Impact: r.impact, Description: r.description}
		}
	}
	return nil
}

// isClosedStage reports whether the trimmed stage names a closed deal.
func isClosedStage(stage string) bool {
	switch strings.TrimSpace(stage) {
	case "Closed Won", "Contract Signed / Closed Won", "Closed Lost":
		return true
	}
	return false
}

// Score computes the deal score. Deterministic: the same input and settings
// always produce the same score, confidence, and factor list.
func Score(in Input, s settings.Settings) Result {
	stage := strings.TrimSpace(in.Stage)
	score := baseScore
	var factors []Factor

	apply := func(f *Factor) {
		if f != nil {
			score += f.Impact
			factors = append(factors, *f)
		}
	}

	// Stage weight; unknown stages weigh 0 and record no factor.
	if w := s.StageWeight(stage); w != 0 {
		apply(&Factor{
			Factor:      "stage",
			Impact:      w,
			Description: fmt.Sprintf("Stage %q", stage),
		})
	}

	// Deal age: most severe tier first.
	if in.DealAgeDays != nil {
		age, da := *in.DealAgeDays, s.DealAge
		apply(firstMatch("deal_age", []tierRule{
			{age > da.StaleDays, da.StaleImpact, fmt.Sprintf("Open %d days, stale past %d", age, da.StaleDays)},
			{age > da.AgingDays, da.AgingImpact, fmt.Sprintf("Open %d days, aging past %d", age, da.AgingDays)},
			{age > da.WarnDays, da.WarnImpact, fmt.Sprintf("Open %d days, past %d", age, da.WarnDays)},
		}))
	}

	// Activity recency. The hot, warm, cold, cool branch order is load-bearing:
	// thresholds are configurable and need not be monotonic.
	if in.ActivityRecencyDays != nil {
		rec, a := *in.ActivityRecencyDays, s.Activity
		apply(firstMatch("activity", []tierRule{
			{rec <= a.HotDays, a.HotImpact, fmt.Sprintf("Active %d days ago", rec)},
			{rec <= a.WarmDays, a.WarmImpact, fmt.Sprintf("Active %d days ago", rec)},
			{rec > a.ColdDays, a.ColdImpact, fmt.Sprintf("No activity for %d days", rec)},
			{rec > a.CoolDays, a.CoolImpact, fmt.Sprintf("No activity for %d days", rec)},
		}))
	}

	// Account maturity.
	if in.AccountAgeDays != nil {
		age, ac := *in.AccountAgeDays, s.Account
		apply(firstMatch("account_age", []tierRule{
			{age > ac.MatureDays, ac.MatureImpact, fmt.Sprintf("Account %d days old", age)},
			{age < ac.NewDays, ac.NewImpact, fmt.Sprintf("Account only %d days old", age)},
		}))
	}

	// Stage duration; closed deals are done moving, so skip.
	if in.DaysInStage != nil && !isClosedStage(stage) {
		days, sd := *in.DaysInStage, s.StageDuration
		apply(firstMatch("stage_duration", []tierRule{
			{days > sd.StuckDays, sd.StuckImpact, fmt.Sprintf("Stuck in stage %d days", days)},
			{days > sd.WarnDays, sd.WarnImpact, fmt.Sprintf("In stage %d days", days)},
		}))
	}

	// Close-date proximity.
	daysToClose := noCloseDateDays
	if in.EffectiveCloseDate != nil {
		daysToClose = int(math.Ceil(in.EffectiveCloseDate.Sub(in.Now).Hours() / 24))
	}
	cd := s.CloseDate
	lateStage := stage == "Negotiation" || stage == "Proposal"
	apply(firstMatch("close_date", []tierRule{
		{daysToClose < 0, cd.OverdueImpact, fmt.Sprintf("Overdue by %d days", -daysToClose)},
		{daysToClose <= cd.ClosingSoonWarmDays && stage == "Negotiation", cd.ClosingSoonWarmImpact,
			fmt.Sprintf("Closing in %d days while negotiating", daysToClose)},
		{daysToClose <= cd.ClosingSoonDays && lateStage, cd.ClosingSoonImpact,
			fmt.Sprintf("Closing in %d days in late stage", daysToClose)},
	}))

	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}

	return Result{
		Score:      score,
		Confidence: classify(score, factors),
		Factors:    factors,
	}
}

// classify derives the confidence tier. High is checked before Low.
func classify(score int, factors []Factor) Confidence {
	if score >= 70 && len(factors) >= 3 {
		return ConfidenceHigh
	}
	negatives := 0
	for _, f := range factors {
		if f.Impact < 0 {
			negatives++
		}
	}
	if score < 40 || negatives >= 3 {
		return ConfidenceLow
	}
	return ConfidenceMedium
}
