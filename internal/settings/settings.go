// Package settings resolves scoring parameters from compiled-in defaults, an
// optional YAML defaults file, and the stored settings document. Resolution
// never fails: any missing or non-numeric stored value falls back to the
// default for that field, so a corrupted document cannot take down forecasting.
package settings

// Settings is the fully-populated scoring configuration. Immutable once
// resolved for a request.
type Settings struct {
	StageWeights  map[string]int     `json:"stageWeights" yaml:"stage_weights"`
	DealAge       DealAgeRules       `json:"dealAge" yaml:"deal_age"`
	Activity      ActivityRules      `json:"activity" yaml:"activity"`
	Account       AccountRules       `json:"account" yaml:"account"`
	StageDuration StageDurationRules `json:"stageDuration" yaml:"stage_duration"`
	CloseDate     CloseDateRules     `json:"closeDate" yaml:"close_date"`
	StalePanel    StalePanelRules    `json:"stalePanel" yaml:"stale_panel"`
}

// DealAgeRules penalizes old deals; only the most severe matching tier fires.
type DealAgeRules struct {
	WarnDays    int `json:"warnDays" yaml:"warn_days"`
	AgingDays   int `json:"agingDays" yaml:"aging_days"`
	StaleDays   int `json:"staleDays" yaml:"stale_days"`
	WarnImpact  int `json:"warnImpact" yaml:"warn_impact"`
	AgingImpact int `json:"agingImpact" yaml:"aging_impact"`
	StaleImpact int `json:"staleImpact" yaml:"stale_impact"`
}

// ActivityRules score recency of the last touch on a deal. The hot, warm,
/// cold, cool branch order is part of the contract: the thresholds need not
// be monotonic and the first matching band wins.
type ActivityRules struct {
	HotDays    int `json:"hotDays" yaml:"hot_days"`
	WarmDays   int `json:"warmDays" yaml:"warm_days"`
	CoolDays   int `json:"coolDays" yaml:"cool_days"`
	ColdDays   int `json:"coldDays" yaml:"cold_days"`
	HotImpact  int `json:"hotImpact" yaml:"hot_impact"`
	WarmImpact int `json:"warmImpact" yaml:"warm_impact"`
	CoolImpact int `json:"coolImpact" yaml:"cool_impact"`
	ColdImpact int `json:"coldImpact" yaml:"cold_impact"`
}

// AccountRules reward established accounts and penalize brand-new ones.
type AccountRules struct {
	MatureDays   int `json:"matureDays" yaml:"mature_days"`
	NewDays      int `json:"newDays" yaml:"new_days"`
	MatureImpact int `json:"matureImpact" yaml:"mature_impact"`
	NewImpact    int `json:"newImpact" yaml:"new_impact"`
}

// StageDurationRules penalize deals stuck in one stage; skipped for closed deals.
type StageDurationRules struct {
	WarnDays    int `json:"warnDays" yaml:"warn_days"`
	StuckDays   int `json:"stuckDays" yaml:"stuck_days"`
	WarnImpact  int `json:"warnImpact" yaml:"warn_impact"`
	StuckImpact int `json:"stuckImpact" yaml:"stuck_impact"`
}

// CloseDateRules score close-date proximity relative to now.
type CloseDateRules struct {
	ClosingSoonDays       int `json:"closingSoonDays" yaml:"closing_soon_days"`
	ClosingSoonWarmDays   int `json:"closingSoonWarmDays" yaml:"closing_soon_warm_days"`
	OverdueImpact         int `json:"overdueImpact" yaml:"overdue_impact"`
	ClosingSoonImpact     int `json:"closingSoonImpact" yaml:"closing_soon_impact"`
	ClosingSoonWarmImpact int `json:"closingSoonWarmImpact" yaml:"closing_soon_warm_impact"`
}

// StalePanelRules are UI-facing thresholds, carried through but not scored on.
type StalePanelRules struct {
	WarnDays  int `json:"warnDays" yaml:"warn_days"`
	AgingDays int `json:"agingDays" yaml:"aging_days"`
	StaleDays int `json:"staleDays" yaml:"stale_days"`
}

// Default returns the compiled-in scoring parameters.
func Default() Settings {
	return Settings{
		StageWeights: map[string]int{
			"Lead":                         -10,
			"Qualified":                    0,
			"Quote Requested":              2,
			"Quote Sent":                   6,
			"Pending Approval":             9,
			"Proposal":                     10,
			"Approved":                     12,
			"Sent for Signature":           14,
			"Negotiation":                  15,
			"Closed Won":                   0,
			"Contract Signed / Closed Won": 0,
			"Closed Lost":                  0,
		},
		DealAge: DealAgeRules{
			WarnDays: 60, AgingDays: 90, StaleDays: 180,
			WarnImpact: -3, AgingImpact: -8, StaleImpact: -15,
		},
		Activity: ActivityRules{
			HotDays: 7, WarmDays: 14, CoolDays: 21, ColdDays: 30,
			HotImpact: 10, WarmImpact: 5, CoolImpact: -6, ColdImpact: -12,
		},
		Account: AccountRules{
			MatureDays: 365, NewDays: 30,
			MatureImpact: 8, NewImpact: -5,
		},
		StageDuration: StageDurationRules{
			WarnDays: 30, StuckDays: 60,
			WarnImpact: -5, StuckImpact: -10,
		},
		CloseDate: CloseDateRules{
			ClosingSoonDays: 7, ClosingSoonWarmDays: 14,
			OverdueImpact: -20, ClosingSoonImpact: 12, ClosingSoonWarmImpact: 8,
		},
		StalePanel: StalePanelRules{
			WarnDays: 30, AgingDays: 60, StaleDays: 90,
		},
	}
}

// StageWeight returns the weight for a stage, defaulting to 0 for unknown names.
func (s Settings) StageWeight(stage string) int {
	return s.StageWeights[stage]
}
