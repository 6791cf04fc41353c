package settings

import (
	"encoding/json"
	"math"
)

// optNum is a tolerant numeric leaf: it accepts any JSON value and records it
// only when it is a finite number. Unmarshal never fails, which is what lets
// resolution succeed on arbitrarily malformed documents.
type optNum struct {
	v *float64
}

func (o *optNum) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		o.v = &f
	}
	return nil
}

// or returns the stored value rounded to int, or def when absent/invalid.
func (o optNum) or(def int) int {
	if o.v == nil {
		return def
	}
	return int(math.Round(*o.v))
}

// Partial mirrors of the Settings groups with tolerant leaves. This is the
// first stage of resolution: raw JSON parses into these, then merges
// field-by-field into a fully-populated Settings.

type partialDealAge struct {
	WarnDays    optNum `json:"warnDays"`
	AgingDays   optNum `json:"agingDays"`
	StaleDays   optNum `json:"staleDays"`
	WarnImpact  optNum `json:"warnImpact"`
	AgingImpact optNum `json:"agingImpact"`
	StaleImpact optNum `json:"staleImpact"`
}

type partialActivity struct {
	HotDays    optNum `json:"hotDays"`
	WarmDays   optNum `json:"warmDays"`
	CoolDays   optNum `json:"coolDays"`
	ColdDays   optNum `json:"coldDays"`
	HotImpact  optNum `json:"hotImpact"`
	WarmImpact optNum `json:"warmImpact"`
	CoolImpact optNum `json:"coolImpact"`
	ColdImpact optNum `json:"coldImpact"`
}

type partialAccount struct {
	MatureDays   optNum `json:"matureDays"`
	NewDays      optNum `json:"newDays"`
	MatureImpact optNum `json:"matureImpact"`
	NewImpact    optNum `json:"newImpact"`
}

type partialStageDuration struct {
	WarnDays    optNum `json:"warnDays"`
	StuckDays   optNum `json:"stuckDays"`
	WarnImpact  optNum `json:"warnImpact"`
	StuckImpact optNum `json:"stuckImpact"`
}

type partialCloseDate struct {
	ClosingSoonDays       optNum `json:"closingSoonDays"`
	ClosingSoonWarmDays   optNum `json:"closingSoonWarmDays"`
	OverdueImpact         optNum `json:"overdueImpact"`
	ClosingSoonImpact     optNum `json:"closingSoonImpact"`
	ClosingSoonWarmImpact optNum `json:"closingSoonWarmImpact"`
}

type partialStalePanel struct {
	WarnDays  optNum `json:"warnDays"`
	AgingDays optNum `json:"agingDays"`
	StaleDays optNum `json:"staleDays"`
}

// Resolve overlays a stored settings document onto the given defaults. It
// never fails: unparseable documents, groups, or leaves fall back to the
// default for exactly the part that is unusable.
func Resolve(doc []byte, defaults Settings) Settings {
	out := defaults
	out.StageWeights = make(map[string]int, len(defaults.StageWeights))
	for k, v := range defaults.StageWeights {
		out.StageWeights[k] = v
	}

	if len(doc) == 0 {
		return out
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return out
	}

	if raw, ok := top["stageWeights"]; ok {
		var sw map[string]optNum
		if err := json.Unmarshal(raw, &sw); err == nil {
			for name, n := range sw {
				if n.v != nil {
					out.StageWeights[name] = n.or(0)
				}
			}
		}
	}

	if raw, ok := top["dealAge"]; ok {
		var p partialDealAge
		if err := json.Unmarshal(raw, &p); err == nil {
			d := defaults.DealAge
			out.DealAge = DealAgeRules{
				WarnDays:    p.WarnDays.or(d.WarnDays),
				AgingDays:   p.AgingDays.or(d.AgingDays),
				StaleDays:   p.StaleDays.or(d.StaleDays),
				WarnImpact:  p.WarnImpact.or(d.WarnImpact),
				AgingImpact: p.AgingImpact.or(d.AgingImpact),
				StaleImpact: p.StaleImpact.or(d.StaleImpact),
			}
		}
	}

	if raw, ok := top["activity"]; ok {
		var p partialActivity
		if err := json.Unmarshal(raw, &p); err == nil {
			d := defaults.Activity
			out.Activity = ActivityRules{
				HotDays:    p.HotDays.or(d.HotDays),
				WarmDays:   p.WarmDays.or(d.WarmDays),
				CoolDays:   p.CoolDays.or(d.CoolDays),
				ColdDays:   p.ColdDays.or(d.ColdDays),
				HotImpact:  p.HotImpact.or(d.HotImpact),
				WarmImpact: p.WarmImpact.or(d.WarmImpact),
				CoolImpact: p.CoolImpact.or(d.CoolImpact),
				ColdImpact: p.ColdImpact.or(d.ColdImpact),
			}
		}
	}

	if raw, ok := top["account"]; ok {
		var p partialAccount
		if err := json.Unmarshal(raw, &p); err == nil {
			d := defaults.Account
			out.Account = AccountRules{
				MatureDays:   p.MatureDays.or(d.MatureDays),
				NewDays:      p.NewDays.or(d.NewDays),
				MatureImpact: p.MatureImpact.or(d.MatureImpact),
				NewImpact:    p.NewImpact.or(d.NewImpact),
			}
		}
	}

	if raw, ok := top["stageDuration"]; ok {
		var p partialStageDuration
		if err := json.Unmarshal(raw, &p); err == nil {
			d := defaults.StageDuration
			out.StageDuration = StageDurationRules{
				WarnDays:    p.WarnDays.or(d.WarnDays),
				StuckDays:   p.StuckDays.or(d.StuckDays),
				WarnImpact:  p.WarnImpact.or(d.WarnImpact),
				StuckImpact: p.StuckImpact.or(d.StuckImpact),
			}
		}
	}

	if raw, ok := top["closeDate"]; ok {
		var p partialCloseDate
		if err := json.Unmarshal(raw, &p); err == nil {
			d := defaults.CloseDate
			out.CloseDate = CloseDateRules{
				ClosingSoonDays:       p.ClosingSoonDays.or(d.ClosingSoonDays),
				ClosingSoonWarmDays:   p.ClosingSoonWarmDays.or(d.ClosingSoonWarmDays),
				OverdueImpact:         p.OverdueImpact.or(d.OverdueImpact),
				ClosingSoonImpact:     p.ClosingSoonImpact.or(d.ClosingSoonImpact),
				ClosingSoonWarmImpact: p.ClosingSoonWarmImpact.or(d.ClosingSoonWarmImpact),
			}
		}
	}

	if raw, ok := top["stalePanel"]; ok {
		var p partialStalePanel
		if err := json.Unmarshal(raw, &p); err == nil {
			d := defaults.StalePanel
			out.StalePanel = StalePanelRules{
				WarnDays:  p.WarnDays.or(d.WarnDays),
				AgingDays: p.AgingDays.or(d.AgingDays),
				StaleDays: p.StaleDays.or(d.StaleDays),
			}
		}
	}

	return out
}
