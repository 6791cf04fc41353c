// Package timerange resolves named forecast periods and explicit date bounds
// into canonical half-open [start, endExclusive) intervals. Half-open
// semantics avoid boundary misses from time-of-day components on stored
// close dates. Resolution never fails: unparseable explicit dates fall back
// to the period-keyword calculation.
package timerange

import (
	"regexp"
	"time"
)

// Named period keywords. current_month is the default.
const (
	PeriodCurrentMonth   = "current_month"
	PeriodCurrentQuarter = "current_quarter"
	PeriodNextMonth      = "next_month"
	PeriodNextQuarter    = "next_quarter"
	PeriodCurrentYear    = "current_year"
	PeriodNextYear       = "next_year"
	PeriodCustom         = "custom"
)

// Range is a resolved reporting interval. End is inclusive for display
// (EndExclusive − 1ms); all filtering uses [Start, EndExclusive).
type Range struct {
	Period       string    `json:"period"`
	Start        time.Time `json:"startDate"`
	End          time.Time `json:"endDate"`
	EndExclusive time.Time `json:"-"`
}

var dateOnlyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// paramLayouts are tried in order for explicit bounds that are not date-only.
var paramLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Resolve maps a period keyword plus optional explicit bounds onto a Range,
// relative to now's local calendar. Explicit bounds take precedence over the
// keyword when both parse; otherwise the keyword (default current_month) wins.
func Resolve(period string, now time.Time, startRaw, endRaw string) Range {
	loc := now.Location()

	if startRaw != "" && endRaw != "" {
		start, okStart := parseParam(startRaw, loc)
		end, okEnd := parseParam(endRaw, loc)
		if okStart && okEnd {
			// endExclusive = day after the parsed end's local calendar day.
			endExclusive := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
			return Range{
				Period:       PeriodCustom,
				Start:        start,
				End:          endExclusive.Add(-time.Millisecond),
				EndExclusive: endExclusive,
			}
		}
	}

	var start, endExclusive time.Time
	switch period {
	case PeriodCurrentQuarter:
		q := (int(now.Month()) - 1) / 3
		start = time.Date(now.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, loc)
		endExclusive = start.AddDate(0, 3, 0)
	case PeriodNextQuarter:
		q := (int(now.Month()) - 1) / 3
		start = time.Date(now.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, loc).AddDate(0, 3, 0)
		endExclusive = start.AddDate(0, 3, 0)
	case PeriodNextMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
		endExclusive = start.AddDate(0, 1, 0)
	case PeriodCurrentYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		endExclusive = start.AddDate(1, 0, 0)
	case PeriodNextYear:
		start = time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, loc)
		endExclusive = start.AddDate(1, 0, 0)
	case PeriodCurrentMonth:
		fallthrough
	default:
		period = PeriodCurrentMonth
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		endExclusive = start.AddDate(0, 1, 0)
	}

	return Range{
		Period:       period,
		Start:        start,
		End:          endExclusive.Add(-time.Millisecond),
		EndExclusive: endExclusive,
	}
}

// parseParam parses an explicit date bound. Date-only strings are local
// calendar dates (no timezone shift); other shapes get a generic parse.
func parseParam(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if dateOnlyRe.MatchString(s) {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range paramLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StartOfDay returns midnight of t's local calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
