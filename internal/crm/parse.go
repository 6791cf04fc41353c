package crm

import (
	"regexp"
	"time"
)

var dateOnlyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// legacyLayouts are tried in order for non-date-only legacy strings.
var legacyLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z0700",
}

// ParseLegacyTime converts a raw payload value into a timestamp. Date-only
// strings (YYYY-MM-DD) are anchored at midday UTC so the displayed calendar
// day survives rendering in any client timezone. Unparseable values report
// ok=false and are left for the caller to skip.
func ParseLegacyTime(v any) (time.Time, bool) {
	switch s := v.(type) {
	case time.Time:
		return s, true
	case string:
		if s == "" {
			return time.Time{}, false
		}
		if dateOnlyRe.MatchString(s) {
			d, err := time.Parse("2006-01-02", s)
			if err != nil {
				return time.Time{}, false
			}
			return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC), true
		}
		for _, layout := range legacyLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
