package scoring

import (
	"regexp"
	"strings"
	"time"
)

var deadlineLayouts = []string{ //nolint:gochecknoglobals // read-only layout list
	"2006-01-02",
	"2 January 2006",
	"02 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
}

var (
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\b`)
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// ParseDeadline extracts a deadline from free text such as
// "18 September 2026 17:00:00 Brussels time". Date-only values resolve to the
// end of that day in UTC.
func ParseDeadline(text string) (time.Time, bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, true
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			if strings.Contains(layout, ":") {
				return t, true
			}
			return endOfDay(t), true
		}
	}

	if m := dayMonthYearRe.FindStringSubmatch(text); m != nil {
		month := strings.ToUpper(m[2][:1]) + strings.ToLower(m[2][1:])
		if t, err := time.Parse("2 January 2006", m[1]+" "+month+" "+m[3]); err == nil {
			return endOfDay(t), true
		}
	}
	if m := isoDateRe.FindString(text); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return endOfDay(t), true
		}
	}
	return time.Time{}, false
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
