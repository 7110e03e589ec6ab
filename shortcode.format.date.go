package shortcode

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
)

// Date layouts
const (
	DateFormatISO      = "2006-01-02"
	DateFormatCompact  = "20060102"
	DateFormatUSLong   = "January 2, 2006"
	DateFormatUKLong   = "2 January 2006"
	DateFormatDotted   = "02.01.2006"
	DateFormatSlashEU  = "02/01/2006"
	DateFormatSlashISO = "2006/01/02"
	TimeFormat12H      = "3:04 PM"
	TimeFormat24H      = "15:04"

	RelativePastLabel   = "ago"
	RelativeFutureLabel = "from now"
)

// Layouts tried in order when a date arrives as a string
var dateParseLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	DateFormatISO,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	DateFormatCompact,
	DateFormatSlashISO,
	time.RFC1123,
	time.RFC1123Z,
	DateFormatUSLong,
}

// dateLayout describes the display layout for one language/region.
type dateLayout struct {
	date    string
	clock   string
	regions map[language.Region]string
}

// Display layouts by base language; regions may override the date part.
var dateLayouts = map[string]dateLayout{
	"en": {
		date:  DateFormatUKLong,
		clock: TimeFormat24H,
		regions: map[language.Region]string{
			language.MustParseRegion("US"): DateFormatUSLong,
		},
	},
	"de": {date: DateFormatDotted, clock: TimeFormat24H},
	"fr": {date: DateFormatSlashEU, clock: TimeFormat24H},
	"es": {date: DateFormatSlashEU, clock: TimeFormat24H},
	"it": {date: DateFormatSlashEU, clock: TimeFormat24H},
	"nl": {date: "02-01-2006", clock: TimeFormat24H},
	"ja": {date: DateFormatSlashISO, clock: TimeFormat24H},
}

// layoutsFor returns the date and time layouts for tag. Unknown languages use ISO.
func layoutsFor(tag language.Tag) (string, string) {
	base, _ := tag.Base()
	layout, ok := dateLayouts[base.String()]
	if !ok {
		return DateFormatISO, TimeFormat24H
	}
	clock := layout.clock
	region, conf := tag.Region()
	if override, ok := layout.regions[region]; ok && conf != language.No {
		if base.String() == "en" {
			clock = TimeFormat12H
		}
		return override, clock
	}
	return layout.date, clock
}

// toTime converts the value shapes content services use for dates.
func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, !v.IsZero()
	case int:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0).UTC(), true
	case string:
		return parseTimeString(v)
	default:
		return time.Time{}, false
	}
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateParseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Unix seconds as a string, as some meta stores return them
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && len(s) > len(DateFormatCompact) {
		return time.Unix(n, 0).UTC(), true
	}
	return time.Time{}, false
}

// formatDate renders t in the formatter's locale.
func (f *Formatter) formatDate(t time.Time, withClock bool) string {
	date, clock := layoutsFor(f.locale)
	if withClock {
		return t.Format(date + " " + clock)
	}
	return t.Format(date)
}

// formatRelative renders t relative to the formatter's clock, e.g. "3 days ago".
func (f *Formatter) formatRelative(t time.Time) string {
	return humanize.RelTime(t, f.now(), RelativePastLabel, RelativeFutureLabel)
}
