package debugevent

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimestamp is returned by ParseTimestamp for unparsable input.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// timestampLayouts lists the accepted ISO 8601 forms: extended or basic
// dates, a "T" or space separator, hour to second precision and an optional
// zone. Layouts without a zone are interpreted in the caller's location.
// Fractional seconds are accepted after the seconds field even though the
// layouts do not spell them out.
var timestampLayouts = buildTimestampLayouts()

func buildTimestampLayouts() []string {
	dates := []string{"2006-01-02", "20060102"}
	clocks := []string{"15:04:05", "150405", "15:04", "1504", "15"}
	zones := []string{"Z07:00", "Z0700", "Z07", ""}

	var layouts []string
	for _, date := range dates {
		for _, sep := range []string{"T", " "} {
			for _, clock := range clocks {
				for _, zone := range zones {
					layouts = append(layouts, date+sep+clock+zone)
				}
			}
		}
		layouts = append(layouts, date)
	}
	return layouts
}

// ParseTimestamp parses an ISO 8601 date-time. Values carrying an offset keep
// it; naive values are attached to loc (UTC when loc is nil). Leading or
// trailing whitespace is rejected.
func ParseTimestamp(input string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if input == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, input)
}
