package shared

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	// NewYorkLocation is the exchange locale used for scheduling and dating.
	NewYorkLocation = "America/New_York"
	// SessionTimeLayout is the format layout for parsing times in a day.
	SessionTimeLayout = "15:04"
	// DateLayout is the format layout for daily dates.
	DateLayout = "2006-01-02"
	// DateTimeLayout is the format layout for dates with a time component.
	DateTimeLayout = "2006-01-02 15:04:05"
)

// dateLayouts are the accepted layouts for raw date cells, tried in order.
var dateLayouts = []string{
	DateLayout,
	DateTimeLayout,
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"01/02/2006",
}

// ParseDate parses a raw date cell using the accepted layouts.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		dt, err := time.Parse(layout, value)
		if err == nil {
			return dt, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format '%s'", value)
}

// NewYorkTime returns the current time in new york (EST/EDT adjusted automatically).
func NewYorkTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}
