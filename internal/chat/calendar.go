package chat

import (
	"fmt"
	"time"
)

var calendarLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseCalendarDate(s string) (time.Time, bool) {
	for _, layout := range calendarLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// calendarContent renders the info line for an appointment event. The first
// present field wins: exchange date, then rental start, then rental end.
// Only that field is consulted; if its value does not parse, the whole event
// is dropped like any other malformed payload. The second return is false
// when the event must be ignored.
func calendarContent(ev CalendarEvent) (string, bool) {
	type candidate struct {
		raw    string
		format string
	}
	for _, c := range []candidate{
		{ev.ExchangeDate, "Exchange scheduled for %s"},
		{ev.RentalStartDate, "Rental starts %s"},
		{ev.RentalEndDate, "Rental ends %s"},
	} {
		if c.raw == "" {
			continue
		}
		t, ok := parseCalendarDate(c.raw)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(c.format, t.Format("January 2, 2006")), true
	}
	return "", false
}
