package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FlightInfo is the canonical flight identifier extracted from free-form
// prompt text by each agent. All three fields must be present and normalized
// before the record is accepted.
type FlightInfo struct {
	FlightNumber    string `json:"flight_number"`
	Date            string `json:"date"` // ISO-8601 calendar date
	DisruptionEvent string `json:"disruption_event"`
}

// flightNumberPattern matches normalized carrier flight numbers.
var flightNumberPattern = regexp.MustCompile(`^EY\d{3,4}$`)

// isoDate is the accepted calendar date layout.
const isoDate = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeFlightInfo trims, uppercases, and validates a raw extraction,
// resolving relative dates (today/yesterday/tomorrow/weekday names) against
// now. Normalization is idempotent: feeding back an already-normalized record
// returns an equal record.
func NormalizeFlightInfo(raw FlightInfo, now time.Time) (FlightInfo, error) {
	fn := strings.ToUpper(strings.TrimSpace(raw.FlightNumber))
	if !flightNumberPattern.MatchString(fn) {
		return FlightInfo{}, fmt.Errorf("%w: flight number %q does not match EY pattern", ErrInvalidFlightInfo, raw.FlightNumber)
	}

	date, err := resolveDate(raw.Date, now)
	if err != nil {
		return FlightInfo{}, err
	}

	event := strings.TrimSpace(raw.DisruptionEvent)
	if event == "" {
		return FlightInfo{}, fmt.Errorf("%w: disruption event is empty", ErrInvalidFlightInfo)
	}

	return FlightInfo{
		FlightNumber:    fn,
		Date:            date,
		DisruptionEvent: event,
	}, nil
}

// resolveDate maps a date expression to a concrete ISO-8601 date.
// Accepts an already-concrete date, the relative tokens today/yesterday/
// tomorrow, or an English weekday name (resolved to the most recent
// occurrence on or before now — disruption reports reference the past).
func resolveDate(raw string, now time.Time) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: date is empty", ErrInvalidFlightInfo)
	}

	switch s {
	case "today":
		return now.Format(isoDate), nil
	case "yesterday":
		return now.AddDate(0, 0, -1).Format(isoDate), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(isoDate), nil
	}

	if wd, ok := weekdays[s]; ok {
		delta := int(now.Weekday() - wd)
		if delta < 0 {
			delta += 7
		}
		return now.AddDate(0, 0, -delta).Format(isoDate), nil
	}

	if _, err := time.Parse(isoDate, s); err != nil {
		return "", fmt.Errorf("%w: date %q is not ISO-8601 or a recognized relative expression", ErrInvalidFlightInfo, raw)
	}
	return s, nil
}
