package validation

import (
	"errors"
	"strings"
	"time"
)

// ErrDateEmpty is returned when the date is empty or whitespace-only after trim.
var ErrDateEmpty = errors.New("date is required")

// ErrDateFormat is returned when the date does not parse as YYYY-MM-DD.
var ErrDateFormat = errors.New("date must be YYYY-MM-DD")

// ErrDateInFuture is returned for dates after the latest allowed day.
var ErrDateInFuture = errors.New("date is in the future")

// ErrDateTooOld is returned for dates before the earliest allowed day.
var ErrDateTooOld = errors.New("date is too old")

// DateFormat is the wire format for report dates.
const DateFormat = "2006-01-02"

// ValidateDate parses input as an ISO calendar date in zone and enforces
// [earliest, latest] bounds (either bound is skipped when zero). Returns a
// midnight time in zone or an error suitable for 400 INVALID_DATE responses.
func ValidateDate(input string, earliest, latest time.Time, zone *time.Location) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, ErrDateEmpty
	}
	d, err := time.ParseInLocation(DateFormat, s, zone)
	if err != nil {
		return time.Time{}, ErrDateFormat
	}
	if !latest.IsZero() && d.After(latest) {
		return time.Time{}, ErrDateInFuture
	}
	if !earliest.IsZero() && d.Before(earliest) {
		return time.Time{}, ErrDateTooOld
	}
	return d, nil
}
