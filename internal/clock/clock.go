// Package clock owns calendar decisions for the feed. The daily report for a
// date is typically published the following day, so the default request date
// is "yesterday" in the feed's local calendar.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// FeedZoneName is the civil time zone the feed's calendar days follow.
const FeedZoneName = "Europe/Budapest"

// FeedZone loads the feed time zone, falling back to UTC when the zone
// database is unavailable.
func FeedZone() *time.Location {
	loc, err := time.LoadLocation(FeedZoneName)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultReportDate returns yesterday's calendar date in the feed zone,
// truncated to midnight. Same-day data is typically not yet published.
func DefaultReportDate(c clockwork.Clock, zone *time.Location) time.Time {
	now := c.Now().In(zone)
	y, m, d := now.AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, zone)
}
