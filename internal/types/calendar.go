package types

import (
	"fmt"
	"time"
)

// DateKeyFormat is the canonical civil-date key used across the billing engine
const DateKeyFormat = "2006-01-02"

// DateKeyInTimeZone resolves the civil date of an instant in the given
// timezone. A cron firing at 02:00 UTC must resolve to the previous civil day
// in Buenos Aires, so never rely on UTC day boundaries here.
func DateKeyInTimeZone(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format(DateKeyFormat)
}

// StartOfLocalDay is the inverse of DateKeyInTimeZone: the instant
// corresponding to 00:00 local time of the given date key.
func StartOfLocalDay(dateKey string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyFormat, dateKey, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", dateKey, err)
	}
	return t, nil
}

// lastDayOfMonth leverages time.Date normalization: day zero of the next
// month is the last day of this month.
func lastDayOfMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// AnchorDateForMonth clamps anchorDay (1-31) to the actual length of the
// instant's local month and returns that day's local midnight. Billing must
// never skip or double-fire when a month has fewer days than the configured
// anchor day: day 31 in February becomes the 28th (29th on leap years).
func AnchorDateForMonth(instant time.Time, anchorDay int, loc *time.Location) time.Time {
	local := instant.In(loc)
	year, month, _ := local.Date()

	day := anchorDay
	if day < 1 {
		day = 1
	}
	if last := lastDayOfMonth(year, month, loc); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// NextAnchorDate applies the same clamping rule to the month following
// prevAnchor. The clamp is recomputed against the new month, so a
// day-31 subscription lands on Feb 28 and then back on Mar 31.
func NextAnchorDate(prevAnchor time.Time, anchorDay int, loc *time.Location) time.Time {
	local := prevAnchor.In(loc)
	year, month, _ := local.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	return AnchorDateForMonth(firstOfNext, anchorDay, loc)
}

// AddDaysLocal performs civil-day arithmetic by round-tripping through a
// normalized local midnight, so it is immune to DST transitions shortening
// or stretching the wall clock.
func AddDaysLocal(t time.Time, days int, loc *time.Location) time.Time {
	local := t.In(loc)
	year, month, day := local.Date()
	return time.Date(year, month, day+days, 0, 0, 0, 0, loc)
}

// FullDaysBetweenLocal counts whole civil days between two instants in the
// given timezone. The subtraction happens on UTC-projected midnights so a
// 23-hour DST day still counts as one day.
func FullDaysBetweenLocal(a, b time.Time, loc *time.Location) int {
	al := a.In(loc)
	bl := b.In(loc)
	au := time.Date(al.Year(), al.Month(), al.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(bl.Year(), bl.Month(), bl.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}
