// Package recurring schedules and executes automatic periodic gold
// purchases. Date arithmetic works on calendar days normalized to midnight
// UTC; a plan is due once its next execution date is not in the future.
package recurring

import (
	"time"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
)

// Day truncates t to its calendar day at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextDate computes the execution date following current for the given
// frequency. It always advances by at least one day.
func NextDate(current time.Time, frequency string, executionDay int) time.Time {
	cur := Day(current)
	switch frequency {
	case domain.FrequencyDaily:
		return cur.AddDate(0, 0, 1)
	case domain.FrequencyWeekly:
		delta := (executionDay - isoWeekday(cur) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return cur.AddDate(0, 0, delta)
	case domain.FrequencyMonthly:
		y, m, _ := cur.Date()
		m++ // time.Date normalizes month 13 to January next year
		return time.Date(y, m, clampDay(executionDay, y, m), 0, 0, 0, 0, time.UTC)
	case domain.FrequencyYearly:
		y, m, d := cur.Date()
		return time.Date(y+1, m, clampDay(d, y+1, m), 0, 0, 0, 0, time.UTC)
	}
	return cur.AddDate(0, 0, 1)
}

// FirstDate computes the first execution date of a plan starting at start.
// Unlike NextDate, the start day itself counts when it matches.
func FirstDate(start time.Time, frequency string, executionDay int) time.Time {
	s := Day(start)
	switch frequency {
	case domain.FrequencyDaily, domain.FrequencyYearly:
		return s
	case domain.FrequencyWeekly:
		delta := (executionDay - isoWeekday(s) + 7) % 7
		return s.AddDate(0, 0, delta)
	case domain.FrequencyMonthly:
		y, m, _ := s.Date()
		candidate := time.Date(y, m, clampDay(executionDay, y, m), 0, 0, 0, 0, time.UTC)
		if candidate.Before(s) {
			m++
			candidate = time.Date(y, m, clampDay(executionDay, y, m), 0, 0, 0, 0, time.UTC)
		}
		return candidate
	}
	return s
}

// ValidateSchedule checks frequency and executionDay consistency.
func ValidateSchedule(frequency string, executionDay int) error {
	switch frequency {
	case domain.FrequencyDaily, domain.FrequencyYearly:
		return nil
	case domain.FrequencyWeekly:
		if executionDay < 1 || executionDay > 7 {
			return apperr.BadRequest("weekly plans need an ISO weekday between 1 (Monday) and 7 (Sunday), got %d", executionDay)
		}
		return nil
	case domain.FrequencyMonthly:
		if executionDay < 1 || executionDay > 31 {
			return apperr.BadRequest("monthly plans need a day of month between 1 and 31, got %d", executionDay)
		}
		return nil
	}
	return apperr.BadRequest("unknown frequency %q", frequency)
}

// isoWeekday maps time.Weekday to ISO 8601 numbering, 1=Monday..7=Sunday.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// clampDay clamps a day-of-month to the length of the given month.
// time.Date normalizes out-of-range months before the clamp applies.
func clampDay(day int, year int, month time.Month) int {
	if day < 1 {
		return 1
	}
	lastOfMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastOfMonth {
		return lastOfMonth
	}
	return day
}
