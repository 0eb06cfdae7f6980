package recurring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDateDaily(t *testing.T) {
	assert.Equal(t, date(2026, time.March, 2), NextDate(date(2026, time.March, 1), domain.FrequencyDaily, 0))
}

func TestNextDateWeeklyAlwaysAdvances(t *testing.T) {
	// 2026-03-02 is a Monday.
	monday := date(2026, time.March, 2)

	// Same weekday requested: jump a full week, never stay put.
	assert.Equal(t, date(2026, time.March, 9), NextDate(monday, domain.FrequencyWeekly, 1))
	// Wednesday (3) is two days ahead.
	assert.Equal(t, date(2026, time.March, 4), NextDate(monday, domain.FrequencyWeekly, 3))
	// Sunday is ISO day 7.
	assert.Equal(t, date(2026, time.March, 8), NextDate(monday, domain.FrequencyWeekly, 7))
}

func TestNextDateMonthlyClampsShortMonths(t *testing.T) {
	// Day 31 from January lands on the last day of February...
	assert.Equal(t, date(2026, time.February, 28), NextDate(date(2026, time.January, 31), domain.FrequencyMonthly, 31))
	// ...or Feb 29 in a leap year...
	assert.Equal(t, date(2028, time.February, 29), NextDate(date(2028, time.January, 31), domain.FrequencyMonthly, 31))
	// ...and recovers to the 31st the following month.
	assert.Equal(t, date(2026, time.March, 31), NextDate(date(2026, time.February, 28), domain.FrequencyMonthly, 31))
}

func TestNextDateMonthlyYearRollover(t *testing.T) {
	assert.Equal(t, date(2027, time.January, 15), NextDate(date(2026, time.December, 15), domain.FrequencyMonthly, 15))
}

func TestNextDateYearly(t *testing.T) {
	assert.Equal(t, date(2027, time.June, 10), NextDate(date(2026, time.June, 10), domain.FrequencyYearly, 0))
	// Feb 29 clamps to Feb 28 in the following non-leap year.
	assert.Equal(t, date(2029, time.February, 28), NextDate(date(2028, time.February, 29), domain.FrequencyYearly, 0))
}

func TestFirstDate(t *testing.T) {
	// Daily and yearly start immediately.
	start := date(2026, time.March, 2) // a Monday
	assert.Equal(t, start, FirstDate(start, domain.FrequencyDaily, 0))
	assert.Equal(t, start, FirstDate(start, domain.FrequencyYearly, 0))

	// Weekly: the start day's own weekday counts.
	assert.Equal(t, start, FirstDate(start, domain.FrequencyWeekly, 1))
	assert.Equal(t, date(2026, time.March, 6), FirstDate(start, domain.FrequencyWeekly, 5))

	// Monthly: this month if the day hasn't passed, else next month.
	assert.Equal(t, date(2026, time.March, 15), FirstDate(date(2026, time.March, 10), domain.FrequencyMonthly, 15))
	assert.Equal(t, date(2026, time.April, 5), FirstDate(date(2026, time.March, 10), domain.FrequencyMonthly, 5))
	// Day clamped to month length: 31 in April becomes April 30.
	assert.Equal(t, date(2026, time.April, 30), FirstDate(date(2026, time.April, 10), domain.FrequencyMonthly, 31))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(domain.FrequencyDaily, 0))
	assert.NoError(t, ValidateSchedule(domain.FrequencyWeekly, 7))
	assert.NoError(t, ValidateSchedule(domain.FrequencyMonthly, 31))

	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(ValidateSchedule(domain.FrequencyWeekly, 8)))
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(ValidateSchedule(domain.FrequencyMonthly, 0)))
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(ValidateSchedule("FORTNIGHTLY", 1)))
}
