package savings

import (
	"errors"
	"strings"
	"time"

	"kosh/internal/models"
)

var ErrUnknownFrequency = errors.New("unknown frequency")

// ParseFrequency accepts the three schedule names case-insensitively.
func ParseFrequency(raw string) (models.Frequency, error) {
	switch f := models.Frequency(strings.ToLower(strings.TrimSpace(raw))); f {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyBiWeekly:
		return f, nil
	default:
		return "", ErrUnknownFrequency
	}
}

// PeriodDays is the number of calendar days in one contribution period.
func PeriodDays(f models.Frequency) int {
	switch f {
	case models.FrequencyDaily:
		return 1
	case models.FrequencyWeekly:
		return 7
	case models.FrequencyBiWeekly:
		return 14
	default:
		return 0
	}
}

// Advance moves t forward by n periods in calendar days, so wall-clock time
// is kept across DST changes.
func Advance(t time.Time, f models.Frequency, n int) time.Time {
	return t.AddDate(0, 0, PeriodDays(f)*n)
}

// Schedule returns the end date and the first next-due date for a plan that
// starts at start and runs for duration periods.
func Schedule(start time.Time, f models.Frequency, duration int) (endDate, nextDue time.Time) {
	return Advance(start, f, duration), Advance(start, f, 1)
}
