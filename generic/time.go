package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CLOCK - Injected "now"
// =============================================================================

// Day is one calendar day of elapsed time.
const Day = 24 * time.Hour

// Clock returns the reference instant for a run. Runs never read the wall
// clock directly; callers pass time.Now or a fixed instant.
type Clock func() time.Time

// FixedClock always returns t.
func FixedClock(t time.Time) Clock { return func() time.Time { return t } }

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// =============================================================================
// DATE UTILITIES
// =============================================================================

// DateLayoutBR is the dd/mm/yyyy layout used in every user-facing string.
const DateLayoutBR = "02/01/2006"

// DaysSince returns the fractional number of days from t to now.
// Negative when t is in the future.
func DaysSince(t, now time.Time) float64 { return now.Sub(t).Hours() / 24 }

// FormatDate renders a nullable date as dd/mm/yyyy, or "N/A" when nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format(DateLayoutBR)
}

// ParseReferenceDate parses an explicit reference instant given by a caller.
// Accepts YYYY-MM-DD, RFC3339 and dd/mm/yyyy. Unlike ParseDate, bad input is
// an error: a reference date is configuration, not spreadsheet data.
func ParseReferenceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty reference date", ErrInvalidReferenceDate)
	}
	if t := ParseDate(s); t != nil {
		return *t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReferenceDate, s)
}
