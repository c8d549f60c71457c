/*
parse.go - Locale-aware value parsers

PURPOSE:
  Spreadsheet cells are unreliable. The same column can hold 12,5 in one row,
  "12.5" in the next and nothing at all in the third; a date can be a Brazilian
  DD/MM/YYYY string, an ISO string or an Excel serial number. These parsers
  turn any of that into a typed value without ever failing.

DEFAULTING RULES:
  Numbers: absent or unparseable -> zero. In this domain a missing count IS zero.
           The whole cell must be a number: "12abc" and "1.234,5" read as zero,
           not as a numeric prefix.
  Dates:   absent or unparseable -> nil. A missing date is NOT the epoch.

SERIAL DATES:
  Excel counts days from 1899-12-30. Unix epoch is serial 25569, so:
    unixMillis = round((serial - 25569) * 86400 * 1000)

SEE ALSO:
  - normalize.go: Keys are normalized before values are parsed
  - convocacao/records.go: Typed rows built from these parsers
*/
package generic

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// ExcelEpochOffset is the serial number of 1970-01-01 in Excel's date system.
const ExcelEpochOffset = 25569

var genericDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// =============================================================================
// DATES
// =============================================================================

// ParseDate parses a serial number or a date string. Returns nil on empty,
// unparseable or calendar-invalid input.
func ParseDate(v any) *time.Time {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return parseDateString(val)
	case decimal.Decimal:
		f, _ := val.Float64()
		return fromSerial(f)
	default:
		if f, ok := toFloat(v); ok {
			return fromSerial(f)
		}
	}
	return nil
}

func fromSerial(serial float64) *time.Time {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return nil
	}
	ms := math.Round((serial - ExcelEpochOffset) * 86400 * 1000)
	// Outside what time.Time can represent as unix millis.
	if math.Abs(ms) > 8.64e15 {
		return nil
	}
	t := time.UnixMilli(int64(ms)).UTC()
	return &t
}

func parseDateString(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.Contains(s, "/") {
		if parts := strings.Split(s, "/"); len(parts) == 3 {
			return parseDayMonthYear(parts)
		}
	}

	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// parseDayMonthYear builds a DD/MM/YYYY date and rejects anything that
// time.Date would silently roll over (31/02 -> 03/03).
func parseDayMonthYear(parts []string) *time.Time {
	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil
	}
	// "15/08/2023 10:30" -> year "2023"
	yearFields := strings.Fields(parts[2])
	if len(yearFields) == 0 {
		return nil
	}
	year, err := strconv.Atoi(yearFields[0])
	if err != nil || year <= 0 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return &t
}

// Recency returns the most recent valid date among values, or nil.
func Recency(values ...any) *time.Time {
	var max *time.Time
	for _, v := range values {
		d := ParseDate(v)
		if d == nil {
			continue
		}
		if max == nil || d.After(*max) {
			max = d
		}
	}
	return max
}

// =============================================================================
// NUMBERS
// =============================================================================

// ParseNumber parses a numeric cell. Strings lose all whitespace and a
// decimal comma becomes a point. Anything unparseable is zero.
func ParseNumber(v any) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return val
	case string:
		return parseNumberString(val)
	}
	if f, ok := toFloat(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}

func parseNumberString(s string) decimal.Decimal {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var (
	maxInt = decimal.NewFromInt(math.MaxInt)
	minInt = decimal.NewFromInt(math.MinInt)
)

// ParseInt parses a count cell, truncating any fractional part. Values beyond
// the int range saturate at math.MaxInt / math.MinInt.
func ParseInt(v any) int {
	d := ParseNumber(v).Truncate(0)
	switch {
	case d.GreaterThan(maxInt):
		return math.MaxInt
	case d.LessThan(minInt):
		return math.MinInt
	}
	return int(d.IntPart())
}

// NonNegative clamps a parsed quantity at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// STRINGS
// =============================================================================

// ParseString coerces an identifier or label cell to trimmed text. Numeric
// cells are formatted without exponent or trailing zeros (1001.0 -> "1001").
func ParseString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case decimal.Decimal:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}
