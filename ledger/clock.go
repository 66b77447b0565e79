package ledger

import "time"

// DayLayout is the canonical calendar-day key format. All day arithmetic
// in the ledger happens on UTC day strings; user-local midnight is
// deliberately not used so that a day key means the same thing on every
// call site.
const DayLayout = "2006-01-02"

// Clock supplies "today" so the engine never reads the wall clock
// directly. Tests substitute a fixed clock.
type Clock interface {
	Today() string
}

type utcClock struct{}

func (utcClock) Today() string {
	return time.Now().UTC().Format(DayLayout)
}

// SystemClock returns the production clock: UTC midnight day boundaries.
func SystemClock() Clock {
	return utcClock{}
}

// FixedClock always reports the same day. Test helper.
type FixedClock string

// Today returns the fixed day.
func (c FixedClock) Today() string { return string(c) }

// AddDays shifts a day key by n calendar days. Malformed input yields
// the zero day, which never matches a stored record.
func AddDays(day string, n int) string {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, n).Format(DayLayout)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b string) int {
	ta, err := time.Parse(DayLayout, a)
	if err != nil {
		return 0
	}
	tb, err := time.Parse(DayLayout, b)
	if err != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}
