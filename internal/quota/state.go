package quota

import "time"

const (
	// CharactersPerMinute is the fixed cost of one minute of generated audio.
	CharactersPerMinute = 750
	// DefaultMonthlyLimit is the monthly character allowance.
	DefaultMonthlyLimit = 45000
)

// State is the persisted ledger record.
type State struct {
	TotalUsed   int       `json:"total_characters_used"`
	Limit       int       `json:"monthly_limit"`
	PeriodStart time.Time `json:"last_reset_date"`
}

// Remaining is derived from usage and never stored.
func (s State) Remaining() int {
	return max(0, s.Limit-s.TotalUsed)
}

// RemainingMinutes is the whole number of minutes the remaining allowance covers.
func (s State) RemainingMinutes() int {
	return DurationForCharacters(s.Remaining())
}

// ResetDue reports whether a calendar month has passed since PeriodStart.
// Stepping back from now clamps to the end of shorter months, so a period
// starting on Jan 31 is due on Mar 1.
func (s State) ResetDue(now time.Time) bool {
	return !monthBefore(now.In(s.PeriodStart.Location())).Before(s.PeriodStart)
}

// PeriodEnd is the first instant at which ResetDue holds.
func (s State) PeriodEnd() time.Time {
	start := s.PeriodStart
	loc := start.Location()
	year, month, day := start.Date()
	if day > daysIn(year, month+1, loc) {
		return time.Date(year, month+2, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(year, month+1, day, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), loc)
}

func monthBefore(t time.Time) time.Time {
	year, month, day := t.Date()
	day = min(day, daysIn(year, month-1, t.Location()))
	return time.Date(year, month-1, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// CharactersRequired converts a duration in minutes to its character cost.
func CharactersRequired(minutes int) int {
	return minutes * CharactersPerMinute
}

// DurationForCharacters is the inverse of CharactersRequired, rounded down.
func DurationForCharacters(characters int) int {
	return characters / CharactersPerMinute
}
