package model

import "time"

const DateLayout = "2006-01-02"

// Date returns midnight UTC for the given calendar day. All log dates are
// stored this way so day arithmetic is exact.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar day t falls on in loc
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string into a calendar day
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// SameDay compares the calendar days of a and b
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the signed number of calendar days from a to b
func DaysBetween(a, b time.Time) int {
	da := Date(a.Year(), a.Month(), a.Day())
	db := Date(b.Year(), b.Month(), b.Day())
	return int(db.Sub(da).Hours() / 24)
}
