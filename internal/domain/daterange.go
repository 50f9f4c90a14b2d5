package domain

import "time"

// RangesOverlap reports whether the half-open ranges [aStart, aEnd) and
// [bStart, bEnd) intersect: aStart < bEnd && bStart < aEnd. One guest's
// checkout day may be another's check-in day.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidStayRange reports whether checkIn < checkOut and checkIn is not in the
// past relative to today (dates compared at UTC midnight).
func ValidStayRange(checkIn, checkOut, today time.Time) bool {
	if !checkIn.Before(checkOut) {
		return false
	}
	return !checkIn.Before(today)
}

// Midnight truncates t to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
