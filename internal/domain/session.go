package domain

import "time"

// Session is a coarse label for the market session a trade was opened in.
type Session string

const (
	SessionAsian   Session = "asian"
	SessionLondon  Session = "london"
	SessionOverlap Session = "overlap"
	SessionNewYork Session = "newyork"
	SessionLateNY  Session = "late-ny"
)

// Sessions lists the known session tags in chronological order of a UTC day.
var Sessions = []Session{SessionAsian, SessionLondon, SessionOverlap, SessionNewYork, SessionLateNY}

// SessionForTime tags t by forex session based on its UTC hour.
func SessionForTime(t time.Time) Session {
	hour := t.UTC().Hour()
	switch {
	case hour < 8:
		return SessionAsian
	case hour < 13:
		return SessionLondon
	case hour < 16:
		return SessionOverlap
	case hour < 22:
		return SessionNewYork
	default:
		return SessionLateNY
	}
}

// IsMarketOpen reports whether the forex market is open at t.
// The market runs from Sunday 22:00 UTC to Friday 22:00 UTC.
func IsMarketOpen(t time.Time) bool {
	u := t.UTC()
	hour := u.Hour()
	switch u.Weekday() {
	case time.Friday:
		return hour < 22
	case time.Saturday:
		return false
	case time.Sunday:
		return hour >= 22
	default:
		return true
	}
}
