package core

import "time"

// All temporal comparisons for outpass validity live here so that bound
// semantics (inclusive window edges, minute-floored lateness) are defined
// exactly once.

// InWindow reports whether now lies within [from, to], bounds inclusive.
func InWindow(now, from, to time.Time) bool {
	return !now.Before(from) && !now.After(to)
}

// Expired reports whether now is strictly past the expiry instant.
func Expired(now, expiry time.Time) bool {
	return now.After(expiry)
}

// LateMinutes returns the number of whole minutes by which entry exceeds
// the deadline. Returns 0 for on-time or early returns.
func LateMinutes(entry, deadline time.Time) int {
	if !entry.After(deadline) {
		return 0
	}
	return int(entry.Sub(deadline) / time.Minute)
}
