package model

import "time"

// IsWithinActiveWindow reports whether now lies inside the closed interval
// [from, to]. A window with either bound missing is never active.
func IsWithinActiveWindow(from, to *time.Time, now time.Time) bool {
	if from == nil || to == nil {
		return false
	}
	return !now.Before(*from) && !now.After(*to)
}

// TimePtr returns a pointer to t. Handy for building windows in callers and tests.
func TimePtr(t time.Time) *time.Time {
	return &t
}
