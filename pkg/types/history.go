package types

import (
	"slices"
	"time"
)

// History returns the done tasks of a collection, most recently completed
// first. Done tasks without a completion time sort last. The input is not
// modified.
func History(tasks []Task) []Task {
	done := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == StatusDone {
			done = append(done, t.Clone())
		}
	}
	slices.SortStableFunc(done, func(a, b Task) int {
		return compareCompleted(b.CompletedAt, a.CompletedAt)
	})
	return done
}

// compareCompleted orders nil before any time, then by time.
func compareCompleted(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}
