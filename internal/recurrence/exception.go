package recurrence

import (
	"strings"
	"time"
)

// ExceptionSet holds the instants a series has explicitly excluded.
// Matching is exact: an exception suppresses the occurrence starting at
// that very instant, never "anything on that day". An entry that was
// recorded against an instant the series cannot produce, or that does
// not parse at all, matches nothing and is silently carried along.
type ExceptionSet struct {
	instants []time.Time
}

// NewExceptionSet parses the stored exception strings of a series.
func NewExceptionSet(entries []string) ExceptionSet {
	var set ExceptionSet
	for _, entry := range entries {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(entry))
		if err != nil {
			continue
		}
		set.instants = append(set.instants, t)
	}
	return set
}

// Len returns the number of usable instants in the set.
func (s ExceptionSet) Len() int {
	return len(s.instants)
}

// Contains reports whether start names an excluded instant.
func (s ExceptionSet) Contains(start time.Time) bool {
	for _, t := range s.instants {
		if t.Equal(start) {
			return true
		}
	}
	return false
}

// FilterExceptions drops the occurrences whose start is in set and
// leaves every other occurrence untouched, preserving order.
func FilterExceptions(occurrences []Occurrence, set ExceptionSet) []Occurrence {
	if set.Len() == 0 {
		return occurrences
	}
	kept := make([]Occurrence, 0, len(occurrences))
	for _, o := range occurrences {
		if set.Contains(o.Start) {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}
