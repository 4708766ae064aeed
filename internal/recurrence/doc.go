/*
Package recurrence is the recurring-event engine: it encodes repeat
patterns into a compact rule string, expands a stored series into the
concrete occurrences visible in a date window, applies per-instance
exceptions, and resolves edit-scope decisions into storage mutations.

Everything here is a pure function over plain values. There is no I/O,
no shared state and no background work, so any goroutine may call any
function at any time, including from a request's render path.

# Rule text

A rule is persisted as a single line:

	FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR;COUNT=10

Decoding is deliberately forgiving (unknown keys ignored, any key order,
missing INTERVAL means 1) and never fails with an error:

	rule, ok := recurrence.ParseRule(text).Get()
	if !ok {
		// treat exactly like an event with no rule at all
	}

# Expanding a window

	series := recurrence.Series{
		ID:          evt.ID,
		AnchorStart: evt.StartsAt,
		AnchorEnd:   evt.EndsAt,
		Recurrence:  evt.Recurrence,
		Exceptions:  evt.Exceptions,
	}
	occs := recurrence.ExpandOccurrences(series, weekStart, weekEnd)

The window is half-open: an occurrence ending exactly at windowStart is
excluded, one merely straddling either edge is kept. A monthly rule on
the 31st simply skips 30-day months, and Feb 29 skips non-leap years;
occurrences are never clamped to month-end, so the set of in-series
dates for stored data never silently changes.

# Edit scopes

Editing or deleting one occurrence of a series resolves to a description
of storage work rather than being applied here:

	res, err := recurrence.ResolveEdit(series, occStart, edit, recurrence.ScopeThisAndFollowing)
	if err != nil {
		// stale client state, surface a conflict
	}
	// apply res.Mutate to the stored row, then insert res.Create

ScopeThisEvent excludes the occurrence and recreates it as a one-off,
ScopeThisAndFollowing clamps the rule and forks a new series, and
ScopeAllEvents rewrites the stored series in place.
*/
package recurrence
