package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }

// applyMutation folds a resolution's mutation back into a series the
// way the storage layer would, so tests can re-expand the result.
func applyMutation(s Series, m *SeriesMutation) Series {
	if m == nil {
		return s
	}
	if m.Title != nil {
		s.Title = *m.Title
	}
	if m.Description != nil {
		s.Description = *m.Description
	}
	if m.Location != nil {
		s.Location = *m.Location
	}
	if m.AnchorStart != nil {
		s.AnchorStart = *m.AnchorStart
	}
	if m.AnchorEnd != nil {
		s.AnchorEnd = *m.AnchorEnd
	}
	if m.AllDay != nil {
		s.AllDay = *m.AllDay
	}
	if m.Recurrence != nil {
		s.Recurrence = *m.Recurrence
	}
	if m.Exceptions != nil {
		s.Exceptions = m.Exceptions
	}
	return s
}

func standupSeries() Series {
	// Daily standup 09:00-09:15 from Monday Jan 1, 2024
	return Series{
		ID:          "standup",
		Title:       "Standup",
		AnchorStart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		AnchorEnd:   time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		Recurrence:  "FREQ=DAILY;INTERVAL=1",
	}
}

func TestResolveEditThisEvent(t *testing.T) {
	series := standupSeries()
	occStart := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)

	res, err := ResolveEdit(series, occStart, Edit{
		Title: strPtr("Standup (moved)"),
		Start: timePtr(time.Date(2024, 1, 3, 11, 0, 0, 0, time.UTC)),
	}, ScopeThisEvent)
	require.NoError(t, err)

	require.NotNil(t, res.Mutate)
	assert.Equal(t, []string{"2024-01-03T09:00:00Z"}, res.Mutate.Exceptions)
	assert.Nil(t, res.Mutate.Recurrence)
	assert.False(t, res.DeleteSeries)

	require.NotNil(t, res.Create)
	assert.Equal(t, "Standup (moved)", res.Create.Title)
	assert.Empty(t, res.Create.Recurrence, "detached event must not recur")
	assert.Equal(t, time.Date(2024, 1, 3, 11, 0, 0, 0, time.UTC), res.Create.AnchorStart)
	// duration carried over from the series anchor
	assert.Equal(t, time.Date(2024, 1, 3, 11, 15, 0, 0, time.UTC), res.Create.AnchorEnd)

	// re-expanding the mutated original omits exactly that occurrence
	mutated := applyMutation(series, res.Mutate)
	occs := ExpandOccurrences(mutated,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
	}, starts(occs))
}

func TestResolveEditThisAndFollowing(t *testing.T) {
	series := standupSeries()
	occStart := time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)

	res, err := ResolveEdit(series, occStart, Edit{
		Start: timePtr(time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC)),
	}, ScopeThisAndFollowing)
	require.NoError(t, err)

	require.NotNil(t, res.Mutate)
	require.NotNil(t, res.Mutate.Recurrence)
	assert.Equal(t, "FREQ=DAILY;INTERVAL=1;UNTIL=2024-01-04T08:59:59Z", *res.Mutate.Recurrence)

	// the clamped original produces nothing at or after the split point
	mutated := applyMutation(series, res.Mutate)
	remaining := ExpandOccurrences(mutated,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
	}, starts(remaining))

	// the fork continues the pattern from the edited start
	require.NotNil(t, res.Create)
	assert.Equal(t, series.Recurrence, res.Create.Recurrence)
	assert.Empty(t, res.Create.Exceptions)
	fork := *res.Create
	fork.ID = "fork"
	forkOccs := ExpandOccurrences(fork,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC),
	}, starts(forkOccs))
}

func TestResolveEditThisAndFollowingAtAnchorBecomesAllEvents(t *testing.T) {
	series := standupSeries()

	res, err := ResolveEdit(series, series.AnchorStart, Edit{
		Title: strPtr("Morning sync"),
	}, ScopeThisAndFollowing)
	require.NoError(t, err)

	// no split happened: the series is rewritten in place instead
	assert.Nil(t, res.Create)
	require.NotNil(t, res.Mutate)
	require.NotNil(t, res.Mutate.Title)
	assert.Equal(t, "Morning sync", *res.Mutate.Title)
	assert.Nil(t, res.Mutate.Recurrence)
}

func TestResolveEditAllEvents(t *testing.T) {
	series := standupSeries()
	occStart := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	t.Run("Field-only edit touches nothing else", func(t *testing.T) {
		res, err := ResolveEdit(series, occStart, Edit{
			Title:       strPtr("Daily sync"),
			Description: strPtr("Keep it short"),
		}, ScopeAllEvents)
		require.NoError(t, err)

		assert.Nil(t, res.Create)
		require.NotNil(t, res.Mutate)
		assert.Equal(t, "Daily sync", *res.Mutate.Title)
		assert.Equal(t, "Keep it short", *res.Mutate.Description)
		assert.Nil(t, res.Mutate.AnchorStart)
		assert.Nil(t, res.Mutate.AnchorEnd)
		assert.Nil(t, res.Mutate.Exceptions)
	})

	t.Run("Moved start shifts the whole series uniformly", func(t *testing.T) {
		// drag the Jan 5 occurrence from 09:00 to 11:30
		res, err := ResolveEdit(series, occStart, Edit{
			Start: timePtr(time.Date(2024, 1, 5, 11, 30, 0, 0, time.UTC)),
		}, ScopeAllEvents)
		require.NoError(t, err)

		require.NotNil(t, res.Mutate.AnchorStart)
		require.NotNil(t, res.Mutate.AnchorEnd)
		assert.Equal(t, time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC), *res.Mutate.AnchorStart)
		// duration preserved
		assert.Equal(t, time.Date(2024, 1, 1, 11, 45, 0, 0, time.UTC), *res.Mutate.AnchorEnd)
	})

	t.Run("Moved end stretches every occurrence", func(t *testing.T) {
		// extend the Jan 5 occurrence to 09:45
		res, err := ResolveEdit(series, occStart, Edit{
			End: timePtr(time.Date(2024, 1, 5, 9, 45, 0, 0, time.UTC)),
		}, ScopeAllEvents)
		require.NoError(t, err)

		assert.Nil(t, res.Mutate.AnchorStart)
		require.NotNil(t, res.Mutate.AnchorEnd)
		assert.Equal(t, time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC), *res.Mutate.AnchorEnd)
	})
}

func TestResolveEditRefusesUnknownOccurrence(t *testing.T) {
	series := standupSeries()

	tests := []struct {
		name  string
		start time.Time
	}{
		{
			name:  "Instant the series never produces",
			start: time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "Instant before the anchor",
			start: time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, scope := range []Scope{ScopeThisEvent, ScopeThisAndFollowing, ScopeAllEvents} {
				_, err := ResolveEdit(series, tt.start, Edit{Title: strPtr("x")}, scope)
				assert.ErrorIs(t, err, ErrOccurrenceNotFound)
			}
		})
	}
}

func TestResolveEditRefusesExcludedOccurrence(t *testing.T) {
	series := standupSeries()
	series.Exceptions = []string{"2024-01-03T09:00:00Z"}

	_, err := ResolveEdit(series,
		time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		Edit{Title: strPtr("x")}, ScopeThisEvent)
	assert.ErrorIs(t, err, ErrOccurrenceNotFound)
}

func TestResolveDelete(t *testing.T) {
	series := standupSeries()

	t.Run("This event records an exception", func(t *testing.T) {
		occStart := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
		res, err := ResolveDelete(series, occStart, ScopeThisEvent)
		require.NoError(t, err)

		assert.Nil(t, res.Create)
		assert.False(t, res.DeleteSeries)
		require.NotNil(t, res.Mutate)
		assert.Equal(t, []string{"2024-01-02T09:00:00Z"}, res.Mutate.Exceptions)
	})

	t.Run("This and following clamps the rule", func(t *testing.T) {
		occStart := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
		res, err := ResolveDelete(series, occStart, ScopeThisAndFollowing)
		require.NoError(t, err)

		assert.Nil(t, res.Create)
		assert.False(t, res.DeleteSeries)
		require.NotNil(t, res.Mutate.Recurrence)
		assert.Equal(t, "FREQ=DAILY;INTERVAL=1;UNTIL=2024-01-10T08:59:59Z", *res.Mutate.Recurrence)
	})

	t.Run("This and following at the anchor deletes the series", func(t *testing.T) {
		res, err := ResolveDelete(series, series.AnchorStart, ScopeThisAndFollowing)
		require.NoError(t, err)
		assert.True(t, res.DeleteSeries)
	})

	t.Run("All events deletes the series", func(t *testing.T) {
		res, err := ResolveDelete(series,
			time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC), ScopeAllEvents)
		require.NoError(t, err)

		assert.True(t, res.DeleteSeries)
		assert.Nil(t, res.Mutate)
		assert.Nil(t, res.Create)
	})

	t.Run("Stale occurrence is refused", func(t *testing.T) {
		_, err := ResolveDelete(series,
			time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC), ScopeAllEvents)
		assert.ErrorIs(t, err, ErrOccurrenceNotFound)
	})
}

func TestScopeWireNames(t *testing.T) {
	for _, scope := range []Scope{ScopeThisEvent, ScopeThisAndFollowing, ScopeAllEvents} {
		parsed, err := ParseScope(scope.String())
		require.NoError(t, err)
		assert.Equal(t, scope, parsed)
	}

	_, err := ParseScope("everything-ever")
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestAppendExceptionDeduplicates(t *testing.T) {
	existing := []string{"2024-01-02T09:00:00Z"}

	same := appendException(existing, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, existing, same)

	// equal instant written with an offset still counts as present
	offset := appendException([]string{"2024-01-02T10:00:00+01:00"},
		time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"2024-01-02T10:00:00+01:00"}, offset)

	grown := appendException(existing, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"2024-01-02T09:00:00Z", "2024-01-03T09:00:00Z"}, grown)
}
