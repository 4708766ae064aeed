package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRule(t *testing.T) {
	// Monday morning anchor, so derived weekday/day-of-month defaults
	// are easy to read off
	anchor := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rule     Rule
		expected string
	}{
		{
			name:     "Daily with default interval",
			rule:     Rule{Freq: Daily},
			expected: "FREQ=DAILY;INTERVAL=1",
		},
		{
			name:     "Interval below one is clamped",
			rule:     Rule{Freq: Daily, Interval: -3},
			expected: "FREQ=DAILY;INTERVAL=1",
		},
		{
			name: "Weekly with explicit days",
			rule: Rule{Freq: Weekly, Interval: 2, ByWeekdays: []time.Weekday{time.Friday, time.Monday, time.Wednesday}},
			// days are normalized Monday-first no matter how they were given
			expected: "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR",
		},
		{
			name:     "Weekly derives the anchor weekday",
			rule:     Rule{Freq: Weekly, Interval: 1},
			expected: "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
		},
		{
			name:     "Monthly derives the anchor day",
			rule:     Rule{Freq: Monthly, Interval: 1},
			expected: "FREQ=MONTHLY;INTERVAL=1;BYMONTHDAY=15",
		},
		{
			name:     "Monthly with explicit day",
			rule:     Rule{Freq: Monthly, Interval: 3, ByMonthDay: 31},
			expected: "FREQ=MONTHLY;INTERVAL=3;BYMONTHDAY=31",
		},
		{
			name:     "Yearly derives month and day from the anchor",
			rule:     Rule{Freq: Yearly, Interval: 1},
			expected: "FREQ=YEARLY;INTERVAL=1;BYMONTHDAY=15;BYMONTH=1",
		},
		{
			name:     "Yearly with explicit month and day",
			rule:     Rule{Freq: Yearly, Interval: 2, ByMonth: time.June, ByMonthDay: 5},
			expected: "FREQ=YEARLY;INTERVAL=2;BYMONTHDAY=5;BYMONTH=6",
		},
		{
			name:     "Until is emitted in UTC",
			rule:     Rule{Freq: Daily, Interval: 1, End: EndOn, Until: time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)},
			expected: "FREQ=DAILY;INTERVAL=1;UNTIL=2024-06-30T23:59:59Z",
		},
		{
			name:     "Count terminator",
			rule:     Rule{Freq: Weekly, Interval: 1, ByWeekdays: []time.Weekday{time.Monday}, End: EndAfter, Count: 10},
			expected: "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO;COUNT=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateRule(tt.rule, anchor))
		})
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantNone bool
		expected Rule
	}{
		{
			name:     "Plain daily rule",
			text:     "FREQ=DAILY;INTERVAL=2",
			expected: Rule{Freq: Daily, Interval: 2},
		},
		{
			name:     "Missing interval defaults to one",
			text:     "FREQ=DAILY",
			expected: Rule{Freq: Daily, Interval: 1},
		},
		{
			name:     "Weekly with day list",
			text:     "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE,FR",
			expected: Rule{Freq: Weekly, Interval: 1, ByWeekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		},
		{
			name:     "Day list is normalized Monday-first",
			text:     "FREQ=WEEKLY;BYDAY=SU,FR,MO,MO",
			expected: Rule{Freq: Weekly, Interval: 1, ByWeekdays: []time.Weekday{time.Monday, time.Friday, time.Sunday}},
		},
		{
			name:     "Keys in any order",
			text:     "COUNT=4;BYMONTHDAY=10;FREQ=MONTHLY",
			expected: Rule{Freq: Monthly, Interval: 1, ByMonthDay: 10, End: EndAfter, Count: 4},
		},
		{
			name:     "Unknown keys are ignored",
			text:     "FREQ=DAILY;INTERVAL=1;WKST=MO;X-CUSTOM=yes",
			expected: Rule{Freq: Daily, Interval: 1},
		},
		{
			name:     "Lowercase keys and values",
			text:     "freq=weekly;byday=tu,th",
			expected: Rule{Freq: Weekly, Interval: 1, ByWeekdays: []time.Weekday{time.Tuesday, time.Thursday}},
		},
		{
			name:     "Until terminator",
			text:     "FREQ=DAILY;INTERVAL=1;UNTIL=2024-03-01T09:00:00Z",
			expected: Rule{Freq: Daily, Interval: 1, End: EndOn, Until: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		},
		{
			name:     "Fields foreign to the frequency are dropped",
			text:     "FREQ=MONTHLY;BYDAY=MO,TU;BYMONTHDAY=12;BYMONTH=3",
			expected: Rule{Freq: Monthly, Interval: 1, ByMonthDay: 12},
		},
		{
			name:     "Unreadable BYDAY tokens are skipped",
			text:     "FREQ=WEEKLY;BYDAY=MO,XX,FR",
			expected: Rule{Freq: Weekly, Interval: 1, ByWeekdays: []time.Weekday{time.Monday, time.Friday}},
		},
		{
			name:     "Malformed interval falls back to one",
			text:     "FREQ=DAILY;INTERVAL=soon",
			expected: Rule{Freq: Daily, Interval: 1},
		},
		{
			name:     "Empty text",
			text:     "",
			wantNone: true,
		},
		{
			name:     "No FREQ at all",
			text:     "INTERVAL=2;COUNT=3",
			wantNone: true,
		},
		{
			name:     "Unknown frequency",
			text:     "FREQ=HOURLY;INTERVAL=1",
			wantNone: true,
		},
		{
			name:     "Unreadable UNTIL",
			text:     "FREQ=DAILY;UNTIL=next-tuesday",
			wantNone: true,
		},
		{
			name:     "Unreadable COUNT",
			text:     "FREQ=DAILY;COUNT=lots",
			wantNone: true,
		},
		{
			name:     "Zero COUNT",
			text:     "FREQ=DAILY;COUNT=0",
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := ParseRule(tt.text).Get()
			if tt.wantNone {
				assert.False(t, ok, "expected no rule for %q", tt.text)
				return
			}
			require.True(t, ok, "expected %q to decode", tt.text)
			assert.Equal(t, tt.expected, rule)
		})
	}
}

func TestRuleRoundTrip(t *testing.T) {
	anchor := time.Date(2024, 5, 7, 14, 30, 0, 0, time.UTC) // a Tuesday

	rules := []Rule{
		{Freq: Daily, Interval: 1},
		{Freq: Daily, Interval: 4, End: EndAfter, Count: 12},
		{Freq: Weekly, Interval: 1, ByWeekdays: []time.Weekday{time.Tuesday}},
		{Freq: Weekly, Interval: 2, ByWeekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		{Freq: Monthly, Interval: 1, ByMonthDay: 7},
		{Freq: Monthly, Interval: 6, ByMonthDay: 31, End: EndOn, Until: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Freq: Yearly, Interval: 1, ByMonth: time.May, ByMonthDay: 7},
		{Freq: Yearly, Interval: 2, ByMonth: time.February, ByMonthDay: 29, End: EndAfter, Count: 3},
	}

	for _, rule := range rules {
		text := GenerateRule(rule, anchor)
		t.Run(text, func(t *testing.T) {
			decoded, ok := ParseRule(text).Get()
			require.True(t, ok)

			// the codec fills defaults from the anchor, so compare
			// against the effective form of the input
			expected := rule
			if expected.Interval < 1 {
				expected.Interval = 1
			}
			switch expected.Freq {
			case Weekly:
				expected.ByWeekdays = effectiveWeekdays(expected, anchor)
			case Monthly:
				expected.ByMonthDay = effectiveMonthDay(expected, anchor)
			case Yearly:
				expected.ByMonthDay = effectiveMonthDay(expected, anchor)
				expected.ByMonth = effectiveMonth(expected, anchor)
			}
			assert.Equal(t, expected, decoded)
		})
	}
}

func TestClampRuleUntil(t *testing.T) {
	cutoff := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "Open-ended rule gains an UNTIL",
			text:     "FREQ=DAILY;INTERVAL=1",
			expected: "FREQ=DAILY;INTERVAL=1;UNTIL=2024-02-01T08:59:59Z",
		},
		{
			name:     "COUNT is replaced",
			text:     "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,FR;COUNT=30",
			expected: "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,FR;UNTIL=2024-02-01T08:59:59Z",
		},
		{
			name:     "Existing UNTIL is replaced",
			text:     "FREQ=DAILY;INTERVAL=1;UNTIL=2030-01-01T00:00:00Z",
			expected: "FREQ=DAILY;INTERVAL=1;UNTIL=2024-02-01T08:59:59Z",
		},
		{
			name:     "Unknown keys survive untouched",
			text:     "FREQ=DAILY;INTERVAL=1;X-LABEL=standup;COUNT=9",
			expected: "FREQ=DAILY;INTERVAL=1;X-LABEL=standup;UNTIL=2024-02-01T08:59:59Z",
		},
		{
			name:     "Unparseable text comes back unchanged",
			text:     "not a rule",
			expected: "not a rule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampRuleUntil(tt.text, cutoff))
		})
	}
}

func TestClampRuleUntilBeforeAnchor(t *testing.T) {
	// Clamping at the anchor itself is legal and leaves a series with
	// zero remaining occurrences, not an error.
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	clamped := ClampRuleUntil("FREQ=DAILY;INTERVAL=1", anchor)
	assert.Equal(t, "FREQ=DAILY;INTERVAL=1;UNTIL=2024-01-01T08:59:59Z", clamped)

	series := Series{
		ID:          "s1",
		AnchorStart: anchor,
		AnchorEnd:   anchor.Add(time.Hour),
		Recurrence:  clamped,
	}
	occs := Expand(series, anchor.AddDate(0, 0, -7), anchor.AddDate(0, 1, 0))
	assert.Empty(t, occs)
}
