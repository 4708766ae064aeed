package quickadd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday afternoon.
var wed = time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	due := func(y int, m time.Month, d, hh, mm int) *time.Time {
		v := time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name string
		text string
		want Result
	}{
		{
			name: "plain text",
			text: "buy milk",
			want: Result{Title: "buy milk", Priority: PriorityNone},
		},
		{
			name: "weekday with time and priority",
			text: "pay rent friday 5pm !high",
			want: Result{Title: "pay rent", DueAt: due(2024, 1, 12, 17, 0), Priority: PriorityHigh},
		},
		{
			name: "filler word before date is dropped",
			text: "report by friday",
			want: Result{Title: "report", DueAt: due(2024, 1, 12, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "tomorrow",
			text: "call mom tomorrow",
			want: Result{Title: "call mom", DueAt: due(2024, 1, 11, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "weekday always lands in the future",
			text: "standup monday",
			want: Result{Title: "standup", DueAt: due(2024, 1, 15, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "next weekday skips a week",
			text: "review next monday",
			want: Result{Title: "review", DueAt: due(2024, 1, 22, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "next week means its monday",
			text: "planning next week",
			want: Result{Title: "planning", DueAt: due(2024, 1, 15, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "month day in the past rolls to next year",
			text: "dentist jan 5",
			want: Result{Title: "dentist", DueAt: due(2025, 1, 5, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "month day ahead stays this year",
			text: "dentist mar 5",
			want: Result{Title: "dentist", DueAt: due(2024, 3, 5, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "slash date is month first",
			text: "pay rent 5/1",
			want: Result{Title: "pay rent", DueAt: due(2024, 5, 1, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "slash date in the past rolls to next year",
			text: "renew plates 1/5",
			want: Result{Title: "renew plates", DueAt: due(2025, 1, 5, 0, 0), AllDay: true, Priority: PriorityNone},
		},
		{
			name: "slash token with a bad month stays in title",
			text: "final score 13/5",
			want: Result{Title: "final score 13/5", Priority: PriorityNone},
		},
		{
			name: "iso date with noon",
			text: "taxes 2024-04-15 noon",
			want: Result{Title: "taxes", DueAt: due(2024, 4, 15, 12, 0), Priority: PriorityNone},
		},
		{
			name: "past clock time bumps to tomorrow",
			text: "gym 9am",
			want: Result{Title: "gym", DueAt: due(2024, 1, 11, 9, 0), Priority: PriorityNone},
		},
		{
			name: "future clock time stays today",
			text: "gym 15:30",
			want: Result{Title: "gym", DueAt: due(2024, 1, 10, 15, 30), Priority: PriorityNone},
		},
		{
			name: "tonight",
			text: "wrap up tonight",
			want: Result{Title: "wrap up", DueAt: due(2024, 1, 10, 19, 0), Priority: PriorityNone},
		},
		{
			name: "numeric priority",
			text: "ship it !2",
			want: Result{Title: "ship it", Priority: PriorityMedium},
		},
		{
			name: "unknown bang token stays in title",
			text: "fix !crash",
			want: Result{Title: "fix !crash", Priority: PriorityNone},
		},
		{
			name: "bare number is not a time",
			text: "read chapter 5",
			want: Result{Title: "read chapter 5", Priority: PriorityNone},
		},
		{
			name: "date words alone fall back to the raw text",
			text: "tomorrow",
			want: Result{Title: "tomorrow", DueAt: due(2024, 1, 11, 0, 0), AllDay: true, Priority: PriorityNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text, wed, time.UTC)
			assert.Equal(t, tt.want.Title, got.Title)
			assert.Equal(t, tt.want.Priority, got.Priority)
			assert.Equal(t, tt.want.AllDay, got.AllDay)
			if tt.want.DueAt == nil {
				assert.Nil(t, got.DueAt)
			} else {
				require.NotNil(t, got.DueAt)
				assert.True(t, got.DueAt.Equal(*tt.want.DueAt), "due %v, want %v", got.DueAt, tt.want.DueAt)
			}
		})
	}
}

func TestParseHonorsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 20:00 UTC is 15:00 in New York, so 8pm is still ahead there.
	now := time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)
	got := Parse("dinner 8pm", now, loc)

	require.NotNil(t, got.DueAt)
	want := time.Date(2024, 1, 10, 20, 0, 0, 0, loc)
	assert.True(t, got.DueAt.Equal(want), "due %v, want %v", got.DueAt, want)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		tok  string
		want int
		ok   bool
	}{
		{"9am", 9 * 60, true},
		{"12am", 0, true},
		{"12pm", 12 * 60, true},
		{"9:30pm", 21*60 + 30, true},
		{"14:30", 14*60 + 30, true},
		{"noon", 12 * 60, true},
		{"midnight", 0, true},
		{"25:00", 0, false},
		{"9:75", 0, false},
		{"13pm", 0, false},
		{"5", 0, false},
		{"banana", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseClock(tt.tok)
		assert.Equal(t, tt.ok, ok, tt.tok)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.tok)
		}
	}
}
