package recurrence

import "time"

// Series is the event record the storage layer hands in for expansion.
// Only the anchor, rule and exception fields drive the math; the
// descriptive fields ride along so edit resolutions can carry them into
// a detached or forked series without another lookup.
type Series struct {
	ID          string
	Title       string
	Description string
	Location    string
	AnchorStart time.Time // start of the first occurrence
	AnchorEnd   time.Time // end of the first occurrence, fixes the duration
	AllDay      bool
	Recurrence  string   // rule text, empty for a one-off event
	Exceptions  []string // RFC 3339 instants excluded from the series
}

// Occurrence is one concrete instance of a series. Occurrences are
// computed on demand and never stored; (SeriesID, Start) identifies one,
// and that pair is exactly what exception matching and click-to-edit
// round-tripping key on.
type Occurrence struct {
	SeriesID string
	Start    time.Time
	End      time.Time
	AllDay   bool
}

// maxExpansionSteps bounds a single expansion walk. A COUNT rule has to
// be enumerated from its anchor to find where it stops, and a rule that
// can never fire (BYMONTHDAY=30 with BYMONTH=2, say) would otherwise
// hunt for its next occurrence forever.
const maxExpansionSteps = 10000

// Expand generates the occurrences of s that intersect the half-open
// window [windowStart, windowEnd), ordered by start. An occurrence only
// partially inside the window still counts, so a multi-day or late-night
// event straddling a window edge is not dropped; one ending exactly at
// windowStart is out. Exceptions are not applied here, see
// ExpandOccurrences for the filtered form.
//
// A series with no rule text, or rule text that does not decode,
// degenerates to its anchor occurrence alone.
func Expand(s Series, windowStart, windowEnd time.Time) []Occurrence {
	var out []Occurrence
	walkOccurrences(s, func(o Occurrence) bool {
		if !o.Start.Before(windowEnd) {
			return false
		}
		if o.End.After(windowStart) {
			out = append(out, o)
		}
		return true
	})
	return out
}

// ExpandOccurrences is Expand followed by exception filtering. It is
// the call sites rendering a calendar window should use: the result is
// what the user actually sees.
func ExpandOccurrences(s Series, windowStart, windowEnd time.Time) []Occurrence {
	return FilterExceptions(Expand(s, windowStart, windowEnd), NewExceptionSet(s.Exceptions))
}

// HasOccurrenceAt reports whether the series produces an occurrence
// starting exactly at the given instant, before exceptions are applied.
func HasOccurrenceAt(s Series, at time.Time) bool {
	found := false
	walkOccurrences(s, func(o Occurrence) bool {
		if o.Start.Equal(at) {
			found = true
			return false
		}
		return o.Start.Before(at)
	})
	return found
}

// walkOccurrences visits the occurrences of s in start order, beginning
// at the anchor, until visit returns false, the rule's own terminator
// (UNTIL or COUNT) is reached, or the safety cap trips. Candidates the
// calendar skips (a 31st in a 30-day month, Feb 29 off leap years) are
// not occurrences and are not visited.
func walkOccurrences(s Series, visit func(Occurrence) bool) {
	duration := s.AnchorEnd.Sub(s.AnchorStart)
	emit := func(start time.Time) bool {
		return visit(Occurrence{
			SeriesID: s.ID,
			Start:    start,
			End:      start.Add(duration),
			AllDay:   s.AllDay,
		})
	}

	rule, ok := ParseRule(s.Recurrence).Get()
	if !ok {
		emit(s.AnchorStart)
		return
	}
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	// produce applies the shared bounds to one ascending candidate:
	// starts before the anchor are not occurrences, UNTIL is inclusive,
	// and COUNT counts every occurrence from the anchor on, whether or
	// not a viewing window ever shows it.
	emitted := 0
	produce := func(start time.Time) bool {
		if start.Before(s.AnchorStart) {
			return true
		}
		if rule.End == EndOn && start.After(rule.Until) {
			return false
		}
		if rule.End == EndAfter && emitted >= rule.Count {
			return false
		}
		emitted++
		return emit(start)
	}

	switch rule.Freq {
	case Daily:
		for k := 0; k <= maxExpansionSteps; k++ {
			if !produce(s.AnchorStart.AddDate(0, 0, k*interval)) {
				return
			}
		}
	case Weekly:
		days := effectiveWeekdays(rule, s.AnchorStart)
		weekStart := startOfISOWeek(s.AnchorStart)
		for block := 0; block <= maxExpansionSteps; block++ {
			base := weekStart.AddDate(0, 0, block*interval*7)
			for _, wd := range days {
				if !produce(base.AddDate(0, 0, isoWeekdayIndex(wd))) {
					return
				}
			}
		}
	case Monthly:
		day := effectiveMonthDay(rule, s.AnchorStart)
		for k := 0; k <= maxExpansionSteps; k++ {
			candidate, exists := monthCandidate(s.AnchorStart, k*interval, day)
			if !exists {
				continue
			}
			if !produce(candidate) {
				return
			}
		}
	case Yearly:
		day := effectiveMonthDay(rule, s.AnchorStart)
		month := effectiveMonth(rule, s.AnchorStart)
		for k := 0; k <= maxExpansionSteps; k++ {
			candidate, exists := yearCandidate(s.AnchorStart, k*interval, month, day)
			if !exists {
				continue
			}
			if !produce(candidate) {
				return
			}
		}
	}
}

// isoWeekdayIndex maps a weekday to its offset from Monday, so Monday is
// 0 and Sunday is 6.
func isoWeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// startOfISOWeek returns the instant on the Monday of t's ISO week that
// carries t's own clock time.
func startOfISOWeek(t time.Time) time.Time {
	return t.AddDate(0, 0, -isoWeekdayIndex(t.Weekday()))
}

// monthCandidate places day in the month k months after the anchor's,
// keeping the anchor's clock time. exists is false when that month is
// too short for the day.
func monthCandidate(anchor time.Time, k, day int) (candidate time.Time, exists bool) {
	year, month, _ := anchor.Date()
	index := year*12 + int(month) - 1 + k
	year, month = index/12, time.Month(index%12+1)
	hour, minute, sec := anchor.Clock()
	candidate = time.Date(year, month, day, hour, minute, sec, anchor.Nanosecond(), anchor.Location())
	if candidate.Month() != month || candidate.Day() != day {
		return time.Time{}, false
	}
	return candidate, true
}

// yearCandidate places (month, day) in the year k years after the
// anchor's, keeping the anchor's clock time. exists is false when the
// year has no such date, which is how Feb 29 skips non-leap years.
func yearCandidate(anchor time.Time, k int, month time.Month, day int) (candidate time.Time, exists bool) {
	hour, minute, sec := anchor.Clock()
	candidate = time.Date(anchor.Year()+k, month, day, hour, minute, sec, anchor.Nanosecond(), anchor.Location())
	if candidate.Month() != month || candidate.Day() != day {
		return time.Time{}, false
	}
	return candidate, true
}
