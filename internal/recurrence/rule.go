package recurrence

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Frequency is the base unit a recurring series repeats on.
type Frequency int

const (
	Daily Frequency = iota
	Weekly
	Monthly
	Yearly
)

// String returns the wire name used in rule text, e.g. "WEEKLY".
func (f Frequency) String() string {
	switch f {
	case Weekly:
		return "WEEKLY"
	case Monthly:
		return "MONTHLY"
	case Yearly:
		return "YEARLY"
	default:
		return "DAILY"
	}
}

// ParseFrequency maps a wire name onto a Frequency. Case does not matter.
func ParseFrequency(s string) (Frequency, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DAILY":
		return Daily, true
	case "WEEKLY":
		return Weekly, true
	case "MONTHLY":
		return Monthly, true
	case "YEARLY":
		return Yearly, true
	}
	return 0, false
}

// ParseWeekday maps a two letter weekday code ("MO".."SU") onto a
// time.Weekday. Case does not matter.
func ParseWeekday(s string) (time.Weekday, bool) {
	code := strings.ToUpper(strings.TrimSpace(s))
	for wd, c := range weekdayCodes {
		if code == c {
			return time.Weekday(wd), true
		}
	}
	return 0, false
}

// EndMode says how a series terminates.
type EndMode int

const (
	// EndNever leaves the series open ended.
	EndNever EndMode = iota
	// EndOn stops the series at an inclusive instant; an occurrence
	// starting exactly at Until is still produced.
	EndOn
	// EndAfter stops the series after a fixed number of occurrences,
	// counted from the anchor regardless of any viewing window.
	EndAfter
)

// Rule is the decoded form of a recurrence rule. It is a plain value:
// build one, encode it with GenerateRule, store the text. Fields that do
// not apply to Freq are ignored.
type Rule struct {
	Freq     Frequency
	Interval int // every Interval units; anything below 1 encodes as 1
	// ByWeekdays lists the weekdays a weekly rule fires on, kept in
	// Monday-first order. Empty means the anchor's own weekday.
	ByWeekdays []time.Weekday
	// ByMonthDay is the calendar day a monthly or yearly rule fires on.
	// Zero means the anchor's own day of month. Days the target month
	// does not have produce no occurrence there; they are never moved
	// to the end of the month.
	ByMonthDay int
	// ByMonth is the month a yearly rule fires in. Zero means the
	// anchor's own month.
	ByMonth time.Month
	End     EndMode
	Until   time.Time // meaningful only when End == EndOn
	Count   int       // meaningful only when End == EndAfter
}

// weekdayCodes is indexed by time.Weekday, so it starts at Sunday.
var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// GenerateRule encodes r as a single line of rule text. The anchor start
// fills in whatever per-frequency field the caller left unset (BYDAY for
// weekly, BYMONTHDAY for monthly and yearly, BYMONTH for yearly), so the
// emitted text always round-trips through ParseRule to the same
// effective rule. Keys are emitted in a fixed order: FREQ, INTERVAL,
// BYDAY, BYMONTHDAY, BYMONTH, then UNTIL or COUNT.
func GenerateRule(r Rule, anchorStart time.Time) string {
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(r.Freq.String())
	b.WriteString(";INTERVAL=")
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	b.WriteString(strconv.Itoa(interval))
	switch r.Freq {
	case Weekly:
		b.WriteString(";BYDAY=")
		days := effectiveWeekdays(r, anchorStart)
		for i, d := range days {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(weekdayCodes[d])
		}
	case Monthly:
		b.WriteString(";BYMONTHDAY=")
		b.WriteString(strconv.Itoa(effectiveMonthDay(r, anchorStart)))
	case Yearly:
		b.WriteString(";BYMONTHDAY=")
		b.WriteString(strconv.Itoa(effectiveMonthDay(r, anchorStart)))
		b.WriteString(";BYMONTH=")
		b.WriteString(strconv.Itoa(int(effectiveMonth(r, anchorStart))))
	}
	switch r.End {
	case EndOn:
		b.WriteString(";UNTIL=")
		b.WriteString(r.Until.UTC().Format(time.RFC3339))
	case EndAfter:
		b.WriteString(";COUNT=")
		b.WriteString(strconv.Itoa(r.Count))
	}
	return b.String()
}

// ParseRule decodes rule text produced by GenerateRule or edited by
// hand. Decoding never fails hard: keys may appear in any order, unknown
// keys are skipped, a missing INTERVAL means 1, and fields that do not
// apply to the frequency are dropped rather than rejected. Only text
// this package cannot give a meaning to decodes to None: no usable
// FREQ, or an UNTIL or COUNT whose value cannot be read (misreading a
// terminator would change which occurrences exist, so those are not
// guessed at). Callers treat None exactly like an absent rule.
func ParseRule(text string) mo.Option[Rule] {
	text = strings.TrimSpace(text)
	if text == "" {
		return mo.None[Rule]()
	}
	r := Rule{Interval: 1}
	haveFreq := false
	for _, part := range strings.Split(text, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			f, ok := ParseFrequency(value)
			if !ok {
				return mo.None[Rule]()
			}
			r.Freq = f
			haveFreq = true
		case "INTERVAL":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 {
				r.Interval = n
			}
		case "BYDAY":
			r.ByWeekdays = parseWeekdayList(value)
		case "BYMONTHDAY":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= 31 {
				r.ByMonthDay = n
			}
		case "BYMONTH":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= 12 {
				r.ByMonth = time.Month(n)
			}
		case "UNTIL":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return mo.None[Rule]()
			}
			r.End = EndOn
			r.Until = t
			r.Count = 0
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return mo.None[Rule]()
			}
			r.End = EndAfter
			r.Count = n
			r.Until = time.Time{}
		}
	}
	if !haveFreq {
		return mo.None[Rule]()
	}
	dropForeignFields(&r)
	return mo.Some(r)
}

// ClampRuleUntil rewrites rule text so the series stops just before
// cutoff: any UNTIL or COUNT is removed and an UNTIL one second before
// cutoff is appended, leaving the rest of the text untouched. An UNTIL
// that lands before the series anchor is a valid outcome, it just means
// no occurrence remains. Text that does not decode comes back unchanged.
func ClampRuleUntil(text string, cutoff time.Time) string {
	if ParseRule(text).IsAbsent() {
		return text
	}
	var kept []string
	for _, part := range strings.Split(text, ";") {
		key, _, _ := strings.Cut(part, "=")
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "UNTIL", "COUNT":
			continue
		}
		kept = append(kept, part)
	}
	until := cutoff.Add(-time.Second).UTC().Format(time.RFC3339)
	return strings.Join(kept, ";") + ";UNTIL=" + until
}

// parseWeekdayList reads a comma separated BYDAY value. Tokens that are
// not weekday codes are skipped.
func parseWeekdayList(value string) []time.Weekday {
	var days []time.Weekday
	for _, token := range strings.Split(value, ",") {
		token = strings.ToUpper(strings.TrimSpace(token))
		for wd, code := range weekdayCodes {
			if token == code {
				days = append(days, time.Weekday(wd))
				break
			}
		}
	}
	return normalizeWeekdays(days)
}

// normalizeWeekdays sorts Monday first and removes duplicates, so two
// rules naming the same days compare equal however they were written.
func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	var seen [7]bool
	for _, d := range days {
		seen[d] = true
	}
	out := make([]time.Weekday, 0, len(days))
	for i := 0; i < 7; i++ {
		wd := time.Weekday((i + 1) % 7) // Monday, Tuesday, ... Sunday
		if seen[wd] {
			out = append(out, wd)
		}
	}
	return out
}

// dropForeignFields clears the fields that carry no meaning for the
// rule's frequency, so a hand-edited BYDAY on a monthly rule cannot
// leak into expansion.
func dropForeignFields(r *Rule) {
	switch r.Freq {
	case Weekly:
		r.ByMonthDay = 0
		r.ByMonth = 0
	case Monthly:
		r.ByWeekdays = nil
		r.ByMonth = 0
	case Yearly:
		r.ByWeekdays = nil
	default:
		r.ByWeekdays = nil
		r.ByMonthDay = 0
		r.ByMonth = 0
	}
}

// The effective* helpers resolve the "unset means derive from the
// anchor" defaults. They are pure functions of (rule, anchor), so the
// same pair always expands the same way no matter who asks first.

func effectiveWeekdays(r Rule, anchor time.Time) []time.Weekday {
	if len(r.ByWeekdays) > 0 {
		return normalizeWeekdays(r.ByWeekdays)
	}
	return []time.Weekday{anchor.Weekday()}
}

func effectiveMonthDay(r Rule, anchor time.Time) int {
	if r.ByMonthDay >= 1 {
		return r.ByMonthDay
	}
	return anchor.Day()
}

func effectiveMonth(r Rule, anchor time.Time) time.Month {
	if r.ByMonth >= time.January && r.ByMonth <= time.December {
		return r.ByMonth
	}
	return anchor.Month()
}
