// Package quickadd turns a one-line capture like "pay rent friday 5pm !high"
// into a task title, a due instant and a priority. Tokens the parser does not
// recognize stay part of the title, so arbitrary text is always accepted.
package quickadd

import (
	"strconv"
	"strings"
	"time"
)

// Priority levels recognized after a '!' marker.
const (
	PriorityNone   = "none"
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Result is the structured reading of a capture line.
type Result struct {
	Title    string
	DueAt    *time.Time
	AllDay   bool
	Priority string
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var priorities = map[string]string{
	"high": PriorityHigh, "h": PriorityHigh, "1": PriorityHigh,
	"medium": PriorityMedium, "med": PriorityMedium, "m": PriorityMedium, "2": PriorityMedium,
	"low": PriorityLow, "l": PriorityLow, "3": PriorityLow,
}

// fillers are dropped from the title when they directly precede a date or
// time token, as in "report by friday".
var fillers = map[string]bool{"at": true, "on": true, "by": true, "due": true}

// Parse reads one capture line. now anchors relative phrases and loc is the
// timezone the phrases are interpreted in; a nil loc means UTC.
func Parse(text string, now time.Time, loc *time.Location) Result {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	res := Result{Priority: PriorityNone}
	var title []string
	var day *time.Time
	var clock *int

	setDay := func(d time.Time) {
		day = &d
		if len(title) > 0 && fillers[strings.ToLower(title[len(title)-1])] {
			title = title[:len(title)-1]
		}
	}
	setClock := func(c int) {
		clock = &c
		if len(title) > 0 && fillers[strings.ToLower(title[len(title)-1])] {
			title = title[:len(title)-1]
		}
	}

	fields := strings.Fields(text)
	for i := 0; i < len(fields); i++ {
		tok := strings.ToLower(strings.TrimRight(fields[i], ",.;"))

		if p, ok := strings.CutPrefix(tok, "!"); ok {
			if level, known := priorities[p]; known {
				res.Priority = level
				continue
			}
		}

		if tok == "next" && i+1 < len(fields) {
			peek := strings.ToLower(strings.TrimRight(fields[i+1], ",.;"))
			if peek == "week" {
				setDay(mondayOfWeek(now).AddDate(0, 0, 7))
				i++
				continue
			}
			if wd, ok := weekdays[peek]; ok {
				setDay(upcomingWeekday(now, wd).AddDate(0, 0, 7))
				i++
				continue
			}
		}

		if m, ok := months[tok]; ok && i+1 < len(fields) {
			if dayNum, err := strconv.Atoi(strings.TrimRight(fields[i+1], ",.;")); err == nil && dayNum >= 1 && dayNum <= 31 {
				d := time.Date(now.Year(), m, dayNum, 0, 0, 0, 0, loc)
				// past dates roll over to next year
				if d.Before(midnight(now)) {
					d = d.AddDate(1, 0, 0)
				}
				setDay(d)
				i++
				continue
			}
		}

		switch tok {
		case "today", "tod":
			setDay(midnight(now))
			continue
		case "tomorrow", "tmr", "tom":
			setDay(midnight(now).AddDate(0, 0, 1))
			continue
		case "tonight":
			setDay(midnight(now))
			evening := 19 * 60
			clock = &evening
			continue
		}
		if wd, ok := weekdays[tok]; ok {
			setDay(upcomingWeekday(now, wd))
			continue
		}
		if d, err := time.ParseInLocation("2006-01-02", tok, loc); err == nil {
			setDay(d)
			continue
		}
		if m, dayNum, ok := parseSlashDate(tok); ok {
			d := time.Date(now.Year(), m, dayNum, 0, 0, 0, 0, loc)
			if d.Before(midnight(now)) {
				d = d.AddDate(1, 0, 0)
			}
			setDay(d)
			continue
		}
		if c, ok := parseClock(tok); ok {
			setClock(c)
			continue
		}

		title = append(title, fields[i])
	}

	switch {
	case clock != nil && day == nil:
		d := midnight(now)
		if !d.Add(time.Duration(*clock) * time.Minute).After(now) {
			d = d.AddDate(0, 0, 1)
		}
		due := d.Add(time.Duration(*clock) * time.Minute)
		res.DueAt = &due
	case day != nil && clock == nil:
		res.DueAt = day
		res.AllDay = true
	case day != nil && clock != nil:
		due := day.Add(time.Duration(*clock) * time.Minute)
		res.DueAt = &due
	}

	res.Title = strings.Join(title, " ")
	if res.Title == "" {
		res.Title = strings.TrimSpace(text)
	}
	return res
}

// parseClock reads "9am", "9:30pm", "14:30", "noon" or "midnight" into
// minutes after midnight. A bare number is not a time; it needs a colon or
// an am/pm suffix to count.
func parseClock(tok string) (int, bool) {
	switch tok {
	case "noon":
		return 12 * 60, true
	case "midnight":
		return 0, true
	}

	meridiem := ""
	if cut, ok := strings.CutSuffix(tok, "am"); ok {
		meridiem, tok = "am", cut
	} else if cut, ok := strings.CutSuffix(tok, "pm"); ok {
		meridiem, tok = "pm", cut
	}

	hh, mm, hasColon := strings.Cut(tok, ":")
	if !hasColon {
		mm = "0"
		if meridiem == "" {
			return 0, false
		}
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}

	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return 0, false
		}
	case "am":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour != 12 {
			hour += 12
		}
	}
	return hour*60 + minute, true
}

// parseSlashDate reads an "M/D" token like "5/1", month first. Like
// month-name dates, a past date rolls over to next year at the call
// site.
func parseSlashDate(tok string) (time.Month, int, bool) {
	m, d, ok := strings.Cut(tok, "/")
	if !ok {
		return 0, 0, false
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	day, err := strconv.Atoi(d)
	if err != nil || day < 1 || day > 31 {
		return 0, 0, false
	}
	return time.Month(month), day, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// upcomingWeekday returns the next calendar day falling on d, always in the
// future: asking for Monday on a Monday yields next week's.
func upcomingWeekday(now time.Time, d time.Weekday) time.Time {
	delta := (int(d) - int(now.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return midnight(now).AddDate(0, 0, delta)
}

func mondayOfWeek(t time.Time) time.Time {
	shift := (int(t.Weekday()) + 6) % 7
	return midnight(t).AddDate(0, 0, -shift)
}
