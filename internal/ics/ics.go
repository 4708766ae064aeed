// Package ics converts event series to and from iCalendar documents. The
// export side writes plain VEVENTs; the import side accepts whatever a
// well-behaved producer emits and degrades gracefully around the recurrence
// features the rule engine does not model.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/yadava5/taskflow/internal/recurrence"
	"github.com/yadava5/taskflow/internal/types"
)

const prodID = "-//taskflow//calendar//EN"

// icalDateTime is the basic UTC date-time form, icalDate the date-only form.
const (
	icalDateTime = "20060102T150405Z"
	icalDate     = "20060102"
)

// ImportedEvent is one VEVENT lifted out of a document.
type ImportedEvent struct {
	UID         string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	AllDay      bool
	Recurrence  string
	Exceptions  []string
}

// ImportStats reports what Decode had to do to fit the document into the
// supported model.
type ImportStats struct {
	Events           int
	SkippedOverrides int
	SkippedInvalid   int
	SimplifiedRules  int
}

// Encode writes the series as a single VCALENDAR document.
func Encode(w io.Writer, events []*types.EventSeries) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	stamp := time.Now().UTC()
	for _, e := range events {
		cal.Children = append(cal.Children, eventComponent(e, stamp))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// Decode reads every VCALENDAR in the stream and lifts out the master
// VEVENTs. Detached overrides (VEVENTs with a RECURRENCE-ID), VEVENTs
// with no usable DTSTART and rules outside the supported subset are
// counted, not imported.
func Decode(r io.Reader) ([]ImportedEvent, ImportStats, error) {
	var (
		out   []ImportedEvent
		stats ImportStats
	)

	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("decode calendar: %w", err)
		}
		for _, ev := range cal.Events() {
			if ev.Props.Get("RECURRENCE-ID") != nil {
				stats.SkippedOverrides++
				continue
			}
			imported, ok := importEvent(ev, &stats)
			if !ok {
				stats.SkippedInvalid++
				continue
			}
			out = append(out, imported)
			stats.Events++
		}
	}
	return out, stats, nil
}

func eventComponent(e *types.EventSeries, stamp time.Time) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, e.ID.String())
	comp.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	comp.Props.SetText(ical.PropSummary, e.Title)
	if e.Description != "" {
		comp.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		comp.Props.SetText(ical.PropLocation, e.Location)
	}

	if e.AllDay {
		setDateProp(comp, ical.PropDateTimeStart, e.StartsAt)
		setDateProp(comp, ical.PropDateTimeEnd, e.EndsAt)
	} else {
		comp.Props.SetDateTime(ical.PropDateTimeStart, e.StartsAt.UTC())
		comp.Props.SetDateTime(ical.PropDateTimeEnd, e.EndsAt.UTC())
	}

	if e.IsRecurring() {
		if rr, ok := rruleFromWire(e.Recurrence); ok {
			comp.Props.SetText(ical.PropRecurrenceRule, rr)
		}
		if exdate := exdateValue(e.Exceptions); exdate != "" {
			comp.Props.SetText(ical.PropExceptionDates, exdate)
		}
	}
	return comp
}

// setDateProp writes a date-only property with an explicit VALUE=DATE
// parameter so consumers read the event back as all-day.
func setDateProp(comp *ical.Component, name string, t time.Time) {
	prop := ical.NewProp(name)
	prop.Params.Set(ical.ParamValue, "DATE")
	prop.Value = t.UTC().Format(icalDate)
	comp.Props.Set(prop)
}

func importEvent(ev ical.Event, stats *ImportStats) (ImportedEvent, bool) {
	var imported ImportedEvent

	if prop := ev.Props.Get(ical.PropUID); prop != nil {
		imported.UID = prop.Value
	}
	if prop := ev.Props.Get(ical.PropSummary); prop != nil {
		imported.Title = prop.Value
	}
	if prop := ev.Props.Get(ical.PropDescription); prop != nil {
		imported.Description = prop.Value
	}
	if prop := ev.Props.Get(ical.PropLocation); prop != nil {
		imported.Location = prop.Value
	}

	startProp := ev.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return imported, false
	}
	imported.AllDay = isDateProp(startProp)

	start, err := ev.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil {
		return imported, false
	}
	imported.StartsAt = start.UTC()

	if end, err := ev.Props.DateTime(ical.PropDateTimeEnd, time.UTC); err == nil {
		imported.EndsAt = end.UTC()
	} else if durProp := ev.Props.Get(ical.PropDuration); durProp != nil {
		if dur, derr := durProp.Duration(); derr == nil {
			imported.EndsAt = imported.StartsAt.Add(dur)
		}
	}
	if !imported.EndsAt.After(imported.StartsAt) {
		// DTEND is optional; a date value spans its day, a timed one
		// defaults to an hour.
		if imported.AllDay {
			imported.EndsAt = imported.StartsAt.AddDate(0, 0, 1)
		} else {
			imported.EndsAt = imported.StartsAt.Add(time.Hour)
		}
	}

	if prop := ev.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		if wire, ok := wireFromRRule(prop.Value, imported.StartsAt); ok {
			imported.Recurrence = wire
		} else {
			stats.SimplifiedRules++
		}
	}
	if imported.Recurrence != "" {
		imported.Exceptions = importExdates(ev.Props.Values(ical.PropExceptionDates))
	}
	return imported, true
}

func isDateProp(prop *ical.Prop) bool {
	return strings.EqualFold(prop.Params.Get(ical.ParamValue), "DATE")
}

// importExdates flattens EXDATE properties into RFC 3339 instants. Entries
// that parse as neither a UTC date-time nor a bare date are dropped.
func importExdates(props []ical.Prop) []string {
	var out []string
	for _, prop := range props {
		for _, raw := range strings.Split(prop.Value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			if t, err := time.Parse(icalDateTime, raw); err == nil {
				out = append(out, t.Format(time.RFC3339))
				continue
			}
			if t, err := time.Parse(icalDate, raw); err == nil {
				out = append(out, t.UTC().Format(time.RFC3339))
			}
		}
	}
	return out
}

func exdateValue(exceptions []string) string {
	var parts []string
	for _, raw := range exceptions {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			parts = append(parts, t.UTC().Format(icalDateTime))
		}
	}
	return strings.Join(parts, ",")
}

var weekdayCodes = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// rruleFromWire renders a stored rule as an RFC 5545 RRULE value. The only
// real difference is the UNTIL date-time form.
func rruleFromWire(text string) (string, bool) {
	opt := recurrence.ParseRule(text)
	if opt.IsAbsent() {
		return "", false
	}
	rule := opt.MustGet()

	var b strings.Builder
	fmt.Fprintf(&b, "FREQ=%s;INTERVAL=%d", rule.Freq.String(), rule.Interval)
	if len(rule.ByWeekdays) > 0 {
		codes := make([]string, 0, len(rule.ByWeekdays))
		for _, d := range rule.ByWeekdays {
			codes = append(codes, weekdayCodes[d])
		}
		fmt.Fprintf(&b, ";BYDAY=%s", strings.Join(codes, ","))
	}
	if rule.ByMonthDay != 0 {
		fmt.Fprintf(&b, ";BYMONTHDAY=%d", rule.ByMonthDay)
	}
	if rule.ByMonth != 0 {
		fmt.Fprintf(&b, ";BYMONTH=%d", int(rule.ByMonth))
	}
	switch rule.End {
	case recurrence.EndOn:
		fmt.Fprintf(&b, ";UNTIL=%s", rule.Until.UTC().Format(icalDateTime))
	case recurrence.EndAfter:
		fmt.Fprintf(&b, ";COUNT=%d", rule.Count)
	}
	return b.String(), true
}

// wireFromRRule normalizes an incoming RRULE into the supported subset.
// Rules using features outside it report false and the event imports as
// non-recurring.
func wireFromRRule(value string, anchor time.Time) (string, bool) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return "", false
	}

	var freq recurrence.Frequency
	switch opt.Freq {
	case rrule.DAILY:
		freq = recurrence.Daily
	case rrule.WEEKLY:
		freq = recurrence.Weekly
	case rrule.MONTHLY:
		freq = recurrence.Monthly
	case rrule.YEARLY:
		freq = recurrence.Yearly
	default:
		return "", false
	}
	if len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 ||
		len(opt.Byeaster) > 0 {
		return "", false
	}
	if len(opt.Bymonth) > 1 || len(opt.Bymonthday) > 1 {
		return "", false
	}

	rule := recurrence.Rule{Freq: freq, Interval: 1}
	if opt.Interval > 1 {
		rule.Interval = opt.Interval
	}
	for _, wd := range opt.Byweekday {
		if wd.N() != 0 {
			return "", false
		}
		// rrule-go counts Monday as 0
		rule.ByWeekdays = append(rule.ByWeekdays, time.Weekday((wd.Day()+1)%7))
	}
	if len(opt.Bymonthday) == 1 {
		if opt.Bymonthday[0] < 1 || opt.Bymonthday[0] > 31 {
			return "", false
		}
		rule.ByMonthDay = opt.Bymonthday[0]
	}
	if len(opt.Bymonth) == 1 {
		rule.ByMonth = time.Month(opt.Bymonth[0])
	}
	switch {
	case opt.Count > 0:
		rule.End = recurrence.EndAfter
		rule.Count = opt.Count
	case !opt.Until.IsZero():
		rule.End = recurrence.EndOn
		rule.Until = opt.Until
	default:
		rule.End = recurrence.EndNever
	}
	return recurrence.GenerateRule(rule, anchor), true
}
