package recurrence

import (
	"errors"
	"time"
)

// Scope selects how much of a recurring series an edit or delete
// touches. It is a closed enum; resolution switches over it
// exhaustively, so a new scope cannot be added without deciding what it
// does here.
type Scope int

const (
	// ScopeThisEvent detaches a single occurrence from its series.
	ScopeThisEvent Scope = iota
	// ScopeThisAndFollowing splits the series at the occurrence.
	ScopeThisAndFollowing
	// ScopeAllEvents rewrites the whole series in place.
	ScopeAllEvents
)

// String returns the wire name of the scope, e.g. "this-event".
func (s Scope) String() string {
	switch s {
	case ScopeThisAndFollowing:
		return "this-and-following"
	case ScopeAllEvents:
		return "all-events"
	default:
		return "this-event"
	}
}

// ParseScope maps the wire names "this-event", "this-and-following" and
// "all-events" onto a Scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "this-event":
		return ScopeThisEvent, nil
	case "this-and-following":
		return ScopeThisAndFollowing, nil
	case "all-events":
		return ScopeAllEvents, nil
	}
	return 0, ErrUnknownScope
}

var (
	// ErrOccurrenceNotFound means the instant being edited is not one
	// the series can currently produce, usually because the client
	// acted on stale state. The edit is refused rather than applied to
	// whatever occurrence seems closest.
	ErrOccurrenceNotFound = errors.New("recurrence: occurrence not found in series")

	// ErrUnknownScope means the scope value is not one this package
	// defines.
	ErrUnknownScope = errors.New("recurrence: unknown edit scope")
)

// Edit carries the field values an edit wants to change. Nil fields are
// left alone. Start and End name the edited occurrence's new bounds, not
// the series anchor's; each scope decides what they mean for the stored
// record.
type Edit struct {
	Title       *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	AllDay      *bool
	Recurrence  *string
}

// SeriesMutation describes an in-place change to a stored series. Nil
// fields are untouched. Exceptions, when non-nil, replaces the whole
// list.
type SeriesMutation struct {
	Title       *string
	Description *string
	Location    *string
	AnchorStart *time.Time
	AnchorEnd   *time.Time
	AllDay      *bool
	Recurrence  *string
	Exceptions  []string
}

// Resolution is the storage work an edit or delete resolves to. Apply
// Mutate to the stored series first, then insert Create. The two writes
// are not atomic; a crash between them leaves an exception recorded with
// no replacement event, which callers accept as a known partial-failure
// mode rather than mask here.
type Resolution struct {
	Mutate       *SeriesMutation
	Create       *Series
	DeleteSeries bool
}

// ResolveEdit turns an edit of one occurrence into the mutations the
// storage layer should apply. occurrenceStart must be the unedited start
// of the occurrence the user acted on; if the series cannot produce that
// occurrence, or it is already excluded, the edit fails with
// ErrOccurrenceNotFound.
//
// A this-and-following edit of the very first occurrence degenerates to
// all-events: splitting there would leave an empty series behind.
func ResolveEdit(s Series, occurrenceStart time.Time, edit Edit, scope Scope) (Resolution, error) {
	if err := checkOccurrence(s, occurrenceStart); err != nil {
		return Resolution{}, err
	}
	if scope == ScopeThisAndFollowing && occurrenceStart.Equal(s.AnchorStart) {
		scope = ScopeAllEvents
	}
	switch scope {
	case ScopeThisEvent:
		return resolveDetach(s, occurrenceStart, edit), nil
	case ScopeThisAndFollowing:
		return resolveSplit(s, occurrenceStart, edit), nil
	case ScopeAllEvents:
		return resolveRewrite(s, occurrenceStart, edit), nil
	default:
		return Resolution{}, ErrUnknownScope
	}
}

// ResolveDelete is the delete counterpart of ResolveEdit: deleting one
// occurrence records an exception, deleting this-and-following clamps
// the rule, and deleting all events drops the series record itself.
func ResolveDelete(s Series, occurrenceStart time.Time, scope Scope) (Resolution, error) {
	if err := checkOccurrence(s, occurrenceStart); err != nil {
		return Resolution{}, err
	}
	if scope == ScopeThisAndFollowing && occurrenceStart.Equal(s.AnchorStart) {
		scope = ScopeAllEvents
	}
	switch scope {
	case ScopeThisEvent:
		return Resolution{
			Mutate: &SeriesMutation{Exceptions: appendException(s.Exceptions, occurrenceStart)},
		}, nil
	case ScopeThisAndFollowing:
		clamped := ClampRuleUntil(s.Recurrence, occurrenceStart)
		return Resolution{Mutate: &SeriesMutation{Recurrence: &clamped}}, nil
	case ScopeAllEvents:
		return Resolution{DeleteSeries: true}, nil
	default:
		return Resolution{}, ErrUnknownScope
	}
}

func checkOccurrence(s Series, at time.Time) error {
	if !HasOccurrenceAt(s, at) || NewExceptionSet(s.Exceptions).Contains(at) {
		return ErrOccurrenceNotFound
	}
	return nil
}

// resolveDetach excludes the occurrence from its series and rebuilds it
// as a brand-new one-off event carrying the edited values.
func resolveDetach(s Series, occurrenceStart time.Time, edit Edit) Resolution {
	start, end := editedBounds(s, occurrenceStart, edit)
	detached := Series{
		Title:       valueOr(edit.Title, s.Title),
		Description: valueOr(edit.Description, s.Description),
		Location:    valueOr(edit.Location, s.Location),
		AnchorStart: start,
		AnchorEnd:   end,
		AllDay:      valueOr(edit.AllDay, s.AllDay),
	}
	return Resolution{
		Mutate: &SeriesMutation{Exceptions: appendException(s.Exceptions, occurrenceStart)},
		Create: &detached,
	}
}

// resolveSplit ends the original series just before the occurrence and
// forks a new series from it. The fork continues the original pattern
// unless the edit also changed the rule, and starts with a clean
// exception list.
func resolveSplit(s Series, occurrenceStart time.Time, edit Edit) Resolution {
	start, end := editedBounds(s, occurrenceStart, edit)
	clamped := ClampRuleUntil(s.Recurrence, occurrenceStart)
	fork := Series{
		Title:       valueOr(edit.Title, s.Title),
		Description: valueOr(edit.Description, s.Description),
		Location:    valueOr(edit.Location, s.Location),
		AnchorStart: start,
		AnchorEnd:   end,
		AllDay:      valueOr(edit.AllDay, s.AllDay),
		Recurrence:  valueOr(edit.Recurrence, s.Recurrence),
	}
	return Resolution{
		Mutate: &SeriesMutation{Recurrence: &clamped},
		Create: &fork,
	}
}

// resolveRewrite mutates the series in place. A moved start is applied
// to the anchor as a uniform offset, so every occurrence shifts by the
// same amount the edited one did; duration is preserved unless the edit
// also moved the end.
func resolveRewrite(s Series, occurrenceStart time.Time, edit Edit) Resolution {
	m := &SeriesMutation{
		Title:       edit.Title,
		Description: edit.Description,
		Location:    edit.Location,
		AllDay:      edit.AllDay,
		Recurrence:  edit.Recurrence,
	}
	duration := s.AnchorEnd.Sub(s.AnchorStart)
	if edit.Start != nil {
		shifted := s.AnchorStart.Add(edit.Start.Sub(occurrenceStart))
		m.AnchorStart = &shifted
		if edit.End == nil {
			shiftedEnd := shifted.Add(duration)
			m.AnchorEnd = &shiftedEnd
		}
	}
	if edit.End != nil {
		occurrenceEnd := occurrenceStart.Add(duration)
		shiftedEnd := s.AnchorEnd.Add(edit.End.Sub(occurrenceEnd))
		m.AnchorEnd = &shiftedEnd
	}
	return Resolution{Mutate: m}
}

// editedBounds resolves the start and end of the detached or forked
// event: the edit's values when present, otherwise the occurrence's own
// bounds derived from the anchor duration.
func editedBounds(s Series, occurrenceStart time.Time, edit Edit) (time.Time, time.Time) {
	duration := s.AnchorEnd.Sub(s.AnchorStart)
	start := occurrenceStart
	if edit.Start != nil {
		start = *edit.Start
	}
	end := start.Add(duration)
	if edit.End != nil {
		end = *edit.End
	}
	return start, end
}

// appendException adds start to the list unless an equal instant is
// already recorded. The input slice is not modified.
func appendException(existing []string, start time.Time) []string {
	out := make([]string, 0, len(existing)+1)
	out = append(out, existing...)
	for _, entry := range existing {
		if t, err := time.Parse(time.RFC3339, entry); err == nil && t.Equal(start) {
			return out
		}
	}
	return append(out, start.UTC().Format(time.RFC3339))
}

func valueOr[T any](p *T, fallback T) T {
	if p != nil {
		return *p
	}
	return fallback
}
