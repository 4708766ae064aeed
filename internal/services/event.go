package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/recurrence"
	"github.com/yadava5/taskflow/internal/repos"
	"github.com/yadava5/taskflow/internal/types"
)

// maxAgendaWindow bounds a single expansion request. A recurring series is
// unbounded, so the window has to be.
const maxAgendaWindow = 366 * 24 * time.Hour

// EventInput carries the fields of an event creation request.
type EventInput struct {
	CalendarID  uuid.UUID
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	AllDay      bool
	Recurrence  string
}

// EventPatch is a partial update of series-level fields. Nil means leave
// the field alone. Setting Recurrence to the empty string makes the series
// non-recurring and clears its exceptions.
type EventPatch struct {
	CalendarID *uuid.UUID
	recurrence.Edit
}

// AgendaItem is one concrete occurrence inside a requested window.
type AgendaItem struct {
	SeriesID    uuid.UUID `json:"series_id"`
	CalendarID  uuid.UUID `json:"calendar_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Recurring   bool      `json:"recurring"`
}

// EditOutcome reports what a scoped edit or delete did to the store.
type EditOutcome struct {
	Updated *types.EventSeries `json:"updated,omitempty"`
	Created *types.EventSeries `json:"created,omitempty"`
	Deleted bool               `json:"deleted,omitempty"`
}

// EventService owns event series and their occurrence expansion.
type EventService interface {
	// Create validates and stores a new series.
	Create(ctx context.Context, userID uuid.UUID, in EventInput) (*types.EventSeries, error)

	// Get returns a single series owned by the user.
	Get(ctx context.Context, userID, id uuid.UUID) (*types.EventSeries, error)

	// ListByCalendar returns the series of one calendar, anchors only.
	ListByCalendar(ctx context.Context, userID, calendarID uuid.UUID) ([]*types.EventSeries, error)

	// Agenda expands every series of the user over [windowStart, windowEnd)
	// and returns the surviving occurrences sorted by start time.
	Agenda(ctx context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]AgendaItem, error)

	// Occurrences expands a single series over the window.
	Occurrences(ctx context.Context, userID, id uuid.UUID, windowStart, windowEnd time.Time) ([]AgendaItem, error)

	// Update applies a series-level patch without occurrence scoping.
	Update(ctx context.Context, userID, id uuid.UUID, patch EventPatch) (*types.EventSeries, error)

	// ApplyEdit edits one occurrence of a series under the given scope.
	ApplyEdit(ctx context.Context, userID, id uuid.UUID, occurrenceStart time.Time, edit recurrence.Edit, scope recurrence.Scope) (*EditOutcome, error)

	// ApplyDelete removes one occurrence of a series under the given scope.
	ApplyDelete(ctx context.Context, userID, id uuid.UUID, occurrenceStart time.Time, scope recurrence.Scope) (*EditOutcome, error)

	// Delete removes the whole series regardless of recurrence.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type eventService struct {
	db           *gorm.DB
	log          *logger.Logger
	eventRepo    repos.EventRepo
	calendarRepo repos.CalendarRepo
}

func NewEventService(db *gorm.DB, log *logger.Logger, eventRepo repos.EventRepo, calendarRepo repos.CalendarRepo) EventService {
	return &eventService{
		db:           db,
		log:          log.With("service", "EventService"),
		eventRepo:    eventRepo,
		calendarRepo: calendarRepo,
	}
}

func (es *eventService) Create(ctx context.Context, userID uuid.UUID, in EventInput) (*types.EventSeries, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title", ErrValidation)
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("%w: end must be after start", ErrValidation)
	}
	rule := strings.TrimSpace(in.Recurrence)
	if rule != "" && recurrence.ParseRule(rule).IsAbsent() {
		return nil, fmt.Errorf("%w: unrecognized recurrence rule", ErrValidation)
	}
	if _, err := es.calendarRepo.GetByID(ctx, nil, userID, in.CalendarID); err != nil {
		return nil, err
	}

	series := &types.EventSeries{
		CalendarID:  in.CalendarID,
		UserID:      userID,
		Title:       title,
		Description: in.Description,
		Location:    in.Location,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		AllDay:      in.AllDay,
		Recurrence:  rule,
	}
	if err := es.eventRepo.Create(ctx, nil, series); err != nil {
		return nil, err
	}
	es.log.Debug("event created", "series_id", series.ID, "recurring", series.IsRecurring())
	return series, nil
}

func (es *eventService) Get(ctx context.Context, userID, id uuid.UUID) (*types.EventSeries, error) {
	return es.eventRepo.GetByID(ctx, nil, userID, id)
}

func (es *eventService) ListByCalendar(ctx context.Context, userID, calendarID uuid.UUID) ([]*types.EventSeries, error) {
	if _, err := es.calendarRepo.GetByID(ctx, nil, userID, calendarID); err != nil {
		return nil, err
	}
	return es.eventRepo.ListByCalendar(ctx, nil, userID, calendarID)
}

func (es *eventService) Agenda(ctx context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]AgendaItem, error) {
	if err := checkWindow(windowStart, windowEnd); err != nil {
		return nil, err
	}
	rows, err := es.eventRepo.ListCandidatesForWindow(ctx, nil, userID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	items := make([]AgendaItem, 0, len(rows))
	for _, row := range rows {
		occs := recurrence.ExpandOccurrences(row.RecurrenceSeries(), windowStart, windowEnd)
		for _, o := range occs {
			items = append(items, occurrenceItem(row, o))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}
		return items[i].SeriesID.String() < items[j].SeriesID.String()
	})
	return items, nil
}

func (es *eventService) Occurrences(ctx context.Context, userID, id uuid.UUID, windowStart, windowEnd time.Time) ([]AgendaItem, error) {
	if err := checkWindow(windowStart, windowEnd); err != nil {
		return nil, err
	}
	row, err := es.eventRepo.GetByID(ctx, nil, userID, id)
	if err != nil {
		return nil, err
	}
	occs := recurrence.ExpandOccurrences(row.RecurrenceSeries(), windowStart, windowEnd)
	items := make([]AgendaItem, 0, len(occs))
	for _, o := range occs {
		items = append(items, occurrenceItem(row, o))
	}
	return items, nil
}

func (es *eventService) Update(ctx context.Context, userID, id uuid.UUID, patch EventPatch) (*types.EventSeries, error) {
	var updated *types.EventSeries
	err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := es.eventRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		changes, err := editChanges(row, patch.Edit)
		if err != nil {
			return err
		}
		if patch.CalendarID != nil {
			if _, err := es.calendarRepo.GetByID(ctx, tx, userID, *patch.CalendarID); err != nil {
				return err
			}
			changes["calendar_id"] = *patch.CalendarID
		}
		if err := es.eventRepo.ApplyChanges(ctx, tx, userID, id, changes); err != nil {
			return err
		}
		updated, err = es.eventRepo.GetByID(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// editChanges validates an edit against the stored row and returns the
// column updates it implies. Clearing the rule also clears the
// exception list, which is meaningless without one.
func editChanges(row *types.EventSeries, edit recurrence.Edit) (map[string]any, error) {
	changes := map[string]any{}
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title", ErrValidation)
		}
		changes["title"] = title
	}
	if edit.Description != nil {
		changes["description"] = *edit.Description
	}
	if edit.Location != nil {
		changes["location"] = *edit.Location
	}
	start, end := row.StartsAt, row.EndsAt
	if edit.Start != nil {
		start = *edit.Start
		changes["starts_at"] = start
	}
	if edit.End != nil {
		end = *edit.End
		changes["ends_at"] = end
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrValidation)
	}
	if edit.AllDay != nil {
		changes["all_day"] = *edit.AllDay
	}
	if edit.Recurrence != nil {
		rule := strings.TrimSpace(*edit.Recurrence)
		if rule == "" {
			changes["recurrence"] = ""
			changes["exceptions"] = datatypes.JSONSlice[string]{}
		} else {
			if recurrence.ParseRule(rule).IsAbsent() {
				return nil, fmt.Errorf("%w: unrecognized recurrence rule", ErrValidation)
			}
			changes["recurrence"] = rule
		}
	}
	return changes, nil
}

func (es *eventService) ApplyEdit(ctx context.Context, userID, id uuid.UUID, occurrenceStart time.Time, edit recurrence.Edit, scope recurrence.Scope) (*EditOutcome, error) {
	if edit.End != nil && edit.Start != nil && !edit.End.After(*edit.Start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrValidation)
	}
	if edit.Recurrence != nil && strings.TrimSpace(*edit.Recurrence) != "" &&
		recurrence.ParseRule(*edit.Recurrence).IsAbsent() {
		return nil, fmt.Errorf("%w: unrecognized recurrence rule", ErrValidation)
	}

	out := &EditOutcome{}
	err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := es.eventRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if !row.IsRecurring() {
			return es.updateSingle(ctx, tx, row, occurrenceStart, edit, out)
		}
		res, err := recurrence.ResolveEdit(row.RecurrenceSeries(), occurrenceStart, edit, scope)
		if err != nil {
			return err
		}
		return es.applyResolution(ctx, tx, row, res, out)
	})
	if err != nil {
		return nil, err
	}
	es.log.Debug("scoped edit applied", "series_id", id, "scope", scope.String(),
		"created", out.Created != nil, "deleted", out.Deleted)
	return out, nil
}

// updateSingle handles a scoped edit of a non-recurring series. Its only
// occurrence is the anchor, so every scope collapses to an in-place
// update of the record and the resolver is never consulted. Start keeps
// its occurrence meaning: moving it keeps the duration unless the edit
// also sets End.
func (es *eventService) updateSingle(ctx context.Context, tx *gorm.DB, row *types.EventSeries, occurrenceStart time.Time, edit recurrence.Edit, out *EditOutcome) error {
	if !occurrenceStart.Equal(row.StartsAt) {
		return recurrence.ErrOccurrenceNotFound
	}
	duration := row.EndsAt.Sub(row.StartsAt)
	start := row.StartsAt
	if edit.Start != nil {
		start = *edit.Start
	}
	end := start.Add(duration)
	if edit.End != nil {
		end = *edit.End
	}
	edit.Start, edit.End = &start, &end
	changes, err := editChanges(row, edit)
	if err != nil {
		return err
	}
	if err := es.eventRepo.ApplyChanges(ctx, tx, row.UserID, row.ID, changes); err != nil {
		return err
	}
	updated, err := es.eventRepo.GetByID(ctx, tx, row.UserID, row.ID)
	if err != nil {
		return err
	}
	out.Updated = updated
	return nil
}

func (es *eventService) ApplyDelete(ctx context.Context, userID, id uuid.UUID, occurrenceStart time.Time, scope recurrence.Scope) (*EditOutcome, error) {
	out := &EditOutcome{}
	err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := es.eventRepo.GetByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if !row.IsRecurring() {
			// Removing the only occurrence removes the record, whatever
			// the scope says.
			if !occurrenceStart.Equal(row.StartsAt) {
				return recurrence.ErrOccurrenceNotFound
			}
			if err := es.eventRepo.Delete(ctx, tx, userID, id); err != nil {
				return err
			}
			out.Deleted = true
			return nil
		}
		res, err := recurrence.ResolveDelete(row.RecurrenceSeries(), occurrenceStart, scope)
		if err != nil {
			return err
		}
		return es.applyResolution(ctx, tx, row, res, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (es *eventService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return es.eventRepo.Delete(ctx, nil, userID, id)
}

// applyResolution executes a recurrence.Resolution against the store. The
// mutation lands before the fork so a failed insert never leaves a window
// where an occurrence exists twice.
func (es *eventService) applyResolution(ctx context.Context, tx *gorm.DB, parent *types.EventSeries, res recurrence.Resolution, out *EditOutcome) error {
	if res.Mutate != nil {
		changes := mutationChanges(res.Mutate)
		if err := es.eventRepo.ApplyChanges(ctx, tx, parent.UserID, parent.ID, changes); err != nil {
			return err
		}
		updated, err := es.eventRepo.GetByID(ctx, tx, parent.UserID, parent.ID)
		if err != nil {
			return err
		}
		out.Updated = updated
	}
	if res.Create != nil {
		fork := forkRow(parent, res.Create)
		if err := es.eventRepo.Create(ctx, tx, fork); err != nil {
			return err
		}
		out.Created = fork
	}
	if res.DeleteSeries {
		if err := es.eventRepo.Delete(ctx, tx, parent.UserID, parent.ID); err != nil {
			return err
		}
		out.Deleted = true
	}
	return nil
}

func mutationChanges(m *recurrence.SeriesMutation) map[string]any {
	changes := map[string]any{}
	if m.Title != nil {
		changes["title"] = *m.Title
	}
	if m.Description != nil {
		changes["description"] = *m.Description
	}
	if m.Location != nil {
		changes["location"] = *m.Location
	}
	if m.AnchorStart != nil {
		changes["starts_at"] = *m.AnchorStart
	}
	if m.AnchorEnd != nil {
		changes["ends_at"] = *m.AnchorEnd
	}
	if m.AllDay != nil {
		changes["all_day"] = *m.AllDay
	}
	if m.Recurrence != nil {
		changes["recurrence"] = *m.Recurrence
	}
	if m.Exceptions != nil {
		changes["exceptions"] = datatypes.JSONSlice[string](m.Exceptions)
	}
	return changes
}

// forkRow materializes a resolver-created series in the parent's calendar.
func forkRow(parent *types.EventSeries, s *recurrence.Series) *types.EventSeries {
	return &types.EventSeries{
		CalendarID:  parent.CalendarID,
		UserID:      parent.UserID,
		Title:       s.Title,
		Description: s.Description,
		Location:    s.Location,
		StartsAt:    s.AnchorStart,
		EndsAt:      s.AnchorEnd,
		AllDay:      s.AllDay,
		Recurrence:  s.Recurrence,
		Exceptions:  datatypes.JSONSlice[string](s.Exceptions),
	}
}

func occurrenceItem(row *types.EventSeries, o recurrence.Occurrence) AgendaItem {
	return AgendaItem{
		SeriesID:    row.ID,
		CalendarID:  row.CalendarID,
		Title:       row.Title,
		Description: row.Description,
		Location:    row.Location,
		Start:       o.Start,
		End:         o.End,
		AllDay:      o.AllDay,
		Recurring:   row.IsRecurring(),
	}
}

func checkWindow(windowStart, windowEnd time.Time) error {
	if !windowEnd.After(windowStart) {
		return fmt.Errorf("%w: window end must be after window start", ErrValidation)
	}
	if windowEnd.Sub(windowStart) > maxAgendaWindow {
		return fmt.Errorf("%w: window exceeds %d days", ErrValidation, int(maxAgendaWindow/(24*time.Hour)))
	}
	return nil
}
