package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yadava5/taskflow/internal/authctx"
	"github.com/yadava5/taskflow/internal/recurrence"
	"github.com/yadava5/taskflow/internal/services"
)

type EventHandler struct {
	events    services.EventService
	calendars services.CalendarService
}

func NewEventHandler(events services.EventService, calendars services.CalendarService) *EventHandler {
	return &EventHandler{events: events, calendars: calendars}
}

// repeatOptions is the structured alternative to raw rule text on event
// creation. Fields that do not apply to the chosen frequency are ignored.
type repeatOptions struct {
	Freq     string     `json:"freq"`
	Interval int        `json:"interval"`
	Weekdays []string   `json:"weekdays"`
	MonthDay int        `json:"month_day"`
	Month    int        `json:"month"`
	Until    *time.Time `json:"until"`
	Count    int        `json:"count"`
}

func (o repeatOptions) rule() (recurrence.Rule, error) {
	freq, ok := recurrence.ParseFrequency(o.Freq)
	if !ok {
		return recurrence.Rule{}, fmt.Errorf("unknown freq %q", o.Freq)
	}
	r := recurrence.Rule{
		Freq:       freq,
		Interval:   o.Interval,
		ByMonthDay: o.MonthDay,
		ByMonth:    time.Month(o.Month),
	}
	for _, code := range o.Weekdays {
		wd, ok := recurrence.ParseWeekday(code)
		if !ok {
			return recurrence.Rule{}, fmt.Errorf("unknown weekday %q", code)
		}
		r.ByWeekdays = append(r.ByWeekdays, wd)
	}
	switch {
	case o.Until != nil && o.Count > 0:
		return recurrence.Rule{}, fmt.Errorf("until and count are mutually exclusive")
	case o.Until != nil:
		r.End = recurrence.EndOn
		r.Until = *o.Until
	case o.Count > 0:
		r.End = recurrence.EndAfter
		r.Count = o.Count
	}
	return r, nil
}

func (eh *EventHandler) Create(c *gin.Context) {
	var req struct {
		CalendarID  uuid.UUID      `json:"calendar_id"`
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Location    string         `json:"location"`
		Start       time.Time      `json:"start"`
		End         time.Time      `json:"end"`
		AllDay      bool           `json:"all_day"`
		Recurrence  string         `json:"recurrence"`
		Repeat      *repeatOptions `json:"repeat"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.Repeat != nil {
		if req.Recurrence != "" {
			respondBadRequest(c, fmt.Errorf("recurrence and repeat are mutually exclusive"))
			return
		}
		rule, err := req.Repeat.rule()
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		req.Recurrence = recurrence.GenerateRule(rule, req.Start)
	}
	userID := authctx.UserID(c.Request.Context())

	// an omitted calendar lands the event in the default one
	if req.CalendarID == uuid.Nil {
		def, err := eh.calendars.GetDefault(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		req.CalendarID = def.ID
	}

	series, err := eh.events.Create(c.Request.Context(), userID, services.EventInput{
		CalendarID:  req.CalendarID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.Start,
		EndsAt:      req.End,
		AllDay:      req.AllDay,
		Recurrence:  req.Recurrence,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, series)
}

func (eh *EventHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	series, err := eh.events.Get(c.Request.Context(), authctx.UserID(c.Request.Context()), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (eh *EventHandler) ListByCalendar(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rows, err := eh.events.ListByCalendar(c.Request.Context(), authctx.UserID(c.Request.Context()), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (eh *EventHandler) Agenda(c *gin.Context) {
	from, to, ok := windowFromQuery(c)
	if !ok {
		return
	}
	items, err := eh.events.Agenda(c.Request.Context(), authctx.UserID(c.Request.Context()), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": items})
}

func (eh *EventHandler) Occurrences(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	from, to, ok := windowFromQuery(c)
	if !ok {
		return
	}
	items, err := eh.events.Occurrences(c.Request.Context(), authctx.UserID(c.Request.Context()), id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": items})
}

// Patch updates a series. Without a scope the change applies to the series
// row directly; with one, the edit goes through occurrence scoping and may
// split the series.
func (eh *EventHandler) Patch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Scope           string     `json:"scope"`
		OccurrenceStart *time.Time `json:"occurrence_start"`

		CalendarID  *uuid.UUID `json:"calendar_id"`
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Location    *string    `json:"location"`
		Start       *time.Time `json:"start"`
		End         *time.Time `json:"end"`
		AllDay      *bool      `json:"all_day"`
		Recurrence  *string    `json:"recurrence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	userID := authctx.UserID(c.Request.Context())
	edit := recurrence.Edit{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Start:       req.Start,
		End:         req.End,
		AllDay:      req.AllDay,
		Recurrence:  req.Recurrence,
	}

	if req.Scope == "" {
		updated, err := eh.events.Update(c.Request.Context(), userID, id, services.EventPatch{
			CalendarID: req.CalendarID,
			Edit:       edit,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, services.EditOutcome{Updated: updated})
		return
	}

	scope, err := recurrence.ParseScope(req.Scope)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.OccurrenceStart == nil {
		respondBadRequest(c, fmt.Errorf("occurrence_start is required with scope %q", req.Scope))
		return
	}
	if req.CalendarID != nil {
		respondBadRequest(c, fmt.Errorf("calendar_id cannot change in a scoped edit"))
		return
	}

	out, err := eh.events.ApplyEdit(c.Request.Context(), userID, id, *req.OccurrenceStart, edit, scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Delete removes a whole series, or just one occurrence slice of it when
// scope and occurrence_start query parameters are present.
func (eh *EventHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := authctx.UserID(c.Request.Context())

	scopeParam := c.Query("scope")
	if scopeParam == "" {
		if err := eh.events.Delete(c.Request.Context(), userID, id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	scope, err := recurrence.ParseScope(scopeParam)
	if err != nil {
		respondError(c, err)
		return
	}
	occurrenceStart, err := time.Parse(time.RFC3339, c.Query("occurrence_start"))
	if err != nil {
		respondBadRequest(c, fmt.Errorf("occurrence_start must be RFC 3339"))
		return
	}

	out, err := eh.events.ApplyDelete(c.Request.Context(), userID, id, occurrenceStart, scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// windowFromQuery reads the from/to parameters. Full RFC 3339 instants and
// bare dates (taken as midnight UTC) are both accepted.
func windowFromQuery(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := parseTimeParam(c.Query("from"))
	if err != nil {
		respondBadRequest(c, fmt.Errorf("from: %v", err))
		return time.Time{}, time.Time{}, false
	}
	to, err := parseTimeParam(c.Query("to"))
	if err != nil {
		respondBadRequest(c, fmt.Errorf("to: %v", err))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("missing time parameter")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("want RFC 3339 or YYYY-MM-DD, got %q", v)
}
