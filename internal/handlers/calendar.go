package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yadava5/taskflow/internal/authctx"
	"github.com/yadava5/taskflow/internal/services"
)

type CalendarHandler struct {
	calendars services.CalendarService
	ics       services.ICSService
}

func NewCalendarHandler(calendars services.CalendarService, ics services.ICSService) *CalendarHandler {
	return &CalendarHandler{calendars: calendars, ics: ics}
}

func (ch *CalendarHandler) Create(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	cal, err := ch.calendars.Create(c.Request.Context(), authctx.UserID(c.Request.Context()), req.Name, req.Color)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cal)
}

func (ch *CalendarHandler) List(c *gin.Context) {
	cals, err := ch.calendars.List(c.Request.Context(), authctx.UserID(c.Request.Context()))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendars": cals})
}

func (ch *CalendarHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cal, err := ch.calendars.Get(c.Request.Context(), authctx.UserID(c.Request.Context()), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

func (ch *CalendarHandler) Patch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	cal, err := ch.calendars.Update(c.Request.Context(), authctx.UserID(c.Request.Context()), id, services.CalendarPatch{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

func (ch *CalendarHandler) SetDefault(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cal, err := ch.calendars.SetDefault(c.Request.Context(), authctx.UserID(c.Request.Context()), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

func (ch *CalendarHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ch.calendars.Delete(c.Request.Context(), authctx.UserID(c.Request.Context()), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export streams the calendar as an ICS document.
func (ch *CalendarHandler) Export(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ch.ics.Export(c.Request.Context(), authctx.UserID(c.Request.Context()), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="calendar.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(doc))
}

// Import reads an ICS document from the request body and creates a series
// per master event found in it.
func (ch *CalendarHandler) Import(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := ch.ics.Import(c.Request.Context(), authctx.UserID(c.Request.Context()), id, c.Request.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
