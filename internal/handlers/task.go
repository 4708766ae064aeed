package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yadava5/taskflow/internal/authctx"
	"github.com/yadava5/taskflow/internal/repos"
	"github.com/yadava5/taskflow/internal/services"
	"github.com/yadava5/taskflow/internal/types"
)

type TaskHandler struct {
	tasks services.TaskService
}

func NewTaskHandler(tasks services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (th *TaskHandler) Create(c *gin.Context) {
	var req struct {
		Title    string     `json:"title"`
		Notes    string     `json:"notes"`
		DueAt    *time.Time `json:"due_at"`
		AllDay   bool       `json:"all_day"`
		Priority string     `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	task, err := th.tasks.Create(c.Request.Context(), authctx.UserID(c.Request.Context()), services.TaskInput{
		Title:    req.Title,
		Notes:    req.Notes,
		DueAt:    req.DueAt,
		AllDay:   req.AllDay,
		Priority: types.TaskPriority(req.Priority),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// QuickAdd turns a free-form capture line into a task.
func (th *TaskHandler) QuickAdd(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	task, err := th.tasks.QuickAdd(c.Request.Context(), authctx.UserID(c.Request.Context()), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (th *TaskHandler) List(c *gin.Context) {
	filter, ok := taskFilterFromQuery(c)
	if !ok {
		return
	}
	tasks, err := th.tasks.List(c.Request.Context(), authctx.UserID(c.Request.Context()), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (th *TaskHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := th.tasks.Get(c.Request.Context(), authctx.UserID(c.Request.Context()), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (th *TaskHandler) Patch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title    *string    `json:"title"`
		Notes    *string    `json:"notes"`
		DueAt    *time.Time `json:"due_at"`
		ClearDue bool       `json:"clear_due"`
		AllDay   *bool      `json:"all_day"`
		Priority *string    `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	patch := services.TaskPatch{
		Title:    req.Title,
		Notes:    req.Notes,
		DueAt:    req.DueAt,
		ClearDue: req.ClearDue,
		AllDay:   req.AllDay,
	}
	if req.Priority != nil {
		p := types.TaskPriority(*req.Priority)
		patch.Priority = &p
	}
	task, err := th.tasks.Update(c.Request.Context(), authctx.UserID(c.Request.Context()), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Toggle flips a task between open and done.
func (th *TaskHandler) Toggle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := th.tasks.Toggle(c.Request.Context(), authctx.UserID(c.Request.Context()), id, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (th *TaskHandler) Reorder(c *gin.Context) {
	var req struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := th.tasks.Reorder(c.Request.Context(), authctx.UserID(c.Request.Context()), req.IDs); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (th *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := th.tasks.Delete(c.Request.Context(), authctx.UserID(c.Request.Context()), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func taskFilterFromQuery(c *gin.Context) (repos.TaskFilter, bool) {
	var filter repos.TaskFilter
	if v := c.Query("done"); v != "" {
		done, err := strconv.ParseBool(v)
		if err != nil {
			respondBadRequest(c, fmt.Errorf("done must be a boolean"))
			return filter, false
		}
		filter.Done = &done
	}
	if v := c.Query("due_from"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			respondBadRequest(c, fmt.Errorf("due_from: %v", err))
			return filter, false
		}
		filter.DueFrom = &t
	}
	if v := c.Query("due_to"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			respondBadRequest(c, fmt.Errorf("due_to: %v", err))
			return filter, false
		}
		filter.DueTo = &t
	}
	return filter, true
}
