// Package handlers implements the HTTP API surface. Handlers bind and
// validate the wire shapes, call one service method and translate its
// errors; they contain no application logic of their own.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yadava5/taskflow/internal/recurrence"
	"github.com/yadava5/taskflow/internal/repos"
	"github.com/yadava5/taskflow/internal/services"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// respondError maps service errors onto HTTP statuses. Anything unmapped is
// a 500 and the message is withheld from the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(c, http.StatusUnprocessableEntity, "invalid_input", err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, services.ErrInvalidToken):
		writeError(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
	case errors.Is(err, recurrence.ErrOccurrenceNotFound):
		writeError(c, http.StatusConflict, "occurrence_not_found", err.Error())
	case errors.Is(err, recurrence.ErrUnknownScope):
		writeError(c, http.StatusUnprocessableEntity, "unknown_scope", err.Error())
	case errors.Is(err, repos.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, repos.ErrConflict):
		writeError(c, http.StatusConflict, "conflict", "resource already exists")
	default:
		writeError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func respondBadRequest(c *gin.Context, err error) {
	writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorEnvelope{Error: apiError{Message: message, Code: code}})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_id", "malformed id in path")
		return uuid.Nil, false
	}
	return id, true
}
