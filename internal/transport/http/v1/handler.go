// Package v1 provides the call control HTTP handlers.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
	"github.com/xiaot623/gogo/callcontrol/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/health", h.Health)

	// Sessions
	e.POST("/call", h.PlaceCall)
	e.GET("/conversation/:session_id", h.GetConversation)
	e.POST("/conversation/:session_id/entries", h.AppendEntries)
	e.POST("/conversation/:session_id/complete", h.CompleteConversation)

	// Engine pass-throughs
	e.GET("/calls", h.ListChannels)
	e.POST("/hangup", h.Hangup)
}

// Index returns a static banner.
func (h *Handler) Index(c echo.Context) error {
	return c.String(http.StatusOK, "Asterisk Trigger API is running")
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// writeError maps service errors onto status codes. Details are limited to
// the error kind and a message that carries no paths or engine syntax.
func writeError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	var pe *domain.PolicyError
	var de *domain.DispatchError
	var se *domain.StorageError

	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "ValidationError", Details: ve.Error()})
	case errors.As(err, &pe):
		return c.JSON(http.StatusForbidden, domain.ErrorResponse{Error: "PolicyError", Details: pe.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: "NotFound", Details: "session not found"})
	case errors.Is(err, domain.ErrSessionCompleted):
		return c.JSON(http.StatusConflict, domain.ErrorResponse{Error: "Conflict", Details: err.Error()})
	case errors.As(err, &de):
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "DispatchError",
			"cause":   string(de.Cause),
			"details": de.Message,
		})
	case errors.As(err, &se):
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: se.Kind(), Details: "failed to " + string(se.Op) + " session"})
	default:
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "InternalError", Details: "internal error"})
	}
}
