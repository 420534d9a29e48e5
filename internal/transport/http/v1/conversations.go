package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// GetConversation returns the full session record.
// GET /conversation/:session_id
func (h *Handler) GetConversation(c echo.Context) error {
	session, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// AppendEntries appends transcript entries.
// POST /conversation/:session_id/entries
func (h *Handler) AppendEntries(c echo.Context) error {
	var req domain.AppendEntriesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "ValidationError", Details: "invalid request body"})
	}

	session, err := h.service.AppendEntries(c.Request().Context(), c.Param("session_id"), req.Entries)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// CompleteConversation marks the session completed and triggers its callback.
// POST /conversation/:session_id/complete
func (h *Handler) CompleteConversation(c echo.Context) error {
	var req domain.CompleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "ValidationError", Details: "invalid request body"})
	}

	session, err := h.service.CompleteSession(c.Request().Context(), c.Param("session_id"), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}
