package v1

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// PlaceCall creates a session and originates an outbound call.
// POST /call
func (h *Handler) PlaceCall(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.CallRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "ValidationError", Details: "invalid request body"})
	}

	log.Printf("Received request to call %q", req.PhoneNumber)

	session, err := h.service.PlaceCall(ctx, &req)
	if err != nil {
		var de *domain.DispatchError
		if session != nil && errors.As(err, &de) {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error":     "DispatchError",
				"cause":     string(de.Cause),
				"details":   de.Message,
				"sessionId": session.SessionID,
			})
		}
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, domain.CallResponse{
		Message:     "Call initiated successfully",
		PhoneNumber: session.PhoneNumber,
		SessionID:   session.SessionID,
		Script:      session.Script,
		CallbackURL: session.CallbackURL,
		Note:        "Conversation will be saved. Retrieve it with GET /conversation/" + session.SessionID,
	})
}

// ListChannels returns the engine's active channel snapshot.
// GET /calls
func (h *Handler) ListChannels(c echo.Context) error {
	out, err := h.service.ListChannels(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.ChannelsResponse{Channels: out})
}

// Hangup requests hangup of an engine channel.
// POST /hangup
func (h *Handler) Hangup(c echo.Context) error {
	var req domain.HangupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "ValidationError", Details: "invalid request body"})
	}
	if req.Channel == "" {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "ValidationError", Details: "channel is required"})
	}

	out, err := h.service.Hangup(c.Request().Context(), req.Channel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.HangupResponse{Message: "Hangup requested", Output: out})
}
