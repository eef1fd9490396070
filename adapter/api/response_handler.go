package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	notificationDomain "github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/caniken03/vioconcierge/internal/rescheduling/application/commands"
)

// ResponseHandler serves the customer-facing response endpoint. Requests are
// authenticated by the single-use token alone.
type ResponseHandler struct {
	process *commands.ProcessCustomerResponseHandler
	logger  *slog.Logger
}

// NewResponseHandler creates the handler.
func NewResponseHandler(process *commands.ProcessCustomerResponseHandler, logger *slog.Logger) *ResponseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseHandler{process: process, logger: logger}
}

type respondBody struct {
	Token string `json:"token"`

	// SelectedSlotIndex indexes the offered slot list; null declines them all.
	SelectedSlotIndex *int   `json:"selected_slot_index"`
	Comments          string `json:"comments,omitempty"`
}

// Respond consumes a response token and applies the customer's choice.
func (h *ResponseHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var body respondBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.process.Handle(r.Context(), commands.ProcessCustomerResponseCommand{
		Token:             body.Token,
		SelectedSlotIndex: body.SelectedSlotIndex,
		Comments:          body.Comments,
	})
	if err != nil {
		switch {
		case errors.Is(err, notificationDomain.ErrInvalidToken):
			writeError(w, http.StatusNotFound, "invalid or expired token")
		case errors.Is(err, notificationDomain.ErrSlotIndexOutOfRange):
			writeError(w, http.StatusBadRequest, "selected slot index out of range")
		default:
			h.logger.Error("customer response failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if result.Declined {
		writeJSON(w, http.StatusOK, map[string]any{"status": "declined"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         result.Run.Status,
		"workflow_stage": result.Run.Stage,
		"message":        result.Run.Message,
	})
}
