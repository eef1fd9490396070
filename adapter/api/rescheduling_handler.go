package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/caniken03/vioconcierge/internal/rescheduling/application/commands"
	"github.com/caniken03/vioconcierge/internal/rescheduling/application/workflow"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	"github.com/google/uuid"
)

// ReschedulingHandler serves the request-side endpoints: intake, status,
// confirmation, cancellation and call outcomes.
type ReschedulingHandler struct {
	create     *commands.CreateRequestHandler
	process    *commands.ProcessWorkflowHandler
	confirm    *commands.ConfirmRescheduleHandler
	cancel     *commands.CancelRequestHandler
	recordCall *commands.RecordCallOutcomeHandler
	requests   domain.RequestRepository
	logger     *slog.Logger
}

// NewReschedulingHandler creates the handler.
func NewReschedulingHandler(
	create *commands.CreateRequestHandler,
	process *commands.ProcessWorkflowHandler,
	confirm *commands.ConfirmRescheduleHandler,
	cancel *commands.CancelRequestHandler,
	recordCall *commands.RecordCallOutcomeHandler,
	requests domain.RequestRepository,
	logger *slog.Logger,
) *ReschedulingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReschedulingHandler{
		create:     create,
		process:    process,
		confirm:    confirm,
		cancel:     cancel,
		recordCall: recordCall,
		requests:   requests,
		logger:     logger,
	}
}

type createRequestBody struct {
	TenantID                uuid.UUID   `json:"tenant_id"`
	ContactID               uuid.UUID   `json:"contact_id"`
	CallSessionID           string      `json:"call_session_id,omitempty"`
	WebhookEventID          string      `json:"webhook_event_id,omitempty"`
	OriginalAppointmentTime time.Time   `json:"original_appointment_time"`
	OriginalAppointmentType string      `json:"original_appointment_type,omitempty"`
	RescheduleReason        string      `json:"reschedule_reason,omitempty"`
	CustomerPreference      string      `json:"customer_preference,omitempty"`
	UrgencyLevel            string      `json:"urgency_level,omitempty"`
	ProposedTimes           []time.Time `json:"proposed_times,omitempty"`
}

type requestResponse struct {
	ID            uuid.UUID           `json:"id"`
	Status        domain.Status       `json:"status"`
	WorkflowStage domain.Stage        `json:"workflow_stage"`
	Created       bool                `json:"created"`
	Message       string              `json:"message,omitempty"`
	Slots         []availability.Slot `json:"available_slots,omitempty"`
}

// HandleWebhook accepts a reschedule trigger from the voice-agent platform
// and runs the workflow in automated mode.
func (h *ReschedulingHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r, workflow.ModeAutomated)
}

// CreateRequest accepts a manual reschedule from an operator. Each stage then
// advances only on explicit operator calls.
func (h *ReschedulingHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r, workflow.ModeManual)
}

func (h *ReschedulingHandler) handleCreate(w http.ResponseWriter, r *http.Request, mode workflow.Mode) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.create.Handle(r.Context(), commands.CreateRequestCommand{
		TenantID:                body.TenantID,
		ContactID:               body.ContactID,
		CallSessionID:           body.CallSessionID,
		WebhookEventID:          body.WebhookEventID,
		OriginalAppointmentTime: body.OriginalAppointmentTime,
		OriginalAppointmentType: body.OriginalAppointmentType,
		RescheduleReason:        domain.RescheduleReason(body.RescheduleReason),
		CustomerPreference:      body.CustomerPreference,
		UrgencyLevel:            domain.UrgencyLevel(body.UrgencyLevel),
		ProposedTimes:           body.ProposedTimes,
		Mode:                    mode,
	})
	if err != nil {
		h.writeCommandError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	resp := requestResponse{
		ID:            result.Request.ID(),
		Status:        result.Request.Status(),
		WorkflowStage: result.Request.WorkflowStage(),
		Created:       result.Created,
		Slots:         result.Request.AvailableSlots(),
	}
	if result.Run != nil {
		resp.Message = result.Run.Message
	}
	writeJSON(w, status, resp)
}

// GetRequest returns the current state of a request.
func (h *ReschedulingHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "tenant_id query parameter required")
		return
	}

	request, err := h.requests.FindByID(r.Context(), requestID, tenantID)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestResponse{
		ID:            request.ID(),
		Status:        request.Status(),
		WorkflowStage: request.WorkflowStage(),
		Slots:         request.AvailableSlots(),
	})
}

type processRequestBody struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Mode     string    `json:"mode"`
}

// ProcessRequest re-runs the workflow on an existing request: it advances a
// manual-mode request one stage, or retries one left blocked or errored.
func (h *ReschedulingHandler) ProcessRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var body processRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	run, err := h.process.Handle(r.Context(), commands.ProcessWorkflowCommand{
		RequestID: requestID,
		TenantID:  body.TenantID,
		Mode:      workflow.Mode(body.Mode),
	})
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         run.Status,
		"workflow_stage": run.Stage,
		"message":        run.Message,
	})
}

type confirmRequestBody struct {
	TenantID     uuid.UUID `json:"tenant_id"`
	SelectedTime time.Time `json:"selected_time"`
	ProcessedBy  string    `json:"processed_by,omitempty"`
}

// ConfirmRequest approves a time for a paused request.
func (h *ReschedulingHandler) ConfirmRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var body confirmRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.SelectedTime.IsZero() {
		writeError(w, http.StatusBadRequest, "selected_time is required")
		return
	}
	processedBy := body.ProcessedBy
	if processedBy == "" {
		processedBy = "api"
	}

	run, err := h.confirm.Handle(r.Context(), commands.ConfirmRescheduleCommand{
		RequestID:    requestID,
		TenantID:     body.TenantID,
		SelectedTime: body.SelectedTime,
		ProcessedBy:  processedBy,
	})
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         run.Status,
		"workflow_stage": run.Stage,
		"message":        run.Message,
	})
}

type cancelRequestBody struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	Reason      string    `json:"reason,omitempty"`
	ProcessedBy string    `json:"processed_by,omitempty"`
}

// CancelRequest aborts an in-flight request.
func (h *ReschedulingHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(r.PathValue("requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var body cancelRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	processedBy := body.ProcessedBy
	if processedBy == "" {
		processedBy = "api"
	}

	err = h.cancel.Handle(r.Context(), commands.CancelRequestCommand{
		RequestID:   requestID,
		TenantID:    body.TenantID,
		Reason:      body.Reason,
		ProcessedBy: processedBy,
	})
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type recordCallBody struct {
	TenantID        uuid.UUID `json:"tenant_id"`
	ContactID       uuid.UUID `json:"contact_id"`
	CallSessionID   string    `json:"call_session_id,omitempty"`
	Outcome         string    `json:"outcome"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	OccurredAt      time.Time `json:"occurred_at,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// RecordCall records one contact attempt.
func (h *ReschedulingHandler) RecordCall(w http.ResponseWriter, r *http.Request) {
	var body recordCallBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Outcome == "" {
		writeError(w, http.StatusBadRequest, "outcome is required")
		return
	}

	err := h.recordCall.Handle(r.Context(), commands.RecordCallOutcomeCommand{
		TenantID:        body.TenantID,
		ContactID:       body.ContactID,
		CallSessionID:   body.CallSessionID,
		Outcome:         domain.CallOutcome(body.Outcome),
		DurationSeconds: body.DurationSeconds,
		OccurredAt:      body.OccurredAt,
		Notes:           body.Notes,
	})
	if err != nil {
		h.writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// writeCommandError maps command failures onto HTTP statuses.
func (h *ReschedulingHandler) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrContactNotFound),
		errors.Is(err, domain.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMissingContact),
		errors.Is(err, domain.ErrMissingOriginalTime),
		errors.Is(err, workflow.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRequestTerminal),
		errors.Is(err, domain.ErrStageRegression):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request handling failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
