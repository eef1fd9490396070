package commands

import (
	"context"
	"log/slog"

	notificationApp "github.com/caniken03/vioconcierge/internal/notification/application"
	"github.com/caniken03/vioconcierge/internal/rescheduling/application/workflow"
)

// TokenRedeemer consumes single-use response tokens.
type TokenRedeemer interface {
	Redeem(ctx context.Context, token string, selection *int) (notificationApp.Redemption, error)
}

// ProcessCustomerResponseCommand is the customer's reply to a slot offer.
// A nil SelectedSlotIndex is a decline.
type ProcessCustomerResponseCommand struct {
	Token             string
	SelectedSlotIndex *int
	Comments          string
}

// ProcessCustomerResponseResult reports what the reply did to the request.
type ProcessCustomerResponseResult struct {
	Declined bool
	Run      *workflow.RunResult
}

// ProcessCustomerResponseHandler redeems the token and routes the outcome to
// the confirm or cancel handler.
type ProcessCustomerResponseHandler struct {
	tokens  TokenRedeemer
	confirm *ConfirmRescheduleHandler
	cancel  *CancelRequestHandler
	logger  *slog.Logger
}

// NewProcessCustomerResponseHandler creates the handler.
func NewProcessCustomerResponseHandler(
	tokens TokenRedeemer,
	confirm *ConfirmRescheduleHandler,
	cancel *CancelRequestHandler,
	logger *slog.Logger,
) *ProcessCustomerResponseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessCustomerResponseHandler{
		tokens:  tokens,
		confirm: confirm,
		cancel:  cancel,
		logger:  logger,
	}
}

// Handle consumes the token and either confirms the chosen slot or cancels
// the request on decline. Redemption failures (unknown, expired, already
// used, out-of-range index) surface unchanged so the API can map them.
func (h *ProcessCustomerResponseHandler) Handle(ctx context.Context, cmd ProcessCustomerResponseCommand) (*ProcessCustomerResponseResult, error) {
	redemption, err := h.tokens.Redeem(ctx, cmd.Token, cmd.SelectedSlotIndex)
	if err != nil {
		return nil, err
	}

	if redemption.Declined {
		reason := "customer declined offered slots"
		if cmd.Comments != "" {
			reason = reason + ": " + cmd.Comments
		}
		err := h.cancel.Handle(ctx, CancelRequestCommand{
			RequestID:   redemption.RequestID,
			TenantID:    redemption.TenantID,
			Reason:      reason,
			ProcessedBy: "customer-response",
		})
		if err != nil {
			return nil, err
		}
		h.logger.Info("customer declined slot offer", "request_id", redemption.RequestID)
		return &ProcessCustomerResponseResult{Declined: true}, nil
	}

	run, err := h.confirm.Handle(ctx, ConfirmRescheduleCommand{
		RequestID:    redemption.RequestID,
		TenantID:     redemption.TenantID,
		SelectedTime: redemption.SelectedSlot.StartTime,
		ProcessedBy:  "customer-response",
	})
	if err != nil {
		return nil, err
	}
	return &ProcessCustomerResponseResult{Run: run}, nil
}
