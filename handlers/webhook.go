package handlers

import (
	"context"
	"net/http"

	"verial/models"
	"verial/services/payments"
	"verial/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventDedupe suppresses duplicate deliveries whose reconciliation already
// succeeded. It is advisory: a miss only costs a re-run of the idempotent
// reconciler, and events are marked strictly after they were applied, never
// before, so an acknowledged duplicate is always one the store has absorbed.
type EventDedupe interface {
	SeenApplied(ctx context.Context, eventID string) bool
	MarkApplied(ctx context.Context, eventID string)
}

// WebhookHandler receives verified payment-processor events. Signature
// verification happens at the ingress in front of this service. Every branch
// resolves to an explicit acknowledge (200) or request-retry (503): only a
// transient store failure asks the sender to redeliver.
type WebhookHandler struct {
	Reconciler *payments.Reconciler
	Dedupe     EventDedupe
	Logger     *zap.Logger
}

func NewWebhookHandler(reconciler *payments.Reconciler, dedupe EventDedupe, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Reconciler: reconciler, Dedupe: dedupe, Logger: logger}
}

// HandlePaymentEvent processes a single delivery.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	var evt models.PaymentEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid event payload", err.Error())
		return
	}
	switch evt.Kind {
	case models.EventSessionCompleted, models.EventPaymentSucceeded, models.EventPaymentFailed:
	default:
		utils.JSONError(c, http.StatusBadRequest, "unknown event kind", string(evt.Kind))
		return
	}

	ctx := c.Request.Context()

	if h.Dedupe != nil && h.Dedupe.SeenApplied(ctx, evt.EventID) {
		h.Logger.Debug("payment event deduplicated", zap.String("eventId", evt.EventID))
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": payments.OutcomeNoOp})
		return
	}

	result, err := h.Reconciler.Reconcile(ctx, evt)
	if err != nil {
		h.Logger.Error("payment event hit transient failure, requesting redelivery",
			zap.String("eventId", evt.EventID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary failure, please retry"})
		return
	}

	if h.Dedupe != nil {
		h.Dedupe.MarkApplied(ctx, evt.EventID)
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"outcome":   result.Outcome,
		"bookingId": result.BookingID,
	})
}
