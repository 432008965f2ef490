package handlers

import (
	"net/http"

	refundRepo "verial/database/repository/refund"
	"verial/services/payments"
	"verial/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RefundHandler exposes the admin refund surface.
type RefundHandler struct {
	Processor *payments.RefundProcessor
	Refunds   refundRepo.RefundRepository
	Logger    *zap.Logger
}

func NewRefundHandler(processor *payments.RefundProcessor, refunds refundRepo.RefundRepository, logger *zap.Logger) *RefundHandler {
	return &RefundHandler{Processor: processor, Refunds: refunds, Logger: logger}
}

// ProcessRefund executes an admin-initiated refund.
func (h *RefundHandler) ProcessRefund(c *gin.Context) {
	var input struct {
		BookingID   string `json:"bookingId" binding:"required"`
		Amount      int64  `json:"amount" binding:"required"`
		Reason      string `json:"reason" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid refund request", err.Error())
		return
	}

	result, err := h.Processor.ProcessRefund(c.Request.Context(), payments.RefundCommand{
		BookingID:   input.BookingID,
		Amount:      input.Amount,
		Reason:      input.Reason,
		Description: input.Description,
		AdminID:     c.GetString("adminID"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refundId":               result.RefundID,
		"gatewayRefundReference": result.GatewayRefundReference,
		"amount":                 result.Amount,
		"status":                 result.Status,
	})
}

// ListRefundsByBooking returns the full refund history of a booking.
func (h *RefundHandler) ListRefundsByBooking(c *gin.Context) {
	bookingID := c.Param("bookingID")

	records, err := h.Refunds.ListByBooking(c.Request.Context(), bookingID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list refunds", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookingId": bookingID, "refunds": records})
}
