package handlers

import (
	"errors"
	"net/http"

	earningsRepo "verial/database/repository/earnings"
	"verial/models"
	"verial/utils"

	"github.com/gin-gonic/gin"
)

// EarningsHandler exposes the ledger to the payout subsystem and staff.
type EarningsHandler struct {
	Earnings earningsRepo.EarningsRepository
}

func NewEarningsHandler(earnings earningsRepo.EarningsRepository) *EarningsHandler {
	return &EarningsHandler{Earnings: earnings}
}

var validEarningsStatuses = map[models.EarningsStatus]bool{
	models.EarningsHeld:           true,
	models.EarningsAwaitingPayout: true,
	models.EarningsPaidOut:        true,
}

// ProviderSummary aggregates net amounts for one provider in one payout status.
func (h *EarningsHandler) ProviderSummary(c *gin.Context) {
	providerID := c.Param("providerID")
	status := models.EarningsStatus(c.DefaultQuery("status", string(models.EarningsHeld)))
	if !validEarningsStatuses[status] {
		utils.JSONError(c, http.StatusBadRequest, "invalid earnings status", string(status))
		return
	}

	summary, err := h.Earnings.SummarizeByProvider(c.Request.Context(), providerID, status)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to summarize earnings", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"providerId":     providerID,
		"status":         status,
		"totalNetAmount": summary.TotalNetAmount,
		"recordCount":    summary.RecordCount,
	})
}

// BookingEarnings returns the ledger record of one booking.
func (h *EarningsHandler) BookingEarnings(c *gin.Context) {
	bookingID := c.Param("bookingID")

	record, err := h.Earnings.GetByBookingID(c.Request.Context(), bookingID)
	if errors.Is(err, earningsRepo.ErrNotFound) {
		utils.JSONError(c, http.StatusNotFound, "earnings record not found", bookingID)
		return
	}
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load earnings", err.Error())
		return
	}

	c.JSON(http.StatusOK, record)
}
