package handlers

import (
	"net/http"

	"verial/services/payments"
	"verial/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle commands.
type BookingHandler struct {
	Service *payments.BookingCommandService
	Logger  *zap.Logger
}

func NewBookingHandler(service *payments.BookingCommandService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: service, Logger: logger}
}

// CreateBooking registers a new pending booking.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input struct {
		CustomerID string `json:"customerId" binding:"required"`
		ProviderID string `json:"providerId" binding:"required"`
		ServiceID  string `json:"serviceId" binding:"required"`
		Amount     int64  `json:"amount" binding:"required"`
		Currency   string `json:"currency"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid booking request", err.Error())
		return
	}

	booking, err := h.Service.Create(c.Request.Context(), payments.CreateBookingCommand{
		CustomerID: input.CustomerID,
		ProviderID: input.ProviderID,
		ServiceID:  input.ServiceID,
		Amount:     input.Amount,
		Currency:   input.Currency,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking returns a booking by id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// AcceptBooking is the provider accepting a pending request.
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	booking, err := h.Service.Accept(c.Request.Context(), payments.AcceptBookingCommand{
		BookingID:  c.Param("id"),
		ProviderID: input.ProviderID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// DeclineBooking is the provider declining a pending request.
func (h *BookingHandler) DeclineBooking(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	booking, err := h.Service.Decline(c.Request.Context(), payments.DeclineBookingCommand{
		BookingID:  c.Param("id"),
		ProviderID: input.ProviderID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels on behalf of the customer or the provider.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var input struct {
		ActorID    string `json:"actorId" binding:"required"`
		ByProvider bool   `json:"byProvider"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	booking, err := h.Service.Cancel(c.Request.Context(), payments.CancelBookingCommand{
		BookingID:  c.Param("id"),
		ActorID:    input.ActorID,
		ByProvider: input.ByProvider,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CompleteBooking marks delivery of the service.
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	var input struct {
		ActorID    string `json:"actorId" binding:"required"`
		ByProvider bool   `json:"byProvider"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	booking, err := h.Service.Complete(c.Request.Context(), payments.CompleteBookingCommand{
		BookingID:  c.Param("id"),
		ActorID:    input.ActorID,
		ByProvider: input.ByProvider,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// DisputeBooking opens a dispute on a paid or completed booking.
func (h *BookingHandler) DisputeBooking(c *gin.Context) {
	var input struct {
		CustomerID string `json:"customerId" binding:"required"`
		Reason     string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	booking, err := h.Service.OpenDispute(c.Request.Context(), payments.OpenDisputeCommand{
		BookingID:  c.Param("id"),
		CustomerID: input.CustomerID,
		Reason:     input.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ResolveDispute closes a dispute in the provider's favour. Customer-favour
// resolutions are refunds and go through the refund endpoint.
func (h *BookingHandler) ResolveDispute(c *gin.Context) {
	booking, err := h.Service.ResolveDispute(c.Request.Context(), payments.ResolveDisputeCommand{
		BookingID: c.Param("id"),
		AdminID:   c.GetString("adminID"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
