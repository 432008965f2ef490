package handlers

import (
	"errors"
	"net/http"

	"verial/services/payments"
	"verial/utils"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps the payments error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var (
		notFound   *payments.NotFoundError
		validation *payments.ValidationError
		illegal    *payments.IllegalTransitionError
		conflict   *payments.ConcurrencyConflictError
		gateway    *payments.GatewayError
	)

	switch {
	case errors.As(err, &notFound):
		utils.JSONError(c, http.StatusNotFound, "not found", err.Error())
	case errors.As(err, &validation):
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
	case errors.As(err, &illegal):
		utils.JSONError(c, http.StatusBadRequest, "illegal status transition", err.Error())
	case errors.As(err, &conflict):
		utils.JSONError(c, http.StatusConflict, "conflict", err.Error())
	case errors.As(err, &gateway):
		// The durable failed RefundRecord id rides along for follow-up.
		c.JSON(http.StatusBadGateway, gin.H{
			"message":  "payment gateway failure",
			"details":  err.Error(),
			"refundId": gateway.RefundID,
		})
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
