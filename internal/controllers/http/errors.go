package http

import (
	"errors"
	"net/http"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra/idempotency"
	"checkout-service/internal/infra/session"
	"checkout-service/internal/logger"
	"checkout-service/internal/services"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error to its HTTP status and a message safe to return.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrItemsUnavailable),
		errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrSignatureInvalid):
		return http.StatusBadRequest, "webhook signature verification failed"
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest, "invalid webhook payload"
	case errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, "not authenticated"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, domain.ErrInvalidOrderState):
		return http.StatusConflict, "order is not in a state that allows this operation"
	case errors.Is(err, idempotency.ErrInFlight):
		return http.StatusConflict, "a request with this idempotency key is in progress"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusBadGateway, "payment provider unavailable, please retry"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable, please retry"
	}
	return http.StatusInternalServerError, "internal server error"
}

func errorBody(err error) (int, gin.H) {
	status, msg := statusFor(err)
	body := gin.H{"error": msg}

	var pending *services.PendingOrderError
	if errors.As(err, &pending) {
		body["orderId"] = pending.OrderID
	}
	return status, body
}

func writeError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", logger.Fields{
			"path":      c.FullPath(),
			"requestId": c.GetString(requestIDKey),
			"error":     err,
		})
	}
	c.AbortWithStatusJSON(status, body)
}
