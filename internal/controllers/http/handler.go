package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra/idempotency"
	"checkout-service/internal/logger"
	"checkout-service/internal/metrics"
	"checkout-service/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBytes = 1 << 20
	healthTimeout   = 2 * time.Second
)

type OrderService interface {
	Checkout(ctx context.Context, ownerID uint64, cart []services.CartLine) (*services.CheckoutResult, error)
	RetryPaymentSession(ctx context.Context, ownerID, orderID uint64) (*services.CheckoutResult, error)
	GetOrder(ctx context.Context, ownerID, orderID uint64) (*domain.Order, error)
	ListOrders(ctx context.Context, ownerID uint64) ([]domain.Order, error)
	Ping(ctx context.Context) error
}

type Reconciler interface {
	Verify(ctx context.Context, sessionID string, requesterID uint64) (*services.VerifyResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (*idempotency.Response, error)
	Complete(ctx context.Context, key string, resp idempotency.Response) error
	Abort(ctx context.Context, key string) error
}

type Handler struct {
	orders     OrderService
	reconciler Reconciler
	auth       Authenticator
	idem       IdempotencyStore
}

func NewHandler(orders OrderService, reconciler Reconciler, auth Authenticator) *Handler {
	return &Handler{orders: orders, reconciler: reconciler, auth: auth}
}

// SetIdempotencyStore enables Idempotency-Key handling on checkout.
func (h *Handler) SetIdempotencyStore(store IdempotencyStore) {
	h.idem = store
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.POST("/webhook/payment", h.PaymentWebhook)

	authed := api.Group("", RequireAuth(h.auth))
	authed.POST("/checkout/create-session", h.CreateSession)
	authed.POST("/checkout/orders/:orderId/session", h.RetrySession)
	authed.GET("/checkout/verify/:sessionId", h.VerifySession)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:orderId", h.GetOrder)
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	ownerID := currentUser(c)

	var idemKey string
	if h.idem != nil {
		if key := idempotency.Key(c.Request); key != "" {
			idemKey = fmt.Sprintf("idem:checkout:%d:%s", ownerID, key)
			stored, err := h.idem.Begin(ctx, idemKey)
			if err != nil {
				if !errors.Is(err, idempotency.ErrInFlight) {
					err = fmt.Errorf("%w: idempotency: %v", domain.ErrStorageUnavailable, err)
				}
				writeError(c, err)
				return
			}
			if stored != nil {
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				return
			}
		}
	}

	result, err := h.orders.Checkout(ctx, ownerID, req.CartLines())

	var status int
	var body any
	if err != nil {
		status, body = errorBody(err)
	} else {
		status, body = http.StatusOK, newCreateSessionResponse(result)
	}

	if idemKey != "" {
		h.finishIdempotent(ctx, idemKey, err, status, body)
	}

	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, body)
}

// finishIdempotent records outcomes that must not be repeated: a success, or
// an order persisted without a session. Everything else releases the key.
func (h *Handler) finishIdempotent(ctx context.Context, key string, err error, status int, body any) {
	var pending *services.PendingOrderError
	if err != nil && !errors.As(err, &pending) {
		if aerr := h.idem.Abort(ctx, key); aerr != nil {
			logger.Warn("failed to release idempotency key", logger.Fields{"error": aerr})
		}
		return
	}

	data, merr := json.Marshal(body)
	if merr == nil {
		merr = h.idem.Complete(ctx, key, idempotency.Response{Status: status, Body: data})
	}
	if merr != nil {
		logger.Warn("failed to store idempotent response", logger.Fields{"error": merr})
	}
}

func (h *Handler) RetrySession(c *gin.Context) {
	orderID, ok := parseID(c, "orderId")
	if !ok {
		return
	}

	result, err := h.orders.RetryPaymentSession(c.Request.Context(), currentUser(c), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCreateSessionResponse(result))
}

func (h *Handler) VerifySession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId required"})
		return
	}

	result, err := h.reconciler.Verify(c.Request.Context(), sessionID, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, VerifyResponse{
		Success:       result.Success,
		OrderID:       result.OrderID,
		Status:        result.Status,
		PaymentStatus: result.PaymentStatus,
	})
}

// PaymentWebhook must see the exact bytes the gateway signed, so the body
// is read raw and never bound.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.reconciler.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": resp})
}

func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := parseID(c, "orderId")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), currentUser(c), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": newOrderResponse(order)})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.orders.Ping(ctx); err != nil {
		logger.Warn("health check failed", logger.Fields{"error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseID(c *gin.Context, param string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": param + " must be a positive integer"})
		return 0, false
	}
	return id, true
}
