package services

import (
	"context"
	"fmt"

	"checkout-service/internal/clock"
	"checkout-service/internal/domain"
	"checkout-service/internal/logger"
	"checkout-service/internal/metrics"
	"checkout-service/internal/repository"

	"github.com/shopspring/decimal"
)

// PendingOrderError reports that an order was persisted but no payment
// session could be bound to it. The order stays pending and the client may
// retry session creation for OrderID.
type PendingOrderError struct {
	OrderID uint64
	Err     error
}

func (e *PendingOrderError) Error() string {
	return fmt.Sprintf("order %d created but payment session failed: %v", e.OrderID, e.Err)
}

func (e *PendingOrderError) Unwrap() error {
	return e.Err
}

type CheckoutResult struct {
	OrderID     uint64
	SessionID   string
	RedirectURL string
	Total       decimal.Decimal
}

type OrderService struct {
	repo     repository.OrderRepository
	prices   *PriceAuthority
	sessions *PaymentSessionCorrelator
	events   *EventEmitter
	clock    clock.Clock
}

func NewOrderService(r repository.OrderRepository, prices *PriceAuthority, sessions *PaymentSessionCorrelator, events *EventEmitter, clk clock.Clock) *OrderService {
	return &OrderService{
		repo:     r,
		prices:   prices,
		sessions: sessions,
		events:   events,
		clock:    clk,
	}
}

// Checkout prices the cart, persists a pending order and opens a payment
// session for it.
func (s *OrderService) Checkout(ctx context.Context, ownerID uint64, cart []CartLine) (*CheckoutResult, error) {
	lines, err := s.prices.Price(ctx, cart)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	order, err := domain.NewOrder(ownerID, lines, s.clock.Now())
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := s.repo.Create(ctx, order); err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	logger.Info("order created", logger.Fields{"orderId": order.ID, "ownerId": ownerID, "total": order.Total.StringFixed(2)})
	s.events.Emit(order)

	sess, err := s.sessions.Open(ctx, order)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("pending").Inc()
		return nil, &PendingOrderError{OrderID: order.ID, Err: err}
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("opened").Inc()
	return &CheckoutResult{
		OrderID:     order.ID,
		SessionID:   sess.SessionID,
		RedirectURL: sess.RedirectURL,
		Total:       order.Total,
	}, nil
}

// RetryPaymentSession opens a session for an existing pending order whose
// previous attempt failed.
func (s *OrderService) RetryPaymentSession(ctx context.Context, ownerID, orderID uint64) (*CheckoutResult, error) {
	order, err := s.GetOrder(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Open(ctx, order)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("retry_failed").Inc()
		return nil, err
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("retried").Inc()
	return &CheckoutResult{
		OrderID:     order.ID,
		SessionID:   sess.SessionID,
		RedirectURL: sess.RedirectURL,
		Total:       order.Total,
	}, nil
}

// GetOrder returns the order if it belongs to ownerID. Orders owned by
// someone else are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, ownerID, orderID uint64) (*domain.Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || !o.OwnedBy(ownerID) {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListOrders returns the owner's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, ownerID uint64) ([]domain.Order, error) {
	orders, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (s *OrderService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
