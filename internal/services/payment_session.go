package services

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	"checkout-service/internal/logger"
	"checkout-service/internal/repository"
)

// SessionURLs are the browser return targets handed to the gateway.
type SessionURLs struct {
	Success string
	Cancel  string
}

type PaymentSession struct {
	SessionID   string
	RedirectURL string
}

// PaymentSessionCorrelator opens a gateway checkout session for an order and
// binds the session id to it exactly once.
type PaymentSessionCorrelator struct {
	repo    repository.OrderRepository
	gateway infra.PaymentGatewayInterface
	urls    SessionURLs
}

func NewPaymentSessionCorrelator(r repository.OrderRepository, g infra.PaymentGatewayInterface, urls SessionURLs) *PaymentSessionCorrelator {
	return &PaymentSessionCorrelator{repo: r, gateway: g, urls: urls}
}

// Open creates a session for a pending, uncorrelated order. The order must
// already be persisted. On success order.CorrelationID is set.
func (c *PaymentSessionCorrelator) Open(ctx context.Context, order *domain.Order) (*PaymentSession, error) {
	if order.Status != domain.StatusPending || order.HasCorrelation() {
		return nil, domain.ErrInvalidOrderState
	}
	if order.ID == 0 || len(order.Lines) == 0 {
		return nil, domain.ErrInvalidOrder
	}

	gs, err := c.gateway.CreateSession(ctx, infra.SessionRequest{
		OrderID:    order.ID,
		OwnerID:    order.OwnerID,
		Lines:      order.Lines,
		SuccessURL: c.urls.Success,
		CancelURL:  c.urls.Cancel,
	})
	if err != nil {
		logger.Error("failed to create payment session", logger.Fields{"orderId": order.ID, "error": err})
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
		}
		return nil, err
	}

	if err := c.repo.SetCorrelationID(ctx, order.ID, gs.ID); err != nil {
		if !errors.Is(err, domain.ErrInvalidOrderState) {
			return nil, err
		}
		// Another request bound a session first. The gateway deduplicates
		// creation per order, so the winner may hold the very same session.
		current, ferr := c.repo.FindByID(ctx, order.ID)
		if ferr != nil || current == nil {
			// Without the stored id we cannot tell whether gs is the winner's.
			logger.Warn("could not reload order after losing session bind", logger.Fields{"orderId": order.ID, "sessionId": gs.ID, "error": ferr})
			return nil, err
		}
		if current.CorrelationID != nil && *current.CorrelationID == gs.ID {
			order.CorrelationID = current.CorrelationID
			return &PaymentSession{SessionID: gs.ID, RedirectURL: gs.URL}, nil
		}
		c.expireOrphan(ctx, order.ID, gs.ID)
		return nil, err
	}

	sid := gs.ID
	order.CorrelationID = &sid
	logger.Info("payment session opened", logger.Fields{"orderId": order.ID, "sessionId": gs.ID})
	return &PaymentSession{SessionID: gs.ID, RedirectURL: gs.URL}, nil
}

func (c *PaymentSessionCorrelator) expireOrphan(ctx context.Context, orderID uint64, sessionID string) {
	if err := c.gateway.ExpireSession(ctx, sessionID); err != nil {
		logger.Warn("failed to expire orphaned payment session", logger.Fields{"orderId": orderID, "sessionId": sessionID, "error": err})
		return
	}
	logger.Info("expired orphaned payment session", logger.Fields{"orderId": orderID, "sessionId": sessionID})
}
