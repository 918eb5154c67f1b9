package services

import (
	"context"
	"errors"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	"checkout-service/internal/logger"
	"checkout-service/internal/metrics"
	"checkout-service/internal/repository"
)

const (
	sourcePoll    = "poll"
	sourceWebhook = "webhook"
)

type VerifyResult struct {
	OrderID       uint64
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	Success       bool
}

// ReconciliationService moves orders out of pending based on what the
// payment gateway reports. The client poll and the gateway webhook both
// funnel into the same conditional transition, so whichever arrives first
// applies it and the other observes the result.
type ReconciliationService struct {
	repo    repository.OrderRepository
	carts   repository.CartRepository
	gateway infra.PaymentGatewayInterface
	events  *EventEmitter
}

func NewReconciliationService(r repository.OrderRepository, carts repository.CartRepository, g infra.PaymentGatewayInterface, events *EventEmitter) *ReconciliationService {
	return &ReconciliationService{repo: r, carts: carts, gateway: g, events: events}
}

// Verify checks a session on behalf of the buyer returning from the hosted
// payment page. Sessions that do not belong to requesterID are reported as
// not found.
func (s *ReconciliationService) Verify(ctx context.Context, sessionID string, requesterID uint64) (*VerifyResult, error) {
	order, err := s.repo.FindByCorrelationID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order == nil || !order.OwnedBy(requesterID) {
		return nil, domain.ErrOrderNotFound
	}

	if order.Status != domain.StatusPending {
		return &VerifyResult{
			OrderID: order.ID,
			Status:  order.Status,
			Success: order.Status == domain.StatusPaid,
		}, nil
	}

	gs, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	status := order.Status
	if gs.PaymentStatus == domain.PaymentPaid {
		status, err = s.advance(ctx, sourcePoll, order, domain.StatusPaid)
		if err != nil {
			return nil, err
		}
	}

	return &VerifyResult{
		OrderID:       order.ID,
		Status:        status,
		PaymentStatus: gs.PaymentStatus,
		Success:       status == domain.StatusPaid,
	}, nil
}

// HandleWebhook authenticates and applies a gateway notification. A nil
// error means the delivery can be acknowledged, including for events that
// need no action. Storage failures are returned so the gateway redelivers.
func (s *ReconciliationService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, domain.ErrSignatureInvalid) {
			metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
			logger.Warn("webhook rejected", logger.Fields{"reason": "signature"})
			return err
		}
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "invalid").Inc()
		logger.Warn("webhook rejected", logger.Fields{"reason": "payload", "error": err})
		return err
	}

	var target domain.OrderStatus
	switch ev.Kind {
	case domain.PaymentEventSessionCompleted:
		if ev.PaymentStatus != domain.PaymentPaid {
			metrics.WebhookEventsTotal.WithLabelValues(ev.Type, "ignored").Inc()
			logger.Info("completed session not paid yet", logger.Fields{"eventId": ev.ID, "sessionId": ev.SessionID, "paymentStatus": ev.PaymentStatus})
			return nil
		}
		target = domain.StatusPaid
	case domain.PaymentEventSessionExpired:
		target = domain.StatusCancelled
	default:
		metrics.WebhookEventsTotal.WithLabelValues(ev.Type, "ignored").Inc()
		logger.Info("unhandled webhook event", logger.Fields{"eventId": ev.ID, "type": ev.Type})
		return nil
	}

	order, err := s.repo.FindByCorrelationID(ctx, ev.SessionID)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(ev.Type, "error").Inc()
		return err
	}
	if order == nil {
		metrics.WebhookEventsTotal.WithLabelValues(ev.Type, "unmatched").Inc()
		logger.Warn("no order for payment session", logger.Fields{"eventId": ev.ID, "sessionId": ev.SessionID})
		return nil
	}

	if _, err := s.advance(ctx, sourceWebhook, order, target); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(ev.Type, "error").Inc()
		return err
	}
	metrics.WebhookEventsTotal.WithLabelValues(ev.Type, "processed").Inc()
	return nil
}

// advance attempts pending -> to and returns the order's resulting status.
// Side effects run only for the caller whose transition was applied.
func (s *ReconciliationService) advance(ctx context.Context, source string, order *domain.Order, to domain.OrderStatus) (domain.OrderStatus, error) {
	applied, err := s.repo.Transition(ctx, order.ID, domain.StatusPending, to)
	if err != nil {
		logger.Error("order transition failed", logger.Fields{"orderId": order.ID, "to": to, "source": source, "error": err})
		return "", err
	}
	metrics.TransitionsTotal.WithLabelValues(source, string(to), metrics.BoolLabel(applied)).Inc()

	if !applied {
		current, err := s.repo.FindByID(ctx, order.ID)
		if err != nil {
			return "", err
		}
		if current == nil {
			return "", domain.ErrOrderNotFound
		}
		logger.Info("order already reconciled", logger.Fields{"orderId": order.ID, "status": current.Status, "source": source})
		return current.Status, nil
	}

	order.Status = to
	logger.Info("order reconciled", logger.Fields{"orderId": order.ID, "status": to, "source": source})

	if to == domain.StatusPaid {
		if err := s.carts.Clear(ctx, order.OwnerID); err != nil {
			logger.Error("failed to clear cart", logger.Fields{"orderId": order.ID, "ownerId": order.OwnerID, "error": err})
		}
	}
	s.events.Emit(order)
	return to, nil
}
