package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

type OrderEvent struct {
	OrderID    uint64          `json:"orderId"`
	OwnerID    uint64          `json:"ownerId"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewOrderEvent(o *Order, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:    o.ID,
		OwnerID:    o.OwnerID,
		Status:     o.Status,
		Total:      o.Total,
		OccurredAt: at,
	}
}

// EventNameFor returns the routing key announcing that an order reached status.
func EventNameFor(status OrderStatus) string {
	switch status {
	case StatusPaid:
		return EventOrderPaid
	case StatusCancelled:
		return EventOrderCancelled
	case StatusPending:
		return EventOrderCreated
	}
	return ""
}
