package repository

import (
	"context"

	"checkout-service/internal/domain"
)

// OrderRepository is the only write path for orders. Find methods return
// (nil, nil) when nothing matches.
type OrderRepository interface {
	// Create persists the order and all of its lines atomically and assigns IDs.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	FindByCorrelationID(ctx context.Context, correlationID string) (*domain.Order, error)
	FindByOwner(ctx context.Context, ownerID uint64) ([]domain.Order, error)
	// Transition moves the order from one status to another only when its
	// current status equals from. It reports whether the write happened.
	Transition(ctx context.Context, id uint64, from, to domain.OrderStatus) (bool, error)
	// SetCorrelationID assigns the external session id once, on a pending order.
	SetCorrelationID(ctx context.Context, id uint64, correlationID string) error
	Ping(ctx context.Context) error
}

type CatalogRepository interface {
	// FindAvailableByIDs returns the available items among ids. Missing or
	// unavailable ids are simply absent from the result.
	FindAvailableByIDs(ctx context.Context, ids []uint64) ([]domain.MenuItem, error)
}

type CartRepository interface {
	Clear(ctx context.Context, ownerID uint64) error
}
