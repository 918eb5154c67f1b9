// Package memory keeps orders in process memory. It is used for local runs
// (STORAGE=memory) and as the concurrency harness in service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"
)

type OrderRepository struct {
	mu            sync.Mutex
	nextID        uint64
	nextLineID    uint64
	orders        map[uint64]*domain.Order
	byCorrelation map[string]uint64
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:        make(map[uint64]*domain.Order),
		byCorrelation: make(map[string]uint64),
	}
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	if err := order.ValidateNew(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	for i := range order.Lines {
		r.nextLineID++
		order.Lines[i].ID = r.nextLineID
		order.Lines[i].OrderID = order.ID
	}
	r.orders[order.ID] = clone(order)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id uint64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return clone(o), nil
}

func (r *OrderRepository) FindByCorrelationID(_ context.Context, correlationID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byCorrelation[correlationID]
	if !ok {
		return nil, nil
	}
	return clone(r.orders[id]), nil
}

func (r *OrderRepository) FindByOwner(_ context.Context, ownerID uint64) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.Order{}
	for _, o := range r.orders {
		if o.OwnerID == ownerID {
			c := clone(o)
			c.Lines = nil
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *OrderRepository) Transition(_ context.Context, id uint64, from, to domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != from || !from.CanTransitionTo(to) {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r *OrderRepository) SetCorrelationID(_ context.Context, id uint64, correlationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != domain.StatusPending || o.HasCorrelation() {
		return fmt.Errorf("%w: order already has a payment session or is not pending", domain.ErrInvalidOrderState)
	}
	if _, taken := r.byCorrelation[correlationID]; taken {
		return fmt.Errorf("%w: correlation id already assigned to another order", domain.ErrInvalidOrderState)
	}

	cid := correlationID
	o.CorrelationID = &cid
	r.byCorrelation[correlationID] = id
	return nil
}

func (r *OrderRepository) Ping(context.Context) error {
	return nil
}

func clone(o *domain.Order) *domain.Order {
	c := *o
	if o.CorrelationID != nil {
		cid := *o.CorrelationID
		c.CorrelationID = &cid
	}
	c.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &c
}
