package services

import (
	"context"
	"sync"
	"time"

	"checkout-service/internal/clock"
	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	"checkout-service/internal/logger"
)

const publishTimeout = 5 * time.Second

// EventEmitter publishes order lifecycle events in the background. Publish
// failures are logged and never affect the request that caused them.
type EventEmitter struct {
	publisher infra.PublisherInterface
	clock     clock.Clock
	wg        sync.WaitGroup
}

func NewEventEmitter(pub infra.PublisherInterface, clk clock.Clock) *EventEmitter {
	if pub == nil {
		pub = infra.NopPublisher{}
	}
	return &EventEmitter{publisher: pub, clock: clk}
}

// Emit publishes the event matching the order's current status, if any.
func (e *EventEmitter) Emit(order *domain.Order) {
	name := domain.EventNameFor(order.Status)
	if name == "" {
		return
	}
	evt := domain.NewOrderEvent(order, e.clock.Now())

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := e.publisher.Publish(ctx, name, evt); err != nil {
			logger.Error("failed to publish order event", logger.Fields{"event": name, "orderId": evt.OrderID, "error": err})
		}
	}()
}

// Wait blocks until every in-flight publish has finished.
func (e *EventEmitter) Wait() {
	e.wg.Wait()
}
