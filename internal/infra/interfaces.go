package infra

import (
	"context"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"
)

// PaymentGatewayInterface is everything the engine needs from the external
// payment provider.
type PaymentGatewayInterface interface {
	CreateSession(ctx context.Context, req SessionRequest) (*GatewaySession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*GatewaySession, error)
	ExpireSession(ctx context.Context, sessionID string) error
	// ParseWebhook authenticates payload against signature before decoding it.
	ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error)
}

type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

var (
	_ repository.CatalogRepository = (*CatalogClient)(nil)
	_ PublisherInterface           = NopPublisher{}
)

// NopPublisher drops every event. Used when EVENT_BROKER=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
