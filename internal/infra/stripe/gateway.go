package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"checkout-service/internal/config"
	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	"checkout-service/internal/metrics"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	eventSessionCompleted = "checkout.session.completed"
	eventSessionExpired   = "checkout.session.expired"
)

// Gateway talks to Stripe Checkout. Each Gateway owns its own API client, so
// several can coexist with different keys.
type Gateway struct {
	api           *client.API
	currency      string
	webhookSecret string

	// Stripe replays a stored 5xx for the same idempotency key, so an order
	// that hit one moves on to a suffixed key for later attempts.
	mu       sync.Mutex
	attempts map[uint64]int
}

var _ infra.PaymentGatewayInterface = (*Gateway)(nil)

func NewGateway(cfg config.Payment) *Gateway {
	var backends *stripe.Backends
	if cfg.BackendURL != "" {
		backends = &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
				URL:               stripe.String(cfg.BackendURL),
				MaxNetworkRetries: stripe.Int64(0),
			}),
			Connect: stripe.GetBackend(stripe.ConnectBackend),
			Uploads: stripe.GetBackend(stripe.UploadsBackend),
		}
	}

	return &Gateway{
		api:           client.New(cfg.SecretKey, backends),
		currency:      cfg.Currency,
		webhookSecret: cfg.WebhookSecret,
		attempts:      make(map[uint64]int),
	}
}

func (g *Gateway) idempotencyKey(orderID uint64) string {
	g.mu.Lock()
	n := g.attempts[orderID]
	g.mu.Unlock()
	if n == 0 {
		return fmt.Sprintf("checkout-order-%d", orderID)
	}
	return fmt.Sprintf("checkout-order-%d-%d", orderID, n)
}

func (g *Gateway) recordAttempt(orderID uint64, err error) {
	var serr *stripe.Error
	if !errors.As(err, &serr) || serr.HTTPStatusCode < 500 {
		return
	}
	g.mu.Lock()
	g.attempts[orderID]++
	g.mu.Unlock()
}

func (g *Gateway) CreateSession(ctx context.Context, req infra.SessionRequest) (*infra.GatewaySession, error) {
	defer observe("create_session", time.Now())

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(strconv.FormatUint(req.OrderID, 10)),
	}
	params.Context = ctx
	// Retries for the same order collapse onto one Stripe session.
	params.SetIdempotencyKey(g.idempotencyKey(req.OrderID))
	params.AddMetadata("orderId", strconv.FormatUint(req.OrderID, 10))
	params.AddMetadata("userId", strconv.FormatUint(req.OwnerID, 10))

	for _, l := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Name),
				},
				UnitAmount: stripe.Int64(infra.MinorUnits(l.UnitPrice)),
			},
			Quantity: stripe.Int64(l.Quantity),
		})
	}

	s, err := g.api.CheckoutSessions.New(params)
	g.recordAttempt(req.OrderID, err)
	if err != nil {
		return nil, gatewayErr("create session", err)
	}
	return toGatewaySession(s), nil
}

func (g *Gateway) RetrieveSession(ctx context.Context, sessionID string) (*infra.GatewaySession, error) {
	defer observe("retrieve_session", time.Now())

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, gatewayErr("retrieve session", err)
	}
	return toGatewaySession(s), nil
}

func (g *Gateway) ExpireSession(ctx context.Context, sessionID string) error {
	defer observe("expire_session", time.Now())

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	if _, err := g.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		return gatewayErr("expire session", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header before touching the body.
// Any verification failure collapses into domain.ErrSignatureInvalid.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, domain.ErrSignatureInvalid
	}

	out := &domain.PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	switch out.Type {
	case eventSessionCompleted:
		out.Kind = domain.PaymentEventSessionCompleted
	case eventSessionExpired:
		out.Kind = domain.PaymentEventSessionExpired
	default:
		out.Kind = domain.PaymentEventUnknown
		return out, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: webhook %s: missing data object", domain.ErrInvalidPayload, out.Type)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: webhook %s: decode session: %v", domain.ErrInvalidPayload, out.Type, err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%w: webhook %s: session id missing", domain.ErrInvalidPayload, out.Type)
	}

	out.SessionID = s.ID
	out.PaymentStatus = domain.PaymentStatus(s.PaymentStatus)
	out.Metadata = s.Metadata
	return out, nil
}

func toGatewaySession(s *stripe.CheckoutSession) *infra.GatewaySession {
	return &infra.GatewaySession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: domain.PaymentStatus(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
}

func gatewayErr(op string, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return fmt.Errorf("%w: %s: status=%d code=%s: %s",
			domain.ErrGatewayUnavailable, op, serr.HTTPStatusCode, serr.Code, serr.Msg)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, op, err)
}

func observe(op string, start time.Time) {
	metrics.GatewayRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
