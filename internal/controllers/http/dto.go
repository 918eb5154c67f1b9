package http

import (
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/services"
)

type CartItemRequest struct {
	MenuItemID uint64 `json:"menuItemId" binding:"required"`
	Quantity   int64  `json:"quantity"`
}

type CreateSessionRequest struct {
	Items []CartItemRequest `json:"items" binding:"dive"`
}

func (r CreateSessionRequest) CartLines() []services.CartLine {
	lines := make([]services.CartLine, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, services.CartLine{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}
	return lines
}

// CreateSessionResponse carries the redirect target under both "url" and
// "redirectUrl"; the web client reads "url".
type CreateSessionResponse struct {
	OrderID     uint64 `json:"orderId"`
	SessionID   string `json:"sessionId"`
	URL         string `json:"url"`
	RedirectURL string `json:"redirectUrl"`
	Total       string `json:"total"`
}

func newCreateSessionResponse(r *services.CheckoutResult) CreateSessionResponse {
	return CreateSessionResponse{
		OrderID:     r.OrderID,
		SessionID:   r.SessionID,
		URL:         r.RedirectURL,
		RedirectURL: r.RedirectURL,
		Total:       r.Total.StringFixed(2),
	}
}

type VerifyResponse struct {
	Success       bool                 `json:"success"`
	OrderID       uint64               `json:"orderId"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus,omitempty"`
}

type OrderLineResponse struct {
	MenuItemID uint64 `json:"menuItemId"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	UnitPrice  string `json:"unitPrice"`
	LineTotal  string `json:"lineTotal"`
}

type OrderResponse struct {
	ID        uint64              `json:"id"`
	Status    domain.OrderStatus  `json:"status"`
	Total     string              `json:"total"`
	CreatedAt time.Time           `json:"createdAt"`
	Lines     []OrderLineResponse `json:"lines"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID,
		Status:    o.Status,
		Total:     o.Total.StringFixed(2),
		CreatedAt: o.CreatedAt,
		Lines:     make([]OrderLineResponse, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			MenuItemID: l.CatalogItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice.StringFixed(2),
			LineTotal:  l.LineTotal().StringFixed(2),
		})
	}
	return resp
}
