package services

import (
	"time"

	"checkout-service/internal/clock"
	"checkout-service/internal/domain"
	"checkout-service/internal/infra"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	TestOwnerID   = uint64(7)
	TestOrderID   = uint64(10)
	TestSessionID = "cs_test_10"
)

func testClock() clock.Clock {
	return clock.NewFixed(testNow)
}

func testURLs() SessionURLs {
	return SessionURLs{
		Success: "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		Cancel:  "http://localhost:3000/checkout/cancelled",
	}
}

func CreateMockMenuItem(id uint64, name, price string, available bool) domain.MenuItem {
	return domain.MenuItem{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  "mains",
		Available: available,
	}
}

func CreateMockOrder(id, ownerID uint64, status domain.OrderStatus, sessionID string) *domain.Order {
	lines := []domain.OrderLine{
		{OrderID: id, CatalogItemID: 1, Name: "Margherita", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{OrderID: id, CatalogItemID: 2, Name: "Lemonade", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}
	o := &domain.Order{
		ID:        id,
		OwnerID:   ownerID,
		Status:    status,
		Total:     domain.SumLines(lines),
		CreatedAt: testNow,
		Lines:     lines,
	}
	if sessionID != "" {
		sid := sessionID
		o.CorrelationID = &sid
	}
	return o
}

func CreateMockSession(id string, status domain.PaymentStatus) *infra.GatewaySession {
	return &infra.GatewaySession{
		ID:            id,
		URL:           "https://checkout.stripe.com/c/pay/" + id,
		PaymentStatus: status,
	}
}
