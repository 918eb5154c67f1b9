package infra

import (
	"checkout-service/internal/domain"

	"github.com/shopspring/decimal"
)

type SessionRequest struct {
	OrderID    uint64
	OwnerID    uint64
	Lines      []domain.OrderLine
	SuccessURL string
	CancelURL  string
}

type GatewaySession struct {
	ID            string
	URL           string
	PaymentStatus domain.PaymentStatus
	Metadata      map[string]string
}

// MinorUnits converts a decimal amount to the gateway's integer minor units,
// rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
