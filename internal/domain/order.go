package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
	StatusRefunded  OrderStatus = "refunded"
)

// transitions lists every allowed status edge. Nothing leads back to pending.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusRefunded},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

type Order struct {
	ID            uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OwnerID       uint64          `json:"ownerId" gorm:"not null;index"`
	CorrelationID *string         `json:"correlationId,omitempty" gorm:"size:255;uniqueIndex"`
	Status        OrderStatus     `json:"status" gorm:"type:enum('pending','paid','cancelled','refunded');default:'pending';not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`
	CreatedAt     time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	Lines         []OrderLine     `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderLine is a price snapshot taken when the order was created.
type OrderLine struct {
	ID            uint64          `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID       uint64          `json:"orderId" gorm:"not null;index"`
	CatalogItemID uint64          `json:"menuItemId" gorm:"not null"`
	Name          string          `json:"name" gorm:"size:255;not null"`
	Quantity      int64           `json:"quantity" gorm:"not null"`
	UnitPrice     decimal.Decimal `json:"unitPrice" gorm:"column:unit_price_at_purchase;type:decimal(10,2);not null"`
}

func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// NewOrder builds a pending order whose total is derived from its lines.
func NewOrder(ownerID uint64, lines []OrderLine, now time.Time) (*Order, error) {
	o := &Order{
		OwnerID:   ownerID,
		Status:    StatusPending,
		Total:     SumLines(lines),
		CreatedAt: now,
		Lines:     lines,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate checks the aggregate invariants that must hold before persisting.
func (o *Order) Validate() error {
	if len(o.Lines) == 0 {
		return ErrInvalidOrder
	}
	for _, l := range o.Lines {
		if l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			return ErrInvalidOrder
		}
	}
	if !o.Total.Equal(SumLines(o.Lines)) {
		return ErrInvalidOrder
	}
	return nil
}

// ValidateNew additionally checks the state every freshly created order must be in.
func (o *Order) ValidateNew() error {
	if o.Status != StatusPending || o.HasCorrelation() || o.ID != 0 {
		return ErrInvalidOrder
	}
	return o.Validate()
}

func (o *Order) HasCorrelation() bool {
	return o.CorrelationID != nil && *o.CorrelationID != ""
}

func (o *Order) OwnedBy(ownerID uint64) bool {
	return o.OwnerID == ownerID
}
