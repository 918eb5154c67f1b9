package domain

// PaymentStatus is the gateway's view of a checkout session.
type PaymentStatus string

const (
	PaymentPaid              PaymentStatus = "paid"
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentNoPaymentRequired PaymentStatus = "no_payment_required"
)

type PaymentEventKind int

const (
	PaymentEventUnknown PaymentEventKind = iota
	PaymentEventSessionCompleted
	PaymentEventSessionExpired
)

// PaymentEvent is a verified gateway notification.
type PaymentEvent struct {
	ID            string
	Type          string
	Kind          PaymentEventKind
	SessionID     string
	PaymentStatus PaymentStatus
	Metadata      map[string]string
}
