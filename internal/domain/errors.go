package domain

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrItemsUnavailable   = errors.New("items unavailable")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidOrderState  = errors.New("invalid order state")
	ErrOrderNotFound      = errors.New("order not found")
	ErrSignatureInvalid   = errors.New("signature verification failed")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
