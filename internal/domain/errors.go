package domain

import "errors"

// Sentinel errors raised by the engines. Ingress adapters map these to
// HTTP status codes; the Store wraps unexpected failures with
// pkg/errors before they reach this layer so errors.Is still matches.
var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidID       = errors.New("invalid id")

	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrProductNameRequired = errors.New("product name required")

	ErrHoldNotFound        = errors.New("hold not found")
	ErrHoldNotUsable       = errors.New("hold not usable")
	ErrHoldAlreadyConsumed = errors.New("hold already consumed")

	ErrOrderNotFound = errors.New("order not found")

	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyKeyConflict = errors.New("idempotency key conflicts with a different order")

	ErrTransientConflict = errors.New("transient conflict, retry")
)
