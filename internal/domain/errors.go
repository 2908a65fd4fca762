package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Business-rule
// violations are decisions, not transient faults: callers must not retry them.

var (
	// Validation
	ErrInvalidAmount = errors.New("amount must be positive")

	// Reservation
	ErrInsufficientCredit = errors.New("insufficient available credit")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrDuplicateOrder     = errors.New("order already has an invoice")

	// Release
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrInvoicePartiallyPaid = errors.New("invoice has payments applied, cannot release")

	// Stores
	ErrAccountNotFound = errors.New("account not found")
	ErrInvoiceNotFound = errors.New("invoice not found")
)
