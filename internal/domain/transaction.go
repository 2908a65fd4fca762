package domain

import (
	"fmt"
	"time"
)

// ─── Transaction Types ──────────────────────────────────────────────────────

// TransactionType tags a ledger entry with the business event that produced it.
type TransactionType string

const (
	TxOrder      TransactionType = "order"      // credit reservation, negative amount
	TxPayment    TransactionType = "payment"    // payment application, positive amount
	TxAdjustment TransactionType = "adjustment" // limit change, signed by the delta
)

// Transaction is an append-only ledger entry. Immutable once created; history
// views order entries by CreatedAt descending.
//
// The reference fields are populated per type: OrderID/InvoiceID for order
// entries, PaymentID/InvoiceID for payment entries, none for adjustments.
type Transaction struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"` // signed: negative for reservations
	Description string          `json:"description,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
	PaymentID   string          `json:"payment_id,omitempty"`
	InvoiceID   string          `json:"invoice_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Describe renders a one-line summary for reporting. The switch is exhaustive
// over TransactionType; an unknown tag means corrupted history.
func (t Transaction) Describe() string {
	switch t.Type {
	case TxOrder:
		return fmt.Sprintf("order %s reserved %d", t.OrderID, -t.Amount)
	case TxPayment:
		return fmt.Sprintf("payment %s applied %d", t.PaymentID, t.Amount)
	case TxAdjustment:
		return fmt.Sprintf("credit limit adjusted by %d", t.Amount)
	default:
		return fmt.Sprintf("unknown transaction type %q", t.Type)
	}
}
