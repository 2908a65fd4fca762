// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Monetary Convention ────────────────────────────────────────────────────
// All amounts are int64 minor units (cents/kopecks) in a single currency.
// Integer arithmetic keeps balances exact; there is no fractional drift to
// reconcile.

// ─── Credit Account ─────────────────────────────────────────────────────────

// CreditAccount is the per-customer credit aggregate. One record per customer,
// created lazily on first lookup with CreditLimit=0 and Blocked=true so an
// unknown buyer can never place an order before an administrator grants a
// limit (fail closed).
type CreditAccount struct {
	CustomerID      string    `json:"customer_id"`
	CreditLimit     int64     `json:"credit_limit"`
	UsedCredit      int64     `json:"used_credit"`
	AvailableCredit int64     `json:"available_credit"` // persisted for fast reads, recomputed on every write
	PaymentTermDays int       `json:"payment_term_days"`
	OverdueDays     int       `json:"overdue_days"`
	Blocked         bool      `json:"is_blocked"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultPaymentTermDays is the contractual days-to-pay applied to accounts
// created lazily, before an administrator sets customer-specific terms.
const DefaultPaymentTermDays = 14

// NewAccount returns the fail-closed default account for a customer that has
// never been seen before.
func NewAccount(customerID string, now time.Time) *CreditAccount {
	return &CreditAccount{
		CustomerID:      customerID,
		CreditLimit:     0,
		PaymentTermDays: DefaultPaymentTermDays,
		Blocked:         true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Recompute re-derives AvailableCredit from CreditLimit and UsedCredit.
// AvailableCredit is never stored independently — every write path calls this
// before persisting. When an administrator lowers the limit below the current
// exposure the headroom floors at zero rather than going negative.
func (a *CreditAccount) Recompute() {
	a.AvailableCredit = a.CreditLimit - a.UsedCredit
	if a.AvailableCredit < 0 {
		a.AvailableCredit = 0
	}
}

// ─── Order Decision ─────────────────────────────────────────────────────────

// DenyReason classifies why an order was denied.
type DenyReason string

const (
	DenyBlocked            DenyReason = "account_blocked"
	DenyInsufficientCredit DenyReason = "insufficient_available_credit"
	DenyInvalidAmount      DenyReason = "invalid_amount"
)

// Decision is the outcome of an affordability check. A denial is an expected
// business answer, not an error.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

// Allow returns a positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a negative decision with the given reason.
func Deny(reason DenyReason) Decision { return Decision{Allowed: false, Reason: reason} }
