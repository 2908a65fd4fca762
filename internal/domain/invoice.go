package domain

import "time"

// ─── Invoice ────────────────────────────────────────────────────────────────

// Invoice is a single reserved-and-billable order amount with its own payment
// progress. Invoices are never physically deleted: a fully paid invoice stays
// in history with RemainingAmount()==0, a cancelled reservation is voided.
type Invoice struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"` // human-readable, INV-<year>-<seq>
	CustomerID string    `json:"customer_id"`
	OrderID    string    `json:"order_id"`
	Amount     int64     `json:"amount"`
	PaidAmount int64     `json:"paid_amount"`
	DueDate    time.Time `json:"due_date"`
	Voided     bool      `json:"voided"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RemainingAmount is the unpaid part of the invoice. A voided invoice carries
// no debt regardless of its original amount.
func (i *Invoice) RemainingAmount() int64 {
	if i.Voided {
		return 0
	}
	return i.Amount - i.PaidAmount
}

// Open reports whether the invoice still carries debt.
func (i *Invoice) Open() bool { return i.RemainingAmount() > 0 }

// Overdue reports whether the invoice is past due and still unpaid.
func (i *Invoice) Overdue(now time.Time) bool {
	return i.Open() && now.After(i.DueDate)
}

// OverdueDays returns whole days past the due date, zero if not overdue.
func (i *Invoice) OverdueDays(now time.Time) int {
	if !i.Overdue(now) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}
