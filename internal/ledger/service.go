// Package ledger implements the B2B credit and invoice ledger.
//
// The service owns all credit accounts, invoices, and transaction history.
// Checkout asks CanPlaceOrder before confirming an order and ReserveCredit on
// success; the payment collaborator calls RecordPayment once funds are
// confirmed; a scheduler runs CheckOverdueAccounts periodically. All balances
// are int64 minor units and every mutation runs under the owning customer's
// lock, so concurrent orders and payments on the same account can never
// corrupt UsedCredit/AvailableCredit.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradecore/creditledger/internal/domain"
)

// OverdueBlockThresholdDays is how many days past due an open invoice may be
// before the sweep blocks the account.
const OverdueBlockThresholdDays = 7

// ─── Service ────────────────────────────────────────────────────────────────

// Ledger is the credit ledger service. Thread-safe via per-customer locks.
type Ledger struct {
	accounts domain.AccountStore
	invoices domain.InvoiceStore
	history  domain.TransactionStore
	locks    *customerLocks

	// Injectable clock for testing.
	now func() time.Time
}

// New creates a ledger service over the given stores.
func New(accounts domain.AccountStore, invoices domain.InvoiceStore, history domain.TransactionStore) *Ledger {
	return &Ledger{
		accounts: accounts,
		invoices: invoices,
		history:  history,
		locks:    newCustomerLocks(),
		now:      time.Now,
	}
}

// ─── Account Lookup & Limit Management ──────────────────────────────────────

// GetAccount returns the customer's account, lazily creating the fail-closed
// default (zero limit, blocked) on first touch. The returned flag reports
// whether this call created the record.
func (l *Ledger) GetAccount(customerID string) (*domain.CreditAccount, bool, error) {
	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()
	return l.getOrCreate(customerID)
}

// getOrCreate must be called with the customer's lock held.
func (l *Ledger) getOrCreate(customerID string) (*domain.CreditAccount, bool, error) {
	acc, err := l.accounts.GetAccount(customerID)
	if err == nil {
		return acc, false, nil
	}
	if err != domain.ErrAccountNotFound {
		return nil, false, fmt.Errorf("get account %s: %w", customerID, err)
	}

	acc = domain.NewAccount(customerID, l.now())
	acc.Recompute()
	if err := l.accounts.PutAccount(acc); err != nil {
		return nil, false, fmt.Errorf("create account %s: %w", customerID, err)
	}
	return acc, true, nil
}

// SetAccount replaces an account's state wholesale. Used for administrative
// corrections; AvailableCredit is re-derived on write so the caller cannot
// persist an inconsistent headroom.
func (l *Ledger) SetAccount(acc *domain.CreditAccount) error {
	mu := l.locks.get(acc.CustomerID)
	mu.Lock()
	defer mu.Unlock()

	acc.Recompute()
	acc.UpdatedAt = l.now()
	return l.accounts.PutAccount(acc)
}

// IncreaseCreditLimit sets a new credit limit and records the delta as an
// adjustment transaction. Lowering the limit below the current exposure is
// allowed — headroom floors at zero, it never goes negative.
func (l *Ledger) IncreaseCreditLimit(customerID string, newLimit int64) (*domain.CreditAccount, error) {
	if newLimit < 0 {
		return nil, domain.ErrInvalidAmount
	}

	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()

	acc, _, err := l.getOrCreate(customerID)
	if err != nil {
		return nil, err
	}

	delta := newLimit - acc.CreditLimit
	acc.CreditLimit = newLimit
	acc.Recompute()
	acc.UpdatedAt = l.now()
	if err := l.accounts.PutAccount(acc); err != nil {
		return nil, fmt.Errorf("update account %s: %w", customerID, err)
	}

	if delta != 0 {
		tx := &domain.Transaction{
			ID:          uuid.NewString(),
			CustomerID:  customerID,
			Type:        domain.TxAdjustment,
			Amount:      delta,
			Description: fmt.Sprintf("credit limit changed to %d", newLimit),
			CreatedAt:   l.now(),
		}
		if err := l.history.AppendTransaction(tx); err != nil {
			return nil, fmt.Errorf("append adjustment: %w", err)
		}
	}
	return acc, nil
}

// UnblockAccount is a manual administrative override: it clears the blocked
// flag and overdue counter regardless of outstanding invoices.
func (l *Ledger) UnblockAccount(customerID string) (*domain.CreditAccount, error) {
	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()

	acc, _, err := l.getOrCreate(customerID)
	if err != nil {
		return nil, err
	}

	acc.Blocked = false
	acc.OverdueDays = 0
	acc.Recompute()
	acc.UpdatedAt = l.now()
	if err := l.accounts.PutAccount(acc); err != nil {
		return nil, fmt.Errorf("update account %s: %w", customerID, err)
	}
	return acc, nil
}

// ─── Affordability Check ────────────────────────────────────────────────────

// CanPlaceOrder decides whether the customer may place an order of the given
// amount. Pure read, no mutation: a customer that has never been seen is
// treated as the fail-closed default and denied as blocked.
func (l *Ledger) CanPlaceOrder(customerID string, amount int64) (domain.Decision, error) {
	if amount <= 0 {
		OrderDecisions.WithLabelValues(string(domain.DenyInvalidAmount)).Inc()
		return domain.Deny(domain.DenyInvalidAmount), nil
	}

	acc, err := l.accounts.GetAccount(customerID)
	if err == domain.ErrAccountNotFound {
		OrderDecisions.WithLabelValues(string(domain.DenyBlocked)).Inc()
		return domain.Deny(domain.DenyBlocked), nil
	}
	if err != nil {
		return domain.Decision{}, fmt.Errorf("get account %s: %w", customerID, err)
	}

	switch {
	case acc.Blocked:
		OrderDecisions.WithLabelValues(string(domain.DenyBlocked)).Inc()
		return domain.Deny(domain.DenyBlocked), nil
	case amount > acc.AvailableCredit:
		OrderDecisions.WithLabelValues(string(domain.DenyInsufficientCredit)).Inc()
		return domain.Deny(domain.DenyInsufficientCredit), nil
	default:
		OrderDecisions.WithLabelValues("allowed").Inc()
		return domain.Allow(), nil
	}
}

// ─── Reservation ────────────────────────────────────────────────────────────

// ReserveCredit converts available credit into used credit for an order and
// opens an invoice. The affordability check is repeated here under the lock —
// this is the authoritative step, a prior CanPlaceOrder answer is advisory.
// One order gets at most one invoice; a repeated order ID is rejected.
func (l *Ledger) ReserveCredit(customerID, orderID string, amount int64) (*domain.Invoice, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()

	acc, _, err := l.getOrCreate(customerID)
	if err != nil {
		return nil, err
	}
	if acc.Blocked {
		Reservations.WithLabelValues("blocked").Inc()
		return nil, domain.ErrAccountBlocked
	}

	if _, err := l.invoices.GetInvoiceByOrder(customerID, orderID); err == nil {
		Reservations.WithLabelValues("duplicate").Inc()
		return nil, domain.ErrDuplicateOrder
	} else if err != domain.ErrInvoiceNotFound {
		return nil, fmt.Errorf("lookup order %s: %w", orderID, err)
	}

	if amount > acc.AvailableCredit {
		Reservations.WithLabelValues("insufficient").Inc()
		return nil, domain.ErrInsufficientCredit
	}

	now := l.now()
	acc.UsedCredit += amount
	acc.Recompute()
	acc.UpdatedAt = now
	if err := l.accounts.PutAccount(acc); err != nil {
		return nil, fmt.Errorf("update account %s: %w", customerID, err)
	}

	inv := &domain.Invoice{
		ID:         uuid.NewString(),
		Number:     invoiceNumber(now),
		CustomerID: customerID,
		OrderID:    orderID,
		Amount:     amount,
		DueDate:    now.AddDate(0, 0, acc.PaymentTermDays),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.invoices.PutInvoice(inv); err != nil {
		return nil, fmt.Errorf("create invoice for order %s: %w", orderID, err)
	}

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Type:        domain.TxOrder,
		Amount:      -amount,
		Description: fmt.Sprintf("reservation for order %s", orderID),
		OrderID:     orderID,
		InvoiceID:   inv.ID,
		CreatedAt:   now,
	}
	if err := l.history.AppendTransaction(tx); err != nil {
		return nil, fmt.Errorf("append order transaction: %w", err)
	}

	Reservations.WithLabelValues("reserved").Inc()
	return inv, nil
}

// ReleaseCredit voids an unpaid reservation and returns its full amount to
// available credit. An invoice with any payment applied cannot be released —
// partially paid orders must be settled or adjusted by an administrator. The
// invoice record survives, voided, for audit.
func (l *Ledger) ReleaseCredit(customerID, orderID string) (*domain.Invoice, error) {
	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()

	inv, err := l.invoices.GetInvoiceByOrder(customerID, orderID)
	if err == domain.ErrInvoiceNotFound {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup order %s: %w", orderID, err)
	}
	if inv.Voided || !inv.Open() {
		return nil, domain.ErrReservationNotFound
	}
	if inv.PaidAmount > 0 {
		return nil, domain.ErrInvoicePartiallyPaid
	}

	acc, err := l.accounts.GetAccount(customerID)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", customerID, err)
	}

	now := l.now()
	acc.UsedCredit -= inv.Amount
	if acc.UsedCredit < 0 {
		acc.UsedCredit = 0
	}
	acc.Recompute()
	acc.UpdatedAt = now
	if err := l.accounts.PutAccount(acc); err != nil {
		return nil, fmt.Errorf("update account %s: %w", customerID, err)
	}

	inv.Voided = true
	inv.UpdatedAt = now
	if err := l.invoices.PutInvoice(inv); err != nil {
		return nil, fmt.Errorf("void invoice %s: %w", inv.ID, err)
	}

	Releases.Inc()
	return inv, nil
}

// ─── Payment Application ────────────────────────────────────────────────────

// Allocation records how much of a payment landed on one invoice.
type Allocation struct {
	InvoiceID string `json:"invoice_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
}

// PaymentReceipt summarizes what RecordPayment did with a payment.
type PaymentReceipt struct {
	PaymentID   string       `json:"payment_id"`
	Requested   int64        `json:"requested"`
	Applied     int64        `json:"applied"`
	Excess      int64        `json:"excess"` // requested amount beyond outstanding debt, not applied
	Allocations []Allocation `json:"allocations,omitempty"`
}

// RecordPayment applies a confirmed payment to the customer's open invoices,
// oldest first (FIFO by creation time). The applied total is clamped to the
// outstanding debt — UsedCredit never goes negative; any excess is reported
// back in the receipt and not retained as a credit note. A zero amount is a
// successful no-op.
func (l *Ledger) RecordPayment(customerID, paymentID string, amount int64) (*PaymentReceipt, error) {
	if amount < 0 {
		return nil, domain.ErrInvalidAmount
	}

	receipt := &PaymentReceipt{PaymentID: paymentID, Requested: amount}
	if amount == 0 {
		return receipt, nil
	}

	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()

	acc, _, err := l.getOrCreate(customerID)
	if err != nil {
		return nil, err
	}

	open, err := l.openInvoices(customerID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	left := amount
	for _, inv := range open {
		if left == 0 {
			break
		}
		applied := inv.RemainingAmount()
		if applied > left {
			applied = left
		}
		inv.PaidAmount += applied
		inv.UpdatedAt = now
		if err := l.invoices.PutInvoice(inv); err != nil {
			return nil, fmt.Errorf("update invoice %s: %w", inv.ID, err)
		}
		left -= applied
		receipt.Allocations = append(receipt.Allocations, Allocation{
			InvoiceID: inv.ID,
			OrderID:   inv.OrderID,
			Amount:    applied,
		})
	}
	receipt.Applied = amount - left
	receipt.Excess = left

	if receipt.Applied > 0 {
		acc.UsedCredit -= receipt.Applied
		if acc.UsedCredit < 0 {
			acc.UsedCredit = 0
		}
		acc.Recompute()
		acc.UpdatedAt = now
		if err := l.accounts.PutAccount(acc); err != nil {
			return nil, fmt.Errorf("update account %s: %w", customerID, err)
		}

		tx := &domain.Transaction{
			ID:          uuid.NewString(),
			CustomerID:  customerID,
			Type:        domain.TxPayment,
			Amount:      receipt.Applied,
			Description: fmt.Sprintf("payment %s", paymentID),
			PaymentID:   paymentID,
			CreatedAt:   now,
		}
		// A payment spilling across invoices references none of them directly;
		// the receipt carries the per-invoice breakdown.
		if len(receipt.Allocations) == 1 {
			tx.InvoiceID = receipt.Allocations[0].InvoiceID
		}
		if err := l.history.AppendTransaction(tx); err != nil {
			return nil, fmt.Errorf("append payment transaction: %w", err)
		}

		PaymentAmountApplied.Add(float64(receipt.Applied))
	}

	PaymentsRecorded.Inc()
	return receipt, nil
}

// openInvoices returns the customer's open invoices ascending by creation
// time. Must be called with the customer's lock held.
func (l *Ledger) openInvoices(customerID string) ([]*domain.Invoice, error) {
	all, err := l.invoices.ListInvoices(customerID)
	if err != nil {
		return nil, fmt.Errorf("list invoices for %s: %w", customerID, err)
	}
	open := make([]*domain.Invoice, 0, len(all))
	for _, inv := range all {
		if inv.Open() {
			open = append(open, inv)
		}
	}
	return open, nil
}

// ─── Overdue Detection ──────────────────────────────────────────────────────

// CheckOverdueAccounts sweeps every account with open invoices, refreshes its
// overdue counter, and blocks it when any open invoice is more than
// OverdueBlockThresholdDays past due. It returns the customers transitioned
// to blocked in this run. The sweep never auto-unblocks: clearing the flag is
// a human decision (UnblockAccount).
//
// Each account is locked only for its own update, so the sweep does not stall
// order or payment traffic on unrelated customers. A failing account is
// skipped rather than aborting the sweep.
func (l *Ledger) CheckOverdueAccounts() ([]string, error) {
	customers, err := l.invoices.CustomersWithOpenInvoices()
	if err != nil {
		return nil, fmt.Errorf("list customers with open invoices: %w", err)
	}

	var blocked []string
	for _, customerID := range customers {
		transitioned, err := l.refreshOverdue(customerID)
		if err != nil {
			continue
		}
		if transitioned {
			blocked = append(blocked, customerID)
			SweepBlocked.Inc()
		}
	}
	return blocked, nil
}

// refreshOverdue re-reads one account under its lock and applies the overdue
// policy. Returns whether the account transitioned to blocked.
func (l *Ledger) refreshOverdue(customerID string) (bool, error) {
	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()

	acc, err := l.accounts.GetAccount(customerID)
	if err != nil {
		return false, err
	}
	open, err := l.openInvoices(customerID)
	if err != nil {
		return false, err
	}

	now := l.now()
	maxOverdue := 0
	for _, inv := range open {
		if d := inv.OverdueDays(now); d > maxOverdue {
			maxOverdue = d
		}
	}

	transitioned := false
	if maxOverdue > OverdueBlockThresholdDays && !acc.Blocked {
		acc.Blocked = true
		transitioned = true
	}
	acc.OverdueDays = maxOverdue
	acc.Recompute()
	acc.UpdatedAt = now
	if err := l.accounts.PutAccount(acc); err != nil {
		return false, err
	}
	return transitioned, nil
}

// ─── Queries ────────────────────────────────────────────────────────────────

// OutstandingInvoices returns the customer's open invoices, oldest first.
func (l *Ledger) OutstandingInvoices(customerID string) ([]*domain.Invoice, error) {
	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()
	return l.openInvoices(customerID)
}

// AllInvoices returns every invoice for the customer, including paid and
// voided ones, oldest first.
func (l *Ledger) AllInvoices(customerID string) ([]*domain.Invoice, error) {
	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()

	all, err := l.invoices.ListInvoices(customerID)
	if err != nil {
		return nil, fmt.Errorf("list invoices for %s: %w", customerID, err)
	}
	return all, nil
}

// PaymentHistory returns the customer's transaction history, newest first.
func (l *Ledger) PaymentHistory(customerID string) ([]*domain.Transaction, error) {
	mu := l.locks.get(customerID)
	mu.Lock()
	defer mu.Unlock()

	txs, err := l.history.ListTransactions(customerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", customerID, err)
	}
	return txs, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// invoiceNumber generates a human-readable invoice number. The UUID on the
// invoice is the real identity; the number exists for paperwork.
func invoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%d-%d", now.Year(), now.UnixNano()%100000)
}
