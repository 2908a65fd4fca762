package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tradecore/creditledger/internal/domain"
	"github.com/tradecore/creditledger/internal/infra/memstore"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLedger(t *testing.T) (*Ledger, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(memstore.NewAccountStore(), memstore.NewInvoiceStore(), memstore.NewTransactionStore())
	l.now = clk.Now
	return l, clk
}

// grantCredit gives a customer a working account: limit set and unblocked.
func grantCredit(t *testing.T, l *Ledger, customerID string, limit int64) {
	t.Helper()
	if _, err := l.IncreaseCreditLimit(customerID, limit); err != nil {
		t.Fatalf("IncreaseCreditLimit() error: %v", err)
	}
	if _, err := l.UnblockAccount(customerID); err != nil {
		t.Fatalf("UnblockAccount() error: %v", err)
	}
}

func mustAccount(t *testing.T, l *Ledger, customerID string) *domain.CreditAccount {
	t.Helper()
	acc, _, err := l.GetAccount(customerID)
	if err != nil {
		t.Fatalf("GetAccount() error: %v", err)
	}
	return acc
}

// ─── Account Lifecycle ──────────────────────────────────────────────────────

func TestGetAccount_LazyCreateFailClosed(t *testing.T) {
	l, _ := newTestLedger(t)

	acc, created, err := l.GetAccount("cust-1")
	if err != nil {
		t.Fatalf("GetAccount() error: %v", err)
	}
	if !created {
		t.Error("created = false, want true on first touch")
	}
	if !acc.Blocked {
		t.Error("new account should be blocked (fail closed)")
	}
	if acc.CreditLimit != 0 {
		t.Errorf("CreditLimit = %d, want 0", acc.CreditLimit)
	}
	if acc.PaymentTermDays != domain.DefaultPaymentTermDays {
		t.Errorf("PaymentTermDays = %d, want %d", acc.PaymentTermDays, domain.DefaultPaymentTermDays)
	}
}

func TestGetAccount_IdempotentRead(t *testing.T) {
	l, _ := newTestLedger(t)

	first, _, err := l.GetAccount("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	second, created, err := l.GetAccount("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("created = true on second lookup, want false")
	}
	if *first != *second {
		t.Errorf("repeated GetAccount differs: %+v vs %+v", first, second)
	}
}

func TestSetAccount_RecomputesAvailable(t *testing.T) {
	l, _ := newTestLedger(t)

	acc := mustAccount(t, l, "cust-1")
	acc.CreditLimit = 5000
	acc.UsedCredit = 2000
	acc.AvailableCredit = 999999 // stale garbage, must be re-derived on write
	if err := l.SetAccount(acc); err != nil {
		t.Fatalf("SetAccount() error: %v", err)
	}

	got := mustAccount(t, l, "cust-1")
	if got.AvailableCredit != 3000 {
		t.Errorf("AvailableCredit = %d, want 3000", got.AvailableCredit)
	}
}

// ─── Affordability Check ────────────────────────────────────────────────────

func TestCanPlaceOrder_NewCustomerDenied(t *testing.T) {
	l, _ := newTestLedger(t)

	// Scenario: brand-new customer, creditLimit=0 — denied as blocked.
	d, err := l.CanPlaceOrder("unknown", 1)
	if err != nil {
		t.Fatalf("CanPlaceOrder() error: %v", err)
	}
	if d.Allowed {
		t.Error("allowed = true for unknown customer, want false")
	}
	if d.Reason != domain.DenyBlocked {
		t.Errorf("reason = %q, want %q", d.Reason, domain.DenyBlocked)
	}

	// The check is a pure read: no account record may appear.
	if _, created, _ := l.GetAccount("unknown"); !created {
		t.Error("CanPlaceOrder must not create an account")
	}
}

func TestCanPlaceOrder_Decisions(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	tests := []struct {
		name    string
		amount  int64
		allowed bool
		reason  domain.DenyReason
	}{
		{"within limit", 100000, true, ""},
		{"over limit", 100001, false, domain.DenyInsufficientCredit},
		{"zero amount", 0, false, domain.DenyInvalidAmount},
		{"negative amount", -5, false, domain.DenyInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := l.CanPlaceOrder("cust-1", tt.amount)
			if err != nil {
				t.Fatalf("CanPlaceOrder() error: %v", err)
			}
			if d.Allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if d.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestCanPlaceOrder_BlockedAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	acc := mustAccount(t, l, "cust-1")
	acc.Blocked = true
	if err := l.SetAccount(acc); err != nil {
		t.Fatal(err)
	}

	d, err := l.CanPlaceOrder("cust-1", 100)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Reason != domain.DenyBlocked {
		t.Errorf("decision = %+v, want denied as blocked", d)
	}
}

// ─── Reservation ────────────────────────────────────────────────────────────

func TestReserveCredit_MovesAvailableToUsed(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	// Scenario: reserve 50000 → available 50000; reserve 60000 → fails,
	// used stays 50000.
	inv, err := l.ReserveCredit("cust-1", "order-1", 50000)
	if err != nil {
		t.Fatalf("ReserveCredit() error: %v", err)
	}
	if inv.Amount != 50000 || inv.PaidAmount != 0 {
		t.Errorf("invoice amount/paid = %d/%d, want 50000/0", inv.Amount, inv.PaidAmount)
	}

	acc := mustAccount(t, l, "cust-1")
	if acc.AvailableCredit != 50000 {
		t.Errorf("AvailableCredit = %d, want 50000", acc.AvailableCredit)
	}

	if _, err := l.ReserveCredit("cust-1", "order-2", 60000); err != domain.ErrInsufficientCredit {
		t.Fatalf("ReserveCredit() error = %v, want ErrInsufficientCredit", err)
	}

	acc = mustAccount(t, l, "cust-1")
	if acc.UsedCredit != 50000 {
		t.Errorf("UsedCredit = %d after failed reservation, want 50000", acc.UsedCredit)
	}
}

func TestReserveCredit_BlockedAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.IncreaseCreditLimit("cust-1", 100000); err != nil {
		t.Fatal(err)
	}
	// Still blocked: limit alone does not open the account.
	if _, err := l.ReserveCredit("cust-1", "order-1", 100); err != domain.ErrAccountBlocked {
		t.Fatalf("ReserveCredit() error = %v, want ErrAccountBlocked", err)
	}
}

func TestReserveCredit_DuplicateOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	if _, err := l.ReserveCredit("cust-1", "order-1", 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ReserveCredit("cust-1", "order-1", 1000); err != domain.ErrDuplicateOrder {
		t.Fatalf("ReserveCredit() error = %v, want ErrDuplicateOrder", err)
	}

	acc := mustAccount(t, l, "cust-1")
	if acc.UsedCredit != 1000 {
		t.Errorf("UsedCredit = %d after duplicate rejection, want 1000", acc.UsedCredit)
	}
}

func TestReserveCredit_InvalidAmount(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	for _, amount := range []int64{0, -1} {
		if _, err := l.ReserveCredit("cust-1", "order-x", amount); err != domain.ErrInvalidAmount {
			t.Errorf("ReserveCredit(%d) error = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestReserveCredit_DueDateAndTransaction(t *testing.T) {
	l, clk := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	inv, err := l.ReserveCredit("cust-1", "order-1", 2500)
	if err != nil {
		t.Fatal(err)
	}

	wantDue := clk.Now().AddDate(0, 0, domain.DefaultPaymentTermDays)
	if !inv.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v, want %v", inv.DueDate, wantDue)
	}

	txs, err := l.PaymentHistory("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("history length = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Type != domain.TxOrder {
		t.Errorf("tx type = %q, want %q", tx.Type, domain.TxOrder)
	}
	if tx.Amount != -2500 {
		t.Errorf("tx amount = %d, want -2500", tx.Amount)
	}
	if tx.OrderID != "order-1" || tx.InvoiceID != inv.ID {
		t.Errorf("tx references = %q/%q, want order-1/%s", tx.OrderID, tx.InvoiceID, inv.ID)
	}
}

// ─── Release ────────────────────────────────────────────────────────────────

func TestReleaseCredit_RestoresAvailable(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	if _, err := l.ReserveCredit("cust-1", "order-1", 30000); err != nil {
		t.Fatal(err)
	}

	inv, err := l.ReleaseCredit("cust-1", "order-1")
	if err != nil {
		t.Fatalf("ReleaseCredit() error: %v", err)
	}
	if !inv.Voided {
		t.Error("released invoice should be voided")
	}

	acc := mustAccount(t, l, "cust-1")
	if acc.UsedCredit != 0 || acc.AvailableCredit != 100000 {
		t.Errorf("used/available = %d/%d, want 0/100000", acc.UsedCredit, acc.AvailableCredit)
	}

	// The voided invoice stays in history.
	all, err := l.AllInvoices("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || !all[0].Voided {
		t.Errorf("AllInvoices = %d records, want 1 voided", len(all))
	}
}

func TestReleaseCredit_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	if _, err := l.ReleaseCredit("cust-1", "no-such-order"); err != domain.ErrReservationNotFound {
		t.Fatalf("ReleaseCredit() error = %v, want ErrReservationNotFound", err)
	}
}

func TestReleaseCredit_AlreadyReleased(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	if _, err := l.ReserveCredit("cust-1", "order-1", 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ReleaseCredit("cust-1", "order-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ReleaseCredit("cust-1", "order-1"); err != domain.ErrReservationNotFound {
		t.Fatalf("second ReleaseCredit() error = %v, want ErrReservationNotFound", err)
	}
}

func TestReleaseCredit_RefusesPartiallyPaid(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	if _, err := l.ReserveCredit("cust-1", "order-1", 10000); err != nil {
		t.Fatal(err)
	}
	if _, err := l.RecordPayment("cust-1", "pay-1", 4000); err != nil {
		t.Fatal(err)
	}

	if _, err := l.ReleaseCredit("cust-1", "order-1"); err != domain.ErrInvoicePartiallyPaid {
		t.Fatalf("ReleaseCredit() error = %v, want ErrInvoicePartiallyPaid", err)
	}

	// Nothing changed.
	acc := mustAccount(t, l, "cust-1")
	if acc.UsedCredit != 6000 {
		t.Errorf("UsedCredit = %d, want 6000", acc.UsedCredit)
	}
}

// ─── Payment Application (FIFO) ─────────────────────────────────────────────

// reserveTwo opens the canonical pair of invoices: 10000 (older) then 5000.
func reserveTwo(t *testing.T, l *Ledger, clk *fakeClock) {
	t.Helper()
	grantCredit(t, l, "cust-1", 100000)
	if _, err := l.ReserveCredit("cust-1", "order-old", 10000); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Hour)
	if _, err := l.ReserveCredit("cust-1", "order-new", 5000); err != nil {
		t.Fatal(err)
	}
}

func TestRecordPayment_FIFOOldestFirst(t *testing.T) {
	l, clk := newTestLedger(t)
	reserveTwo(t, l, clk)

	// Scenario: payment of 8000 lands entirely on the older invoice.
	receipt, err := l.RecordPayment("cust-1", "pay-1", 8000)
	if err != nil {
		t.Fatalf("RecordPayment() error: %v", err)
	}
	if receipt.Applied != 8000 || receipt.Excess != 0 {
		t.Errorf("applied/excess = %d/%d, want 8000/0", receipt.Applied, receipt.Excess)
	}
	if len(receipt.Allocations) != 1 || receipt.Allocations[0].OrderID != "order-old" {
		t.Fatalf("allocations = %+v, want single allocation to order-old", receipt.Allocations)
	}

	open, err := l.OutstandingInvoices("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Fatalf("open invoices = %d, want 2", len(open))
	}
	older, newer := open[0], open[1]
	if older.PaidAmount != 8000 || older.RemainingAmount() != 2000 {
		t.Errorf("older paid/remaining = %d/%d, want 8000/2000", older.PaidAmount, older.RemainingAmount())
	}
	if newer.PaidAmount != 0 {
		t.Errorf("newer PaidAmount = %d, want 0 (untouched)", newer.PaidAmount)
	}
}

func TestRecordPayment_SpillsIntoNewer(t *testing.T) {
	l, clk := newTestLedger(t)
	reserveTwo(t, l, clk)

	// Scenario: payment of 12000 pays the older in full and spills 2000.
	receipt, err := l.RecordPayment("cust-1", "pay-1", 12000)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Applied != 12000 {
		t.Errorf("applied = %d, want 12000", receipt.Applied)
	}
	if len(receipt.Allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(receipt.Allocations))
	}

	all, err := l.AllInvoices("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	older, newer := all[0], all[1]
	if older.RemainingAmount() != 0 {
		t.Errorf("older remaining = %d, want 0", older.RemainingAmount())
	}
	if newer.PaidAmount != 2000 || newer.RemainingAmount() != 3000 {
		t.Errorf("newer paid/remaining = %d/%d, want 2000/3000", newer.PaidAmount, newer.RemainingAmount())
	}

	acc := mustAccount(t, l, "cust-1")
	if acc.UsedCredit != 3000 {
		t.Errorf("UsedCredit = %d, want 3000", acc.UsedCredit)
	}
}

func TestRecordPayment_OverpaymentClamped(t *testing.T) {
	l, clk := newTestLedger(t)
	reserveTwo(t, l, clk)

	// Outstanding debt is 15000; the excess is reported, never applied.
	receipt, err := l.RecordPayment("cust-1", "pay-1", 20000)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Applied != 15000 || receipt.Excess != 5000 {
		t.Errorf("applied/excess = %d/%d, want 15000/5000", receipt.Applied, receipt.Excess)
	}

	acc := mustAccount(t, l, "cust-1")
	if acc.UsedCredit != 0 {
		t.Errorf("UsedCredit = %d, want 0 (never negative)", acc.UsedCredit)
	}
	if acc.AvailableCredit != acc.CreditLimit {
		t.Errorf("AvailableCredit = %d, want full limit %d", acc.AvailableCredit, acc.CreditLimit)
	}

	// The payment transaction records the applied total, not the request.
	txs, err := l.PaymentHistory("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if txs[0].Type != domain.TxPayment || txs[0].Amount != 15000 {
		t.Errorf("latest tx = %q/%d, want payment/15000", txs[0].Type, txs[0].Amount)
	}
}

func TestRecordPayment_ZeroIsNoOp(t *testing.T) {
	l, clk := newTestLedger(t)
	reserveTwo(t, l, clk)
	before, err := l.PaymentHistory("cust-1")
	if err != nil {
		t.Fatal(err)
	}

	receipt, err := l.RecordPayment("cust-1", "pay-zero", 0)
	if err != nil {
		t.Fatalf("zero payment should succeed, got %v", err)
	}
	if receipt.Applied != 0 {
		t.Errorf("applied = %d, want 0", receipt.Applied)
	}

	after, err := l.PaymentHistory("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Errorf("history grew from %d to %d on zero payment", len(before), len(after))
	}
}

func TestRecordPayment_NegativeRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.RecordPayment("cust-1", "pay-1", -100); err != domain.ErrInvalidAmount {
		t.Fatalf("RecordPayment() error = %v, want ErrInvalidAmount", err)
	}
}

func TestRecordPayment_SkipsVoidedInvoices(t *testing.T) {
	l, clk := newTestLedger(t)
	reserveTwo(t, l, clk)
	if _, err := l.ReleaseCredit("cust-1", "order-old"); err != nil {
		t.Fatal(err)
	}

	receipt, err := l.RecordPayment("cust-1", "pay-1", 5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(receipt.Allocations) != 1 || receipt.Allocations[0].OrderID != "order-new" {
		t.Fatalf("allocations = %+v, want single allocation to order-new", receipt.Allocations)
	}
}

// ─── Credit Limit Management ────────────────────────────────────────────────

func TestIncreaseCreditLimit_AppliesDelta(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	// Scenario: used 80000, available 20000; raise limit to 150000 → 70000.
	if _, err := l.ReserveCredit("cust-1", "order-1", 80000); err != nil {
		t.Fatal(err)
	}

	acc, err := l.IncreaseCreditLimit("cust-1", 150000)
	if err != nil {
		t.Fatal(err)
	}
	if acc.AvailableCredit != 70000 {
		t.Errorf("AvailableCredit = %d, want 70000", acc.AvailableCredit)
	}

	txs, err := l.PaymentHistory("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if txs[0].Type != domain.TxAdjustment || txs[0].Amount != 50000 {
		t.Errorf("latest tx = %q/%d, want adjustment/+50000", txs[0].Type, txs[0].Amount)
	}
}

func TestIncreaseCreditLimit_BelowUsedFloorsAtZero(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)
	if _, err := l.ReserveCredit("cust-1", "order-1", 80000); err != nil {
		t.Fatal(err)
	}

	acc, err := l.IncreaseCreditLimit("cust-1", 50000)
	if err != nil {
		t.Fatal(err)
	}
	if acc.AvailableCredit != 0 {
		t.Errorf("AvailableCredit = %d, want 0 (not negative)", acc.AvailableCredit)
	}
	if acc.UsedCredit != 80000 {
		t.Errorf("UsedCredit = %d, want 80000 (exposure untouched)", acc.UsedCredit)
	}
}

func TestIncreaseCreditLimit_NegativeRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.IncreaseCreditLimit("cust-1", -1); err != domain.ErrInvalidAmount {
		t.Fatalf("IncreaseCreditLimit() error = %v, want ErrInvalidAmount", err)
	}
}

// ─── Overdue Detection ──────────────────────────────────────────────────────

func TestCheckOverdueAccounts_BlocksPastThreshold(t *testing.T) {
	l, clk := newTestLedger(t)

	// cust-late: invoice due 10 days in the past. cust-fresh: 3 days past.
	grantCredit(t, l, "cust-late", 100000)
	grantCredit(t, l, "cust-fresh", 100000)
	if _, err := l.ReserveCredit("cust-late", "order-1", 1000); err != nil {
		t.Fatal(err)
	}
	clk.Advance(7 * 24 * time.Hour)
	if _, err := l.ReserveCredit("cust-fresh", "order-2", 1000); err != nil {
		t.Fatal(err)
	}
	// Both terms are 14 days; jump to 10 days past the first due date.
	clk.Advance((domain.DefaultPaymentTermDays + 3) * 24 * time.Hour)

	blocked, err := l.CheckOverdueAccounts()
	if err != nil {
		t.Fatalf("CheckOverdueAccounts() error: %v", err)
	}
	if len(blocked) != 1 || blocked[0] != "cust-late" {
		t.Fatalf("blocked = %v, want [cust-late]", blocked)
	}

	late := mustAccount(t, l, "cust-late")
	if !late.Blocked {
		t.Error("cust-late should be blocked")
	}
	if late.OverdueDays != 10 {
		t.Errorf("cust-late OverdueDays = %d, want 10", late.OverdueDays)
	}

	fresh := mustAccount(t, l, "cust-fresh")
	if fresh.Blocked {
		t.Error("cust-fresh should not be blocked at 3 days overdue")
	}
	if fresh.OverdueDays != 3 {
		t.Errorf("cust-fresh OverdueDays = %d, want 3", fresh.OverdueDays)
	}
}

func TestCheckOverdueAccounts_ReportsOnlyTransitions(t *testing.T) {
	l, clk := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)
	if _, err := l.ReserveCredit("cust-1", "order-1", 1000); err != nil {
		t.Fatal(err)
	}
	clk.Advance((domain.DefaultPaymentTermDays + 10) * 24 * time.Hour)

	first, err := l.CheckOverdueAccounts()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("first sweep blocked = %v, want one customer", first)
	}

	second, err := l.CheckOverdueAccounts()
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Errorf("second sweep blocked = %v, want none (already blocked)", second)
	}
}

func TestCheckOverdueAccounts_DoesNotAutoUnblock(t *testing.T) {
	l, clk := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)
	if _, err := l.ReserveCredit("cust-1", "order-1", 1000); err != nil {
		t.Fatal(err)
	}
	clk.Advance((domain.DefaultPaymentTermDays + 10) * 24 * time.Hour)
	if _, err := l.CheckOverdueAccounts(); err != nil {
		t.Fatal(err)
	}

	// Full catch-up payment clears the debt but not the flag.
	if _, err := l.RecordPayment("cust-1", "pay-1", 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := l.CheckOverdueAccounts(); err != nil {
		t.Fatal(err)
	}

	acc := mustAccount(t, l, "cust-1")
	if !acc.Blocked {
		t.Error("sweep must not auto-unblock; that is UnblockAccount's job")
	}
}

func TestUnblockAccount_ClearsFlagAndCounter(t *testing.T) {
	l, clk := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)
	if _, err := l.ReserveCredit("cust-1", "order-1", 1000); err != nil {
		t.Fatal(err)
	}
	clk.Advance((domain.DefaultPaymentTermDays + 10) * 24 * time.Hour)
	if _, err := l.CheckOverdueAccounts(); err != nil {
		t.Fatal(err)
	}

	acc, err := l.UnblockAccount("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Blocked {
		t.Error("Blocked = true after unblock")
	}
	if acc.OverdueDays != 0 {
		t.Errorf("OverdueDays = %d after unblock, want 0", acc.OverdueDays)
	}
}

// ─── Queries ────────────────────────────────────────────────────────────────

func TestOutstandingInvoices_FiltersSettled(t *testing.T) {
	l, clk := newTestLedger(t)
	reserveTwo(t, l, clk)
	if _, err := l.RecordPayment("cust-1", "pay-1", 10000); err != nil {
		t.Fatal(err)
	}

	open, err := l.OutstandingInvoices("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].OrderID != "order-new" {
		t.Fatalf("open = %+v, want only order-new", open)
	}

	all, err := l.AllInvoices("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("AllInvoices = %d, want 2 (paid invoices stay in history)", len(all))
	}
}

func TestPaymentHistory_NewestFirst(t *testing.T) {
	l, clk := newTestLedger(t)
	grantCredit(t, l, "cust-1", 100000)

	if _, err := l.ReserveCredit("cust-1", "order-1", 1000); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Minute)
	if _, err := l.RecordPayment("cust-1", "pay-1", 1000); err != nil {
		t.Fatal(err)
	}

	txs, err := l.PaymentHistory("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	// adjustment (grant), order, payment — newest first.
	if len(txs) != 3 {
		t.Fatalf("history = %d entries, want 3", len(txs))
	}
	if txs[0].Type != domain.TxPayment {
		t.Errorf("txs[0] = %q, want payment (newest)", txs[0].Type)
	}
	for i := 1; i < len(txs); i++ {
		if txs[i].CreatedAt.After(txs[i-1].CreatedAt) {
			t.Errorf("history not sorted newest-first at index %d", i)
		}
	}
}

// ─── Invariants Under Concurrency ───────────────────────────────────────────

func TestConcurrentReservations_NeverOversell(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 10000)

	const workers = 25
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := l.ReserveCredit("cust-1", fmt.Sprintf("order-%d", n), 1000)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if err != domain.ErrInsufficientCredit {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 10 {
		t.Errorf("succeeded = %d reservations, want exactly 10", succeeded)
	}

	acc := mustAccount(t, l, "cust-1")
	if acc.UsedCredit != 10000 || acc.AvailableCredit != 0 {
		t.Errorf("used/available = %d/%d, want 10000/0", acc.UsedCredit, acc.AvailableCredit)
	}
}

func TestConcurrentPaymentsAndReservations_BalanceConsistent(t *testing.T) {
	l, _ := newTestLedger(t)
	grantCredit(t, l, "cust-1", 1000000)

	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			l.ReserveCredit("cust-1", fmt.Sprintf("order-%d", n), 500)
		}(i)
		go func(n int) {
			defer wg.Done()
			l.RecordPayment("cust-1", fmt.Sprintf("pay-%d", n), 500)
		}(i)
	}
	wg.Wait()

	acc := mustAccount(t, l, "cust-1")
	if acc.UsedCredit < 0 {
		t.Errorf("UsedCredit = %d, must never be negative", acc.UsedCredit)
	}
	if acc.AvailableCredit != acc.CreditLimit-acc.UsedCredit {
		t.Errorf("available %d != limit %d - used %d", acc.AvailableCredit, acc.CreditLimit, acc.UsedCredit)
	}

	// Used credit must equal the sum of open remainders.
	open, err := l.OutstandingInvoices("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	var sum int64
	for _, inv := range open {
		if inv.RemainingAmount() < 0 || inv.RemainingAmount() > inv.Amount {
			t.Errorf("invoice %s remaining %d out of [0, %d]", inv.OrderID, inv.RemainingAmount(), inv.Amount)
		}
		sum += inv.RemainingAmount()
	}
	if sum != acc.UsedCredit {
		t.Errorf("sum of open remainders %d != UsedCredit %d", sum, acc.UsedCredit)
	}
}
