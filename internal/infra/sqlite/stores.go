package sqlite

import (
	"database/sql"
	"time"

	"github.com/tradecore/creditledger/internal/domain"
)

// Timestamps are stored as RFC 3339 text with nanosecond precision so that
// lexical ordering matches chronological ordering.
const timeLayout = time.RFC3339Nano

// ─── Account Operations ─────────────────────────────────────────────────────

// GetAccount retrieves an account by customer ID.
func (db *DB) GetAccount(customerID string) (*domain.CreditAccount, error) {
	var (
		acc        domain.CreditAccount
		blockedInt int
		createdStr string
		updatedStr string
	)
	err := db.db.QueryRow(`
		SELECT customer_id, credit_limit, used_credit, available_credit,
		       payment_term_days, overdue_days, is_blocked, created_at, updated_at
		FROM credit_accounts WHERE customer_id = ?
	`, customerID).Scan(&acc.CustomerID, &acc.CreditLimit, &acc.UsedCredit, &acc.AvailableCredit,
		&acc.PaymentTermDays, &acc.OverdueDays, &blockedInt, &createdStr, &updatedStr)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	acc.Blocked = blockedInt == 1
	acc.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	acc.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
	return &acc, nil
}

// PutAccount inserts or replaces an account.
func (db *DB) PutAccount(acc *domain.CreditAccount) error {
	blockedInt := 0
	if acc.Blocked {
		blockedInt = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO credit_accounts (customer_id, credit_limit, used_credit, available_credit,
			payment_term_days, overdue_days, is_blocked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			credit_limit      = excluded.credit_limit,
			used_credit       = excluded.used_credit,
			available_credit  = excluded.available_credit,
			payment_term_days = excluded.payment_term_days,
			overdue_days      = excluded.overdue_days,
			is_blocked        = excluded.is_blocked,
			updated_at        = excluded.updated_at
	`, acc.CustomerID, acc.CreditLimit, acc.UsedCredit, acc.AvailableCredit,
		acc.PaymentTermDays, acc.OverdueDays, blockedInt,
		acc.CreatedAt.Format(timeLayout), acc.UpdatedAt.Format(timeLayout))
	return err
}

// ListAccounts returns all accounts ordered by customer ID.
func (db *DB) ListAccounts() ([]*domain.CreditAccount, error) {
	rows, err := db.db.Query(`
		SELECT customer_id, credit_limit, used_credit, available_credit,
		       payment_term_days, overdue_days, is_blocked, created_at, updated_at
		FROM credit_accounts ORDER BY customer_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CreditAccount
	for rows.Next() {
		var (
			acc        domain.CreditAccount
			blockedInt int
			createdStr string
			updatedStr string
		)
		if err := rows.Scan(&acc.CustomerID, &acc.CreditLimit, &acc.UsedCredit, &acc.AvailableCredit,
			&acc.PaymentTermDays, &acc.OverdueDays, &blockedInt, &createdStr, &updatedStr); err != nil {
			return nil, err
		}
		acc.Blocked = blockedInt == 1
		acc.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		acc.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
		out = append(out, &acc)
	}
	return out, rows.Err()
}

// ─── Invoice Operations ─────────────────────────────────────────────────────

// PutInvoice inserts a new invoice or replaces the existing one for the same
// customer and order.
func (db *DB) PutInvoice(inv *domain.Invoice) error {
	voidedInt := 0
	if inv.Voided {
		voidedInt = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO invoices (id, number, customer_id, order_id, amount, paid_amount,
			due_date, voided, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id, order_id) DO UPDATE SET
			paid_amount = excluded.paid_amount,
			voided      = excluded.voided,
			updated_at  = excluded.updated_at
	`, inv.ID, inv.Number, inv.CustomerID, inv.OrderID, inv.Amount, inv.PaidAmount,
		inv.DueDate.Format(timeLayout), voidedInt,
		inv.CreatedAt.Format(timeLayout), inv.UpdatedAt.Format(timeLayout))
	return err
}

// GetInvoiceByOrder retrieves the invoice for a customer's order.
func (db *DB) GetInvoiceByOrder(customerID, orderID string) (*domain.Invoice, error) {
	row := db.db.QueryRow(`
		SELECT id, number, customer_id, order_id, amount, paid_amount,
		       due_date, voided, created_at, updated_at
		FROM invoices WHERE customer_id = ? AND order_id = ?
	`, customerID, orderID)

	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, err
}

// ListInvoices returns a customer's invoices ascending by creation time,
// insertion order breaking ties — the order FIFO allocation walks.
func (db *DB) ListInvoices(customerID string) ([]*domain.Invoice, error) {
	rows, err := db.db.Query(`
		SELECT id, number, customer_id, order_id, amount, paid_amount,
		       due_date, voided, created_at, updated_at
		FROM invoices WHERE customer_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// CustomersWithOpenInvoices returns customer IDs carrying unpaid, unvoided
// invoices.
func (db *DB) CustomersWithOpenInvoices() ([]string, error) {
	rows, err := db.db.Query(`
		SELECT DISTINCT customer_id FROM invoices
		WHERE voided = 0 AND paid_amount < amount
		ORDER BY customer_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(s scanner) (*domain.Invoice, error) {
	var (
		inv        domain.Invoice
		voidedInt  int
		dueStr     string
		createdStr string
		updatedStr string
	)
	if err := s.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.OrderID, &inv.Amount,
		&inv.PaidAmount, &dueStr, &voidedInt, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	inv.Voided = voidedInt == 1
	inv.DueDate, _ = time.Parse(timeLayout, dueStr)
	inv.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	inv.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
	return &inv, nil
}

// ─── Transaction Operations ─────────────────────────────────────────────────

// AppendTransaction appends a history entry. Entries are immutable; there is
// no update path.
func (db *DB) AppendTransaction(tx *domain.Transaction) error {
	_, err := db.db.Exec(`
		INSERT INTO transactions (id, customer_id, type, amount, description,
			order_id, payment_id, invoice_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tx.ID, tx.CustomerID, string(tx.Type), tx.Amount, tx.Description,
		tx.OrderID, tx.PaymentID, tx.InvoiceID, tx.CreatedAt.Format(timeLayout))
	return err
}

// ListTransactions returns a customer's history newest-first.
func (db *DB) ListTransactions(customerID string) ([]*domain.Transaction, error) {
	rows, err := db.db.Query(`
		SELECT id, customer_id, type, amount, description,
		       order_id, payment_id, invoice_id, created_at
		FROM transactions WHERE customer_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		var (
			tx         domain.Transaction
			typeStr    string
			createdStr string
		)
		if err := rows.Scan(&tx.ID, &tx.CustomerID, &typeStr, &tx.Amount, &tx.Description,
			&tx.OrderID, &tx.PaymentID, &tx.InvoiceID, &createdStr); err != nil {
			return nil, err
		}
		tx.Type = domain.TransactionType(typeStr)
		tx.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		out = append(out, &tx)
	}
	return out, rows.Err()
}
