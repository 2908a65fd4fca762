// Package sqlite provides durable storage for the credit ledger using a
// pure-Go SQLite driver. It implements the domain store interfaces over three
// tables: credit_accounts, invoices, and the append-only transactions log.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection. It implements domain.AccountStore,
// domain.InvoiceStore, and domain.TransactionStore.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path and applies migrations.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// Single writer: SQLite serializes writes anyway, and one connection
	// avoids SQLITE_BUSY under concurrent per-customer operations.
	conn.SetMaxOpenConns(1)

	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

// migrate applies the schema. Each string is a single SQL statement (SQLite
// executes one at a time).
func (db *DB) migrate() error {
	for _, stmt := range migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func migrations() []string {
	return []string{
		// One credit account per customer
		`CREATE TABLE IF NOT EXISTS credit_accounts (
			customer_id       TEXT PRIMARY KEY,
			credit_limit      INTEGER NOT NULL DEFAULT 0,
			used_credit       INTEGER NOT NULL DEFAULT 0,
			available_credit  INTEGER NOT NULL DEFAULT 0,
			payment_term_days INTEGER NOT NULL DEFAULT 14,
			overdue_days      INTEGER NOT NULL DEFAULT 0,
			is_blocked        INTEGER NOT NULL DEFAULT 1,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		)`,

		// One invoice per reservation; an order reserves at most once
		`CREATE TABLE IF NOT EXISTS invoices (
			id          TEXT PRIMARY KEY,
			number      TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			order_id    TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			paid_amount INTEGER NOT NULL DEFAULT 0,
			due_date    TEXT NOT NULL,
			voided      INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			UNIQUE(customer_id, order_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices(customer_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_open ON invoices(voided, paid_amount)`,

		// Append-only transaction history
		`CREATE TABLE IF NOT EXISTS transactions (
			id          TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			type        TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			order_id    TEXT NOT NULL DEFAULT '',
			payment_id  TEXT NOT NULL DEFAULT '',
			invoice_id  TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id, created_at)`,
	}
}
