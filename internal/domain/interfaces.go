package domain

// ─── Store Interfaces ───────────────────────────────────────────────────────
// These interfaces define the persistence boundary. Infrastructure implements
// them; the ledger service depends on them. All amounts a store returns must
// reflect the latest committed write — callers may never observe a stale
// Blocked flag or AvailableCredit.

// AccountStore persists credit accounts keyed by customer ID.
type AccountStore interface {
	GetAccount(customerID string) (*CreditAccount, error) // ErrAccountNotFound when absent
	PutAccount(account *CreditAccount) error
	ListAccounts() ([]*CreditAccount, error)
}

// InvoiceStore persists invoices. ListInvoices returns a customer's invoices
// sorted ascending by CreatedAt — the order FIFO payment allocation walks.
type InvoiceStore interface {
	PutInvoice(inv *Invoice) error
	GetInvoiceByOrder(customerID, orderID string) (*Invoice, error) // ErrInvoiceNotFound when absent
	ListInvoices(customerID string) ([]*Invoice, error)
	CustomersWithOpenInvoices() ([]string, error)
}

// TransactionStore persists the append-only transaction history.
// ListTransactions returns entries sorted descending by CreatedAt.
type TransactionStore interface {
	AppendTransaction(tx *Transaction) error
	ListTransactions(customerID string) ([]*Transaction, error)
}
