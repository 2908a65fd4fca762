// Package memstore provides map-backed implementations of the ledger store
// interfaces. Used by tests and by embedders that do not need durability.
package memstore

import (
	"sort"
	"sync"

	"github.com/tradecore/creditledger/internal/domain"
)

// ─── Account Store ──────────────────────────────────────────────────────────

// AccountStore keeps accounts in a map keyed by customer ID.
// Thread-safe via RWMutex; values are copied on the way in and out so callers
// can never mutate shared state behind the store's back.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.CreditAccount
}

// NewAccountStore creates an empty in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]domain.CreditAccount)}
}

// GetAccount returns a copy of the account or domain.ErrAccountNotFound.
func (s *AccountStore) GetAccount(customerID string) (*domain.CreditAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[customerID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &acc, nil
}

// PutAccount inserts or replaces an account.
func (s *AccountStore) PutAccount(acc *domain.CreditAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.CustomerID] = *acc
	return nil
}

// ListAccounts returns all accounts, sorted by customer ID for deterministic
// iteration.
func (s *AccountStore) ListAccounts() ([]*domain.CreditAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.CreditAccount, 0, len(s.accounts))
	for _, acc := range s.accounts {
		a := acc
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// ─── Invoice Store ──────────────────────────────────────────────────────────

// InvoiceStore keeps invoices per customer in insertion order.
type InvoiceStore struct {
	mu      sync.RWMutex
	byCust  map[string][]domain.Invoice
	byOrder map[string]int // customerID+"\x00"+orderID → index into byCust slice
}

// NewInvoiceStore creates an empty in-memory invoice store.
func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{
		byCust:  make(map[string][]domain.Invoice),
		byOrder: make(map[string]int),
	}
}

func orderKey(customerID, orderID string) string { return customerID + "\x00" + orderID }

// PutInvoice inserts a new invoice or replaces the existing one for the same
// customer and order.
func (s *InvoiceStore) PutInvoice(inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := orderKey(inv.CustomerID, inv.OrderID)
	if idx, ok := s.byOrder[key]; ok {
		s.byCust[inv.CustomerID][idx] = *inv
		return nil
	}
	s.byCust[inv.CustomerID] = append(s.byCust[inv.CustomerID], *inv)
	s.byOrder[key] = len(s.byCust[inv.CustomerID]) - 1
	return nil
}

// GetInvoiceByOrder returns a copy of the invoice for the given order.
func (s *InvoiceStore) GetInvoiceByOrder(customerID, orderID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byOrder[orderKey(customerID, orderID)]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	inv := s.byCust[customerID][idx]
	return &inv, nil
}

// ListInvoices returns the customer's invoices ascending by creation time.
func (s *InvoiceStore) ListInvoices(customerID string) ([]*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invs := s.byCust[customerID]
	out := make([]*domain.Invoice, 0, len(invs))
	for _, inv := range invs {
		i := inv
		out = append(out, &i)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CustomersWithOpenInvoices returns customer IDs that carry any open invoice.
func (s *InvoiceStore) CustomersWithOpenInvoices() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for customerID, invs := range s.byCust {
		for _, inv := range invs {
			if inv.Open() {
				out = append(out, customerID)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// ─── Transaction Store ──────────────────────────────────────────────────────

// TransactionStore keeps the append-only history per customer.
type TransactionStore struct {
	mu     sync.RWMutex
	byCust map[string][]domain.Transaction
}

// NewTransactionStore creates an empty in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{byCust: make(map[string][]domain.Transaction)}
}

// AppendTransaction appends an entry to the customer's history.
func (s *TransactionStore) AppendTransaction(tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCust[tx.CustomerID] = append(s.byCust[tx.CustomerID], *tx)
	return nil
}

// ListTransactions returns the customer's history newest-first.
func (s *TransactionStore) ListTransactions(customerID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := s.byCust[customerID]
	out := make([]*domain.Transaction, 0, len(txs))
	// Stored in append order; reverse for newest-first.
	for i := len(txs) - 1; i >= 0; i-- {
		t := txs[i]
		out = append(out, &t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
