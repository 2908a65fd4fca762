package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradecore/creditledger/internal/domain"
)

// ─── Account Handlers ───────────────────────────────────────────────────────

type accountResponse struct {
	Account *domain.CreditAccount `json:"account"`
	Created bool                  `json:"created"`
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	acc, created, err := s.ledger.GetAccount(customerID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{Account: acc, Created: created})
}

type setLimitRequest struct {
	NewLimit int64 `json:"new_limit"`
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	var req setLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	acc, err := s.ledger.IncreaseCreditLimit(customerID, req.NewLimit)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	acc, err := s.ledger.UnblockAccount(customerID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// ─── Reporting Handlers ─────────────────────────────────────────────────────

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	var (
		invoices []*domain.Invoice
		err      error
	)
	if r.URL.Query().Get("outstanding") == "1" {
		invoices, err = s.ledger.OutstandingInvoices(customerID)
	} else {
		invoices, err = s.ledger.AllInvoices(customerID)
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if invoices == nil {
		invoices = []*domain.Invoice{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invoices": invoices})
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	txs, err := s.ledger.PaymentHistory(customerID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// ─── Checkout Handlers ──────────────────────────────────────────────────────

type checkOrderRequest struct {
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
}

func (s *Server) handleCheckOrder(w http.ResponseWriter, r *http.Request) {
	var req checkOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	decision, err := s.ledger.CanPlaceOrder(req.CustomerID, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type reserveRequest struct {
	CustomerID string `json:"customer_id"`
	OrderID    string `json:"order_id"`
	Amount     int64  `json:"amount"`
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	inv, err := s.ledger.ReserveCredit(req.CustomerID, req.OrderID, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

type releaseRequest struct {
	CustomerID string `json:"customer_id"`
	OrderID    string `json:"order_id"`
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	inv, err := s.ledger.ReleaseCredit(req.CustomerID, req.OrderID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// ─── Payment Handlers ───────────────────────────────────────────────────────

type recordPaymentRequest struct {
	CustomerID string `json:"customer_id"`
	PaymentID  string `json:"payment_id"`
	Amount     int64  `json:"amount"`
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	receipt, err := s.ledger.RecordPayment(req.CustomerID, req.PaymentID, req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ─── Sweep Handler ──────────────────────────────────────────────────────────

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	blocked, err := s.ledger.CheckOverdueAccounts()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if blocked == nil {
		blocked = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"blocked": blocked})
}
