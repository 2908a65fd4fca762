package daemon

import (
	"context"
	"log"
	"time"

	"github.com/tradecore/creditledger/internal/ledger"
)

// ─── Overdue Sweeper ────────────────────────────────────────────────────────

// Sweeper runs the overdue check on a fixed interval. It is the in-process
// stand-in for the external scheduler collaborator; downstream systems read
// the blocked-customer list from the log or poll account state.
type Sweeper struct {
	ledger   *ledger.Ledger
	interval time.Duration
	log      *log.Logger

	// onBlocked, when set, receives the newly blocked customers after each
	// run. Used by embedders that notify downstream systems.
	onBlocked func([]string)
}

// NewSweeper creates a sweeper over the given ledger.
func NewSweeper(l *ledger.Ledger, interval time.Duration, logger *log.Logger) *Sweeper {
	return &Sweeper{ledger: l, interval: interval, log: logger}
}

// OnBlocked registers a callback for newly blocked customers.
func (s *Sweeper) OnBlocked(fn func([]string)) { s.onBlocked = fn }

// Run executes the sweep loop until the context is cancelled. One sweep runs
// immediately on start so a restarted daemon does not wait a full interval
// with stale overdue state.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	blocked, err := s.ledger.CheckOverdueAccounts()
	if err != nil {
		s.log.Printf("overdue sweep failed: %v", err)
		return
	}
	if len(blocked) > 0 {
		s.log.Printf("overdue sweep blocked %d account(s): %v", len(blocked), blocked)
		if s.onBlocked != nil {
			s.onBlocked(blocked)
		}
	}
}
