package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Prometheus Metrics ─────────────────────────────────────────────────────

// OrderDecisions counts affordability checks by outcome.
var OrderDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "creditledger",
	Subsystem: "orders",
	Name:      "decisions_total",
	Help:      "Affordability check outcomes (allowed, or the deny reason).",
}, []string{"outcome"})

// Reservations counts credit reservations by outcome.
var Reservations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "creditledger",
	Subsystem: "orders",
	Name:      "reservations_total",
	Help:      "Credit reservation attempts by outcome.",
}, []string{"outcome"})

// Releases counts released reservations.
var Releases = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "creditledger",
	Subsystem: "orders",
	Name:      "releases_total",
	Help:      "Reservations released before payment.",
})

// PaymentsRecorded counts recorded payments.
var PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "creditledger",
	Subsystem: "payments",
	Name:      "recorded_total",
	Help:      "Payments recorded against the ledger.",
})

// PaymentAmountApplied sums the minor units actually applied to invoices.
var PaymentAmountApplied = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "creditledger",
	Subsystem: "payments",
	Name:      "applied_amount_total",
	Help:      "Total amount (minor units) applied to open invoices.",
})

// SweepBlocked counts accounts blocked by the overdue sweep.
var SweepBlocked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "creditledger",
	Subsystem: "sweep",
	Name:      "accounts_blocked_total",
	Help:      "Accounts transitioned to blocked by the overdue sweep.",
})
