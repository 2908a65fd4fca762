// Package cli implements the creditledger command line interface.
package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tradecore/creditledger/internal/daemon"
	"github.com/tradecore/creditledger/internal/domain"
	"github.com/tradecore/creditledger/internal/infra/memstore"
	"github.com/tradecore/creditledger/internal/infra/sqlite"
	"github.com/tradecore/creditledger/internal/ledger"
)

var rootCmd = &cobra.Command{
	Use:   "creditledger",
	Short: "B2B credit and invoice ledger",
	Long: `creditledger tracks per-customer credit limits, in-flight reservations,
outstanding invoices, payment application (FIFO, oldest debt first), and
overdue-driven account blocking for the B2B portal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config.toml (defaults apply when absent)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── Shared Setup ───────────────────────────────────────────────────────────

// openLedger builds the ledger service from config: sqlite stores when a
// store path is configured, in-memory stores otherwise. The returned closer
// is a no-op for in-memory stores.
func openLedger(cfg daemon.Config) (*ledger.Ledger, func() error, error) {
	if cfg.Store.Path == "" {
		l := ledger.New(memstore.NewAccountStore(), memstore.NewInvoiceStore(), memstore.NewTransactionStore())
		return l, func() error { return nil }, nil
	}

	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	return ledger.New(db, db, db), db.Close, nil
}

func loadConfig(cmd *cobra.Command) (daemon.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return daemon.Load(path)
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "creditledger: ", log.LstdFlags)
}

// ─── Account Inspection ─────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(accountCmd)
}

var accountCmd = &cobra.Command{
	Use:   "account CUSTOMER_ID",
	Short: "Show a customer's credit account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccount,
}

func runAccount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l, closeStore, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	acc, created, err := l.GetAccount(args[0])
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(os.Stdout, "Account %s created (fail-closed default)\n", acc.CustomerID)
	}
	printAccount(acc)
	return nil
}

func printAccount(acc *domain.CreditAccount) {
	fmt.Fprintf(os.Stdout, "Customer:         %s\n", acc.CustomerID)
	fmt.Fprintf(os.Stdout, "Credit limit:     %d\n", acc.CreditLimit)
	fmt.Fprintf(os.Stdout, "Used credit:      %d\n", acc.UsedCredit)
	fmt.Fprintf(os.Stdout, "Available credit: %d\n", acc.AvailableCredit)
	fmt.Fprintf(os.Stdout, "Payment term:     %d days\n", acc.PaymentTermDays)
	fmt.Fprintf(os.Stdout, "Overdue days:     %d\n", acc.OverdueDays)
	fmt.Fprintf(os.Stdout, "Blocked:          %v\n", acc.Blocked)
}
