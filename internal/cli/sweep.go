package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the overdue check once and exit",
	Long: `Sweep all accounts with open invoices, refresh their overdue counters, and
block any account with an invoice more than 7 days past due. Prints the
customers blocked by this run. Intended for external schedulers (cron).`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l, closeStore, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	blocked, err := l.CheckOverdueAccounts()
	if err != nil {
		return err
	}

	if len(blocked) == 0 {
		fmt.Fprintln(os.Stdout, "No accounts blocked.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "Blocked %d account(s):\n", len(blocked))
	for _, customerID := range blocked {
		fmt.Fprintf(os.Stdout, "  • %s\n", customerID)
	}
	return nil
}
