package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tradecore/creditledger/internal/api"
	"github.com/tradecore/creditledger/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger API server and periodic overdue sweep",
	Long: `Start the HTTP API used by the storefront checkout, the payment gateway
callback, and the admin panel. The overdue sweep runs in the background on the
configured interval (daily by default).`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	l, closeStore, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sweep.Enabled {
		sweeper := daemon.NewSweeper(l, cfg.Sweep.SweepInterval(), logger)
		go sweeper.Run(ctx)
	}

	server := api.NewServer(l)
	if cfg.API.Metrics {
		server.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: server.Handler(),
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	logger.Printf("listening on %s", cfg.API.Addr())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
