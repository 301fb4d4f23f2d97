package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers such as the finance hand-off pool.`,
}

var financeWorkerCmd = &cobra.Command{
	Use:   "finance",
	Short: "Start the finance hand-off worker pool",
	Long: `Start the finance worker pool. It delivers every request waiting in the
FORWARDED state to the finance webhook, then keeps re-scanning on the
configured interval until it receives SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startFinanceWorker(cmd.Context())
	},
}

var (
	maxWorkers     int
	jobQueueSize   int
	apiKey         string
	webhookURL     string
	resendInterval time.Duration
)

func startFinanceWorker(ctx context.Context) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	cfg.Finance.WebhookURL = getStringFlag(webhookURL, cfg.Finance.WebhookURL)
	cfg.Finance.APIKey = getStringFlag(apiKey, cfg.Finance.APIKey)
	cfg.Finance.MaxWorkers = getIntFlag(maxWorkers, cfg.Finance.MaxWorkers)
	cfg.Finance.JobQueueSize = getIntFlag(jobQueueSize, cfg.Finance.JobQueueSize)
	if cfg.Finance.WebhookURL == "" {
		return errors.New("finance webhook url is required, set finance.webhook_url or --webhook-url")
	}

	app, err := newApp(ctx, cfg, appOptions{withDispatcher: true})
	if err != nil {
		return err
	}
	lg := app.Logger

	lg.Info("starting finance worker",
		"max_workers", cfg.Finance.MaxWorkers,
		"job_queue_size", cfg.Finance.JobQueueSize,
		"webhook_url", cfg.Finance.WebhookURL,
		"interval", resendInterval)

	scan := func() {
		queued, err := app.Dispatcher.Resend(ctx)
		if err != nil {
			lg.Error("failed to queue forwarded requests", "error", err, "queued", queued)
			return
		}
		lg.Info("forwarded requests queued", "count", queued)
	}
	scan()

	var tick <-chan time.Time
	if resendInterval > 0 {
		ticker := time.NewTicker(resendInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	lg.Info("finance worker is running. Press Ctrl+C to stop.")

wait:
	for {
		select {
		case <-tick:
			scan()
		case sig := <-sigChan:
			lg.Info("received signal, shutting down finance worker", "signal", sig)
			break wait
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		app.Close()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("finance worker pool shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout reached: %w", shutdownCtx.Err())
	}
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	financeWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	financeWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	financeWorkerCmd.Flags().StringVar(&apiKey, "api-key", "", "Finance webhook API key (overrides config)")
	financeWorkerCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Finance webhook URL (overrides config)")
	financeWorkerCmd.Flags().DurationVar(&resendInterval, "interval", time.Minute, "Re-scan interval for forwarded requests, 0 disables")

	workerCmd.AddCommand(financeWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
