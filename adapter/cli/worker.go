package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caniken03/vioconcierge/pkg/config"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background worker",
	Long: `Runs the scheduled maintenance jobs: the request expiry sweep, the
response-token eviction sweep, the follow-up reminder sweep, and the outbox
relay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		container, err := buildContainer(ctx, cfg)
		if err != nil {
			return err
		}
		defer container.Close()

		if err := container.OutboxProcessor.Start(ctx); err != nil {
			return fmt.Errorf("start outbox processor: %w", err)
		}

		scheduler := cron.New()
		_, err = scheduler.AddFunc(cfg.ExpirySweepSpec, func() {
			if _, err := container.ExpirySweeper.ProcessExpiredRequests(ctx); err != nil {
				container.Logger.Error("expiry sweep failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule expiry sweep: %w", err)
		}
		_, err = scheduler.AddFunc(cfg.TokenSweepSpec, func() {
			if _, err := container.TokenService.EvictExpired(ctx); err != nil {
				container.Logger.Error("token sweep failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule token sweep: %w", err)
		}
		_, err = scheduler.AddFunc(cfg.ReminderSweepSpec, func() {
			if _, err := container.ReminderSweeper.ProcessDueReminders(ctx); err != nil {
				container.Logger.Error("reminder sweep failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule reminder sweep: %w", err)
		}

		scheduler.Start()
		container.Logger.Info("worker started",
			"expiry_sweep", cfg.ExpirySweepSpec,
			"token_sweep", cfg.TokenSweepSpec,
			"reminder_sweep", cfg.ReminderSweepSpec,
		)

		<-ctx.Done()

		stopCtx := scheduler.Stop()
		<-stopCtx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
