package cli

import (
	"fmt"

	"github.com/caniken03/vioconcierge/pkg/config"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the maintenance sweeps once and exit",
	Long: `Expires unresolved rescheduling requests past the retention window,
evicts expired response tokens, and re-sends offers awaiting a customer
response past the reminder threshold. The worker runs the same sweeps on a
schedule; this command is the one-shot variant for cron-less deployments and
operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx := cmd.Context()
		container, err := buildContainer(ctx, cfg)
		if err != nil {
			return err
		}
		defer container.Close()

		expired, err := container.ExpirySweeper.ProcessExpiredRequests(ctx)
		if err != nil {
			return fmt.Errorf("expiry sweep: %w", err)
		}
		evicted, err := container.TokenService.EvictExpired(ctx)
		if err != nil {
			return fmt.Errorf("token sweep: %w", err)
		}
		reminded, err := container.ReminderSweeper.ProcessDueReminders(ctx)
		if err != nil {
			return fmt.Errorf("reminder sweep: %w", err)
		}

		fmt.Printf("expired %d requests, evicted %d tokens, sent %d reminders\n", expired, evicted, reminded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
