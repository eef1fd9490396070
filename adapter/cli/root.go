// Package cli implements the vioconcierge command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caniken03/vioconcierge/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logger  *slog.Logger
)

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vioconcierge",
	Short: "VioConcierge - appointment rescheduling engine",
	Long: `VioConcierge automates appointment rescheduling for service businesses:
it takes reschedule requests from voice-agent webhooks or operators, finds
conflict-free slots, offers them to the customer over email, SMS or voice,
and books the confirmed time on the tenant's calendar.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
		info := commandContext{
			correlationID: uuid.New(),
			startedAt:     time.Now(),
		}
		ctx := observability.WithCorrelationID(cmd.Context(), info.correlationID.String())
		cmd.SetContext(context.WithValue(ctx, commandContextKey{}, info))
		logger.Info("command start",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
		)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		initLogger()
		info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
		if !ok {
			return
		}
		logger.Info("command end",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
			"duration_ms", time.Since(info.startedAt).Milliseconds(),
		)
	},
}

func initLogger() {
	if logger != nil {
		return
	}
	cfg := observability.DefaultLogConfig()
	if os.Getenv("APP_ENV") == "production" {
		cfg = observability.ProductionLogConfig()
	}
	if verbose {
		cfg.Level = observability.LogLevelDebug
	}
	cfg.ServiceVersion = Version
	logger = observability.NewLogger(cfg)
	slog.SetDefault(logger)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
