package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caniken03/vioconcierge/adapter/api"
	"github.com/caniken03/vioconcierge/internal/app"
	"github.com/caniken03/vioconcierge/pkg/config"
	"github.com/spf13/cobra"
)

var serveLocal bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the rescheduling API server",
	Long: `Starts the HTTP API together with the outbox relay. The API accepts
webhook triggers, operator commands and tokenized customer responses.`,
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

		requestsHandler := api.NewReschedulingHandler(
			container.CreateRequest,
			container.ProcessWorkflow,
			container.ConfirmReschedule,
			container.CancelRequest,
			container.RecordCallOutcome,
			container.RequestRepo,
			container.Logger,
		)
		responseHandler := api.NewResponseHandler(container.ProcessCustomerResponse, container.Logger)

		server := api.NewServer(api.ServerConfig{
			Addr:         cfg.APIAddr,
			ReadTimeout:  cfg.APIReadTimeout,
			WriteTimeout: cfg.APIWriteTimeout,
			IdleTimeout:  60 * time.Second,
		}, requestsHandler, responseHandler, container.Logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			return err
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

// buildContainer picks the production or in-memory wiring. Local mode runs
// everything in process, with no external services.
func buildContainer(ctx context.Context, cfg *config.Config) (*app.Container, error) {
	if serveLocal || cfg.AppEnv == "local" {
		return app.NewLocalContainer(cfg, logger)
	}
	return app.NewContainer(ctx, cfg, logger)
}

func init() {
	serveCmd.Flags().BoolVar(&serveLocal, "local", false, "run with in-memory storage, no external services")
	rootCmd.AddCommand(serveCmd)
}
