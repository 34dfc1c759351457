package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/api"
	"github.com/JakeFAU/laborsync/internal/trigger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline API with scheduled and event-driven triggers",
		Long: `Starts the HTTP API, fires the ingestion pipeline on the configured
schedule, and, when a Pub/Sub subscription is configured, runs the
analytics pipeline on every storage notification.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			apiServer := api.NewServer(svc.syncer, svc.ingestion, svc.analytics, svc.runs, cfg, logger.Named("api"))
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           apiServer.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			scheduler := trigger.NewScheduler(cfg.SchedulerInterval(), func(ctx context.Context) {
				svc.ingestion.Run(ctx)
			}, logger.Named("scheduler"))
			go func() {
				if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("scheduler error", zap.Error(err))
				}
			}()

			if svc.pubsub != nil && cfg.PubSub.SubscriptionName != "" {
				receiver := trigger.NewReceiver(
					svc.pubsub.Subscription(cfg.PubSub.SubscriptionName),
					func(ctx context.Context) { svc.analytics.Run(ctx) },
					logger.Named("receiver"),
				)
				go func() {
					if err := receiver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("receiver error", zap.Error(err))
						stop()
					}
				}()
			}

			go func() {
				logger.Info("http server started", zap.Int("port", cfg.Server.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", zap.Error(err))
					stop()
				}
			}()

			<-ctx.Done()
			logger.Info("shutdown initiated")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}
