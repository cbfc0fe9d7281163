package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gearshare/config"
	"gearshare/handlers"
	"gearshare/middleware"
	"gearshare/routes"
	"gearshare/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve trigger endpoints over HTTP",
		Long:  "Accept Pub/Sub push deliveries and raw events on POST /triggers/:name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	logger := utils.GetLogger()
	ctx, stop := signalContext(ctx)
	defer stop()

	a, err := buildApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	utils.StartHealthMonitor(ctx, a.probes, time.Minute)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))

	routes.RegisterRoutes(router, &handlers.HandlerBundle{
		Triggers:          handlers.NewTriggerHandler(a.registry),
		MaxRequestsPerMin: config.AppConfig.MaxRequestsPerMin,
		MetricsHandler:    promhttp.Handler(),
	})

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		logger.Error("serve: server failed to start", zap.Error(err))
		return err
	case <-ctx.Done():
	}
	logger.Sugar().Info("serve: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("serve: server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Sugar().Info("serve: server stopped gracefully")
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
