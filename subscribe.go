package main

import (
	"context"
	"fmt"
	"time"

	"gearshare/config"
	"gearshare/utils"
	"gearshare/worker"

	"cloud.google.com/go/pubsub"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSubscribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe",
		Short: "Run triggers from Pub/Sub pull subscriptions",
		Long:  "Pull events from the PUBSUB_SUB_* subscriptions and run the matching trigger for each message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return subscribe(cmd.Context())
		},
	}
}

func subscribe(ctx context.Context) error {
	logger := utils.GetLogger()
	cfg := config.AppConfig
	ctx, stop := signalContext(ctx)
	defer stop()

	subs := cfg.Subscriptions()
	if len(subs) == 0 {
		return fmt.Errorf("subscribe: no PUBSUB_SUB_* subscriptions configured")
	}
	projectID := firstNonEmpty(cfg.PubSubProjectID, cfg.FirebaseProjectID)
	if projectID == "" {
		return fmt.Errorf("subscribe: PUBSUB_PROJECT_ID is required")
	}

	a, err := buildApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	utils.StartHealthMonitor(ctx, a.probes, time.Minute)

	client, err := pubsub.NewClient(ctx, projectID, utils.ClientOptions()...)
	if err != nil {
		return fmt.Errorf("subscribe: failed to create pubsub client: %w", err)
	}
	defer client.Close()

	logger.Info("Starting subscribers", zap.Int("subscriptions", len(subs)))
	sub := worker.NewSubscriber(client, a.registry, subs, cfg.PubSubMaxOutstanding, logger.Named("worker"))
	return sub.Run(ctx)
}
