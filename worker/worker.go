package worker

import (
	"context"
	"fmt"

	"gearshare/models"
	"gearshare/services/triggers"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Invoker runs a trigger for one delivery; triggers.Registry implements it.
type Invoker interface {
	Invoke(ctx context.Context, name string, d triggers.Delivery) (models.Outcome, error)
}

// Subscriber pulls events from Pub/Sub subscriptions and hands each one to
// its trigger.
type Subscriber struct {
	client         *pubsub.Client
	invoker        Invoker
	subs           map[string]string
	maxOutstanding int
	logger         *zap.Logger
}

func NewSubscriber(client *pubsub.Client, invoker Invoker, subs map[string]string, maxOutstanding int, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{client: client, invoker: invoker, subs: subs, maxOutstanding: maxOutstanding, logger: logger}
}

// Run receives on every subscription until ctx is cancelled or one of them
// fails.
func (s *Subscriber) Run(ctx context.Context) error {
	if len(s.subs) == 0 {
		return fmt.Errorf("Subscriber.Run: no subscriptions configured")
	}
	g, gctx := errgroup.WithContext(ctx)
	for trigger, subID := range s.subs {
		g.Go(func() error {
			return s.receive(gctx, trigger, subID)
		})
	}
	return g.Wait()
}

func (s *Subscriber) receive(ctx context.Context, trigger, subID string) error {
	sub := s.client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("Subscriber.receive %s: %w", subID, err)
	}
	if !exists {
		return fmt.Errorf("Subscriber.receive: subscription %s does not exist", subID)
	}
	if s.maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = s.maxOutstanding
	}

	log := s.logger.With(zap.String("trigger", trigger), zap.String("subscription", subID))
	log.Info("[PubSub] Listening")
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if Process(ctx, s.invoker, log, trigger, msg.ID, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("Subscriber.receive %s: %w", subID, err)
	}
	log.Info("[PubSub] Stopped")
	return nil
}

// Process runs one pulled message and reports whether it should be acked.
// Invocation failures are nacked for redelivery; payloads that can never be
// handled are acked so they do not loop.
func Process(ctx context.Context, invoker Invoker, log *zap.Logger, trigger, id string, data []byte) bool {
	out, err := invoker.Invoke(ctx, trigger, triggers.NewDelivery(id, data))
	switch {
	case triggers.IsCode(err, triggers.CodeMalformedPayload), triggers.IsCode(err, triggers.CodeUnknownTrigger):
		log.Error("[PubSub] Dropping undeliverable message", zap.String("messageId", id), zap.Error(err))
		return true
	case err != nil:
		log.Warn("[PubSub] Invocation failed, message will be redelivered", zap.String("messageId", id), zap.Error(err))
		return false
	}
	log.Debug("[PubSub] Message handled", zap.String("messageId", id), zap.String("status", string(out.Status)))
	return true
}
