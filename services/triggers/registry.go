package triggers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gearshare/models"
	"gearshare/services/dedup"

	"go.uber.org/zap"
)

// Handler runs one trigger for a decoded event payload. A returned error is
// an invocation failure the platform may retry.
type Handler func(ctx context.Context, payload json.RawMessage) (models.Outcome, error)

// StorageHandler adapts an object-storage handler.
func StorageHandler(fn func(context.Context, models.StorageObjectEvent) (models.Outcome, error)) Handler {
	return func(ctx context.Context, payload json.RawMessage) (models.Outcome, error) {
		var ev models.StorageObjectEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return models.Outcome{}, malformedPayload("storage event: %v", err)
		}
		return fn(ctx, ev)
	}
}

// DatabaseHandler adapts a realtime-database handler.
func DatabaseHandler(fn func(context.Context, models.DatabaseEvent) (models.Outcome, error)) Handler {
	return func(ctx context.Context, payload json.RawMessage) (models.Outcome, error) {
		var ev models.DatabaseEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return models.Outcome{}, malformedPayload("database event: %v", err)
		}
		if ev.Path == "" {
			return models.Outcome{}, malformedPayload("database event has no path")
		}
		return fn(ctx, ev)
	}
}

// Registry routes deliveries to named triggers.
type Registry struct {
	handlers map[string]Handler
	ledger   dedup.Ledger
	metrics  *Metrics
	logger   *zap.Logger
}

type Option func(*Registry)

// WithLedger skips deliveries the ledger has already seen.
func WithLedger(l dedup.Ledger) Option {
	return func(r *Registry) { r.ledger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func NewRegistry(logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{handlers: make(map[string]Handler), logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trigger. Registering a name twice is a programming error.
func (r *Registry) Register(name string, h Handler) {
	if _, dup := r.handlers[name]; dup {
		panic(fmt.Sprintf("triggers: %q registered twice", name))
	}
	r.handlers[name] = h
}

// Names lists registered triggers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Invoke runs trigger name for one delivery.
func (r *Registry) Invoke(ctx context.Context, name string, d Delivery) (models.Outcome, error) {
	h, ok := r.handlers[name]
	if !ok {
		return models.Outcome{}, unknownTrigger(name)
	}
	log := r.logger.With(zap.String("trigger", name), zap.String("eventId", d.ID))
	start := time.Now()

	key := name + ":" + d.ID
	if r.ledger != nil {
		first, err := r.ledger.Claim(ctx, key)
		if err != nil {
			// The ledger is an optimisation; run the trigger anyway.
			log.Warn("Delivery ledger unavailable", zap.Error(err))
		} else if !first {
			log.Info("Duplicate delivery skipped")
			out := models.Skipped(name, "duplicate delivery")
			r.metrics.observe(name, string(out.Status), time.Since(start))
			return out, nil
		}
	}

	out, err := h(ctx, d.Data)
	elapsed := time.Since(start)
	if err != nil {
		if r.ledger != nil {
			if rerr := r.ledger.Release(ctx, key); rerr != nil {
				log.Warn("Failed to release delivery", zap.Error(rerr))
			}
		}
		r.metrics.observe(name, statusFailed, elapsed)
		log.Error("Trigger failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return out, err
	}

	if out.Trigger == "" {
		out.Trigger = name
	}
	r.metrics.observe(name, string(out.Status), elapsed)
	fields := []zap.Field{zap.String("status", string(out.Status)), zap.Duration("elapsed", elapsed)}
	if out.Reason != "" {
		fields = append(fields, zap.String("reason", out.Reason))
	}
	if out.Status == models.OutcomeDegraded {
		log.Warn("Trigger finished with swallowed errors", append(fields, zap.Strings("errors", out.ErrorMessages()))...)
	} else {
		log.Info("Trigger finished", fields...)
	}
	return out, nil
}
