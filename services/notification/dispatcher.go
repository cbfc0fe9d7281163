package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gearshare/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// TriggerName is the name the dispatcher is registered under.
	TriggerName = "onEquipmentReserved"
	// ReservationPath is the database path the dispatcher listens on.
	ReservationPath = "/reservations/{reservationId}"
)

// Policy decides which reservation writes send a notification.
type Policy string

const (
	// PolicyCreate notifies only when the reservation did not exist before.
	PolicyCreate Policy = "create"
	// PolicyWrite notifies on every write that leaves a value behind.
	PolicyWrite Policy = "write"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyCreate:
		return PolicyCreate, nil
	case PolicyWrite:
		return PolicyWrite, nil
	}
	return "", fmt.Errorf("unknown notify policy %q", s)
}

// Directory is the record access the dispatcher needs; realtime.Repo
// implements it.
type Directory interface {
	TokenSet(ctx context.Context, userID string) (models.TokenSet, error)
	User(ctx context.Context, userID string) (*models.User, error)
	Equipment(ctx context.Context, equipmentID string) (*models.Equipment, error)
	RemoveToken(ctx context.Context, userID string, token models.DeviceToken) error
}

// Result extends the outcome with what happened to each token.
type Result struct {
	models.Outcome
	Sent     []string
	Removed  []string
	Failures map[string]error
}

// Dispatcher tells equipment owners about new reservation requests.
type Dispatcher struct {
	dir    Directory
	pusher Pusher
	policy Policy
	logger *zap.Logger
}

func NewDispatcher(dir Directory, pusher Pusher, policy Policy, logger *zap.Logger) *Dispatcher {
	if policy == "" {
		policy = PolicyCreate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{dir: dir, pusher: pusher, policy: policy, logger: logger}
}

// Handle reacts to one write on /reservations/{reservationId}. Lookup, push
// and cleanup failures are logged and recorded on the result; they never
// fail the invocation.
func (d *Dispatcher) Handle(ctx context.Context, ev models.DatabaseEvent) (Result, error) {
	res := Result{Outcome: models.Completed(TriggerName)}

	params, ok := models.MatchPath(ReservationPath, ev.Path)
	if !ok {
		return d.skip(res, "path is not a reservation"), nil
	}
	log := d.logger.With(zap.String("reservationId", params["reservationId"]))

	if !ev.AfterExists() {
		log.Info("Reservation removed")
		return d.skip(res, "reservation removed"), nil
	}
	if d.policy == PolicyCreate && ev.BeforeExists() {
		log.Info("Reservation updated, owner already notified")
		return d.skip(res, "reservation already existed"), nil
	}

	var reservation models.Reservation
	if err := ev.DecodeAfter(&reservation); err != nil {
		log.Warn("Malformed reservation", zap.Error(err))
		return d.skip(res, "malformed reservation"), nil
	}
	if reservation.OwnerID == "" || reservation.BorrowerID == "" || reservation.EquipmentID == "" {
		log.Warn("Reservation is missing an owner, borrower or equipment id")
		return d.skip(res, "incomplete reservation"), nil
	}
	log = log.With(zap.String("ownerId", reservation.OwnerID))

	var (
		tokens    models.TokenSet
		borrower  *models.User
		equipment *models.Equipment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tokens, err = d.dir.TokenSet(gctx, reservation.OwnerID)
		return err
	})
	g.Go(func() (err error) {
		borrower, err = d.dir.User(gctx, reservation.BorrowerID)
		return err
	})
	g.Go(func() (err error) {
		equipment, err = d.dir.Equipment(gctx, reservation.EquipmentID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("Notification error", zap.Error(err))
		res.Swallow(fmt.Errorf("lookup: %w", err))
		return res, nil
	}

	switch {
	case len(tokens) == 0:
		log.Info("There are no notification tokens to send to.")
		return d.skip(res, "no notification tokens"), nil
	case borrower == nil:
		log.Info("Borrower profile not found.")
		return d.skip(res, "borrower not found"), nil
	case equipment == nil:
		log.Info("Equipment not found.")
		return d.skip(res, "equipment not found"), nil
	}

	log.Info("Sending reservation notification", zap.Int("tokens", len(tokens)))
	msg := Message{
		Title: "Someone has requested a reservation!",
		Body:  fmt.Sprintf("%s wants to rent your %s!", borrower.DisplayName, equipment.Name),
		Data: map[string]string{
			"type":          "reservation_request",
			"reservationId": params["reservationId"],
			"equipmentId":   reservation.EquipmentID,
			"borrowerId":    reservation.BorrowerID,
		},
	}

	results, err := d.pusher.SendBatch(ctx, tokens.Tokens(), msg)
	if err != nil {
		log.Error("Notification error", zap.Error(err))
		res.Swallow(fmt.Errorf("send: %w", err))
	}

	d.cleanup(ctx, log, reservation.OwnerID, tokens, results, &res)
	return res, nil
}

// cleanup removes every token the provider reported as invalid or
// unregistered and waits for all removals.
func (d *Dispatcher) cleanup(ctx context.Context, log *zap.Logger, ownerID string, tokens models.TokenSet, results []SendResult, res *Result) {
	byToken := make(map[string]models.DeviceToken, len(tokens))
	for _, t := range tokens {
		byToken[t.Token] = t
	}

	var (
		g           errgroup.Group
		mu          sync.Mutex
		removeFails []error
	)
	for _, r := range results {
		if r.Err == nil {
			res.Sent = append(res.Sent, r.Token)
			continue
		}
		if res.Failures == nil {
			res.Failures = make(map[string]error)
		}
		res.Failures[r.Token] = r.Err
		log.Error("Failure sending notification", zap.String("token", maskToken(r.Token)), zap.Error(r.Err))

		if !IsStaleToken(r.Err) {
			res.Swallow(fmt.Errorf("token %s: %w", maskToken(r.Token), r.Err))
			continue
		}
		token, ok := byToken[r.Token]
		if !ok {
			continue
		}
		g.Go(func() error {
			err := d.dir.RemoveToken(ctx, ownerID, token)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				removeFails = append(removeFails, fmt.Errorf("remove token %s: %w", maskToken(token.Token), err))
				return nil
			}
			res.Removed = append(res.Removed, token.Token)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range removeFails {
		log.Error("Failed to remove stale token", zap.Error(err))
		res.Swallow(err)
	}
	if len(res.Removed) > 0 {
		log.Info("Removed stale notification tokens", zap.Int("count", len(res.Removed)))
	}
}

func (d *Dispatcher) skip(res Result, reason string) Result {
	res.Status = models.OutcomeSkipped
	res.Reason = reason
	return res
}
