package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"gearshare/database/repository/realtime"
	"gearshare/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePusher records batches and answers with canned per-token errors.
type fakePusher struct {
	mu       sync.Mutex
	calls    int
	tokens   [][]string
	messages []Message
	errs     map[string]error
	batchErr error
}

func (f *fakePusher) SendBatch(_ context.Context, tokens []string, msg Message) ([]SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tokens = append(f.tokens, append([]string(nil), tokens...))
	f.messages = append(f.messages, msg)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	results := make([]SendResult, 0, len(tokens))
	for _, tok := range tokens {
		results = append(results, SendResult{Token: tok, MessageID: "m-" + tok, Err: f.errs[tok]})
	}
	return results, nil
}

// failingStore wraps a store and fails reads or deletes of chosen paths.
type failingStore struct {
	realtime.Store
	getErr    map[string]error
	deleteErr map[string]error
}

func (s *failingStore) Get(ctx context.Context, path string, v interface{}) error {
	if err := s.getErr[path]; err != nil {
		return err
	}
	return s.Store.Get(ctx, path, v)
}

func (s *failingStore) Delete(ctx context.Context, path string) error {
	if err := s.deleteErr[path]; err != nil {
		return err
	}
	return s.Store.Delete(ctx, path)
}

func seededStore(t *testing.T) *realtime.MemoryStore {
	t.Helper()
	store := realtime.NewMemoryStore()
	require.NoError(t, store.LoadJSON([]byte(`{
		"users": {
			"owner": {
				"displayName": "Olive",
				"notificationTokens": {"tok-a": true, "tok-b": true, "-k1": "tok-c"}
			},
			"borrower": {"displayName": "Ben"},
			"lonely": {"displayName": "Lou"}
		},
		"equipment": {"eq1": {"name": "Kayak"}}
	}`)))
	return store
}

func reservationEvent(before, after interface{}) models.DatabaseEvent {
	ev := models.DatabaseEvent{Path: "/reservations/r1"}
	if before != nil {
		ev.Before, _ = json.Marshal(before)
	}
	if after != nil {
		ev.After, _ = json.Marshal(after)
	}
	return ev
}

var newReservation = models.Reservation{OwnerID: "owner", BorrowerID: "borrower", EquipmentID: "eq1"}

func TestDispatcherSendsOneBatchToEveryToken(t *testing.T) {
	pusher := &fakePusher{}
	d := NewDispatcher(realtime.NewRepo(seededStore(t)), pusher, PolicyCreate, nil)

	res, err := d.Handle(context.Background(), reservationEvent(nil, newReservation))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, res.Status)

	require.Equal(t, 1, pusher.calls)
	assert.ElementsMatch(t, []string{"tok-a", "tok-b", "tok-c"}, pusher.tokens[0])
	msg := pusher.messages[0]
	assert.Equal(t, "Someone has requested a reservation!", msg.Title)
	assert.Equal(t, "Ben wants to rent your Kayak!", msg.Body)
	assert.Equal(t, "r1", msg.Data["reservationId"])
	assert.Len(t, res.Sent, 3)
	assert.Empty(t, res.Removed)
}

func TestDispatcherRemovesStaleTokens(t *testing.T) {
	store := seededStore(t)
	pusher := &fakePusher{errs: map[string]error{
		"tok-b": ErrTokenUnregistered,
		"tok-c": ErrTokenInvalid,
	}}
	d := NewDispatcher(realtime.NewRepo(store), pusher, PolicyCreate, nil)

	res, err := d.Handle(context.Background(), reservationEvent(nil, newReservation))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, res.Status)
	assert.ElementsMatch(t, []string{"tok-b", "tok-c"}, res.Removed)

	assert.True(t, store.Exists("/users/owner/notificationTokens/tok-a"))
	assert.False(t, store.Exists("/users/owner/notificationTokens/tok-b"))
	assert.False(t, store.Exists("/users/owner/notificationTokens/-k1"))
}

func TestDispatcherKeepsTokensOnOtherErrors(t *testing.T) {
	store := seededStore(t)
	pusher := &fakePusher{errs: map[string]error{"tok-a": errors.New("quota exceeded")}}
	d := NewDispatcher(realtime.NewRepo(store), pusher, PolicyCreate, nil)

	res, err := d.Handle(context.Background(), reservationEvent(nil, newReservation))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDegraded, res.Status)
	assert.Len(t, res.Errors, 1)
	assert.Contains(t, res.Failures, "tok-a")
	assert.Empty(t, res.Removed)
	assert.True(t, store.Exists("/users/owner/notificationTokens/tok-a"))
}

func TestDispatcherSkips(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		event  models.DatabaseEvent
		reason string
	}{
		{
			name:   "deleted reservation",
			policy: PolicyCreate,
			event:  reservationEvent(newReservation, nil),
			reason: "reservation removed",
		},
		{
			name:   "update under create policy",
			policy: PolicyCreate,
			event:  reservationEvent(newReservation, newReservation),
			reason: "reservation already existed",
		},
		{
			name:   "owner without tokens",
			policy: PolicyCreate,
			event:  reservationEvent(nil, models.Reservation{OwnerID: "lonely", BorrowerID: "borrower", EquipmentID: "eq1"}),
			reason: "no notification tokens",
		},
		{
			name:   "unknown borrower",
			policy: PolicyCreate,
			event:  reservationEvent(nil, models.Reservation{OwnerID: "owner", BorrowerID: "ghost", EquipmentID: "eq1"}),
			reason: "borrower not found",
		},
		{
			name:   "unknown equipment",
			policy: PolicyCreate,
			event:  reservationEvent(nil, models.Reservation{OwnerID: "owner", BorrowerID: "borrower", EquipmentID: "gone"}),
			reason: "equipment not found",
		},
		{
			name:   "missing ids",
			policy: PolicyCreate,
			event:  reservationEvent(nil, map[string]string{"ownerId": "owner"}),
			reason: "incomplete reservation",
		},
		{
			name:   "wrong path",
			policy: PolicyCreate,
			event:  models.DatabaseEvent{Path: "/equipment/eq1", After: json.RawMessage(`{"name":"x"}`)},
			reason: "path is not a reservation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pusher := &fakePusher{}
			d := NewDispatcher(realtime.NewRepo(seededStore(t)), pusher, tt.policy, nil)

			res, err := d.Handle(context.Background(), tt.event)
			require.NoError(t, err)
			assert.Equal(t, models.OutcomeSkipped, res.Status)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Zero(t, pusher.calls)
		})
	}
}

func TestDispatcherWritePolicyNotifiesOnUpdate(t *testing.T) {
	pusher := &fakePusher{}
	d := NewDispatcher(realtime.NewRepo(seededStore(t)), pusher, PolicyWrite, nil)

	res, err := d.Handle(context.Background(), reservationEvent(newReservation, newReservation))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, res.Status)
	assert.Equal(t, 1, pusher.calls)
}

func TestDispatcherSwallowsExternalFailures(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		store := &failingStore{
			Store:  seededStore(t),
			getErr: map[string]error{"/equipment/eq1": errors.New("permission denied")},
		}
		pusher := &fakePusher{}
		d := NewDispatcher(realtime.NewRepo(store), pusher, PolicyCreate, nil)

		res, err := d.Handle(context.Background(), reservationEvent(nil, newReservation))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeDegraded, res.Status)
		assert.Zero(t, pusher.calls)
	})

	t.Run("batch send", func(t *testing.T) {
		pusher := &fakePusher{batchErr: errors.New("unavailable")}
		d := NewDispatcher(realtime.NewRepo(seededStore(t)), pusher, PolicyCreate, nil)

		res, err := d.Handle(context.Background(), reservationEvent(nil, newReservation))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeDegraded, res.Status)
		assert.ErrorContains(t, res.Err(), "unavailable")
	})

	t.Run("token removal", func(t *testing.T) {
		store := &failingStore{
			Store:     seededStore(t),
			deleteErr: map[string]error{"/users/owner/notificationTokens/tok-b": errors.New("offline")},
		}
		pusher := &fakePusher{errs: map[string]error{
			"tok-a": ErrTokenUnregistered,
			"tok-b": ErrTokenUnregistered,
		}}
		d := NewDispatcher(realtime.NewRepo(store), pusher, PolicyCreate, nil)

		res, err := d.Handle(context.Background(), reservationEvent(nil, newReservation))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeDegraded, res.Status)
		assert.Equal(t, []string{"tok-a"}, res.Removed)
		assert.Len(t, res.Errors, 1)
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyCreate, p)

	p, err = ParsePolicy(" WRITE ")
	require.NoError(t, err)
	assert.Equal(t, PolicyWrite, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}

func TestIsStaleToken(t *testing.T) {
	assert.True(t, IsStaleToken(ErrTokenInvalid))
	assert.True(t, IsStaleToken(errors.Join(errors.New("wrapped"), ErrTokenUnregistered)))
	assert.False(t, IsStaleToken(errors.New("internal")))
	assert.False(t, IsStaleToken(nil))
}
