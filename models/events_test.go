package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageObjectEventMetageneration(t *testing.T) {
	tests := []struct {
		body string
		want Metageneration
	}{
		{`{"metageneration":"3"}`, 3},
		{`{"metageneration":2}`, 2},
		{`{"metageneration":""}`, 0},
		{`{"metageneration":null}`, 0},
		{`{}`, 0},
	}
	for _, tt := range tests {
		var ev StorageObjectEvent
		require.NoError(t, json.Unmarshal([]byte(tt.body), &ev), tt.body)
		assert.Equal(t, tt.want, ev.Metageneration, tt.body)
	}

	var ev StorageObjectEvent
	assert.Error(t, json.Unmarshal([]byte(`{"metageneration":"two"}`), &ev))
}

func TestDatabaseEventExists(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{``, false},
		{`null`, false},
		{`{}`, false},
		{`""`, false},
		{`{"a":1}`, true},
		{`0`, true},
		{`false`, true},
	}
	for _, tt := range tests {
		ev := DatabaseEvent{After: json.RawMessage(tt.raw), Before: json.RawMessage(tt.raw)}
		assert.Equal(t, tt.want, ev.AfterExists(), "%q", tt.raw)
		assert.Equal(t, tt.want, ev.BeforeExists(), "%q", tt.raw)
	}
}

func TestDecodeAfter(t *testing.T) {
	var r Reservation
	ev := DatabaseEvent{Path: "/reservations/r1", After: json.RawMessage(`{"ownerId":"o","borrowerId":"b","equipmentId":"e"}`)}
	require.NoError(t, ev.DecodeAfter(&r))
	assert.Equal(t, Reservation{OwnerID: "o", BorrowerID: "b", EquipmentID: "e"}, r)

	assert.Error(t, DatabaseEvent{Path: "/reservations/r1"}.DecodeAfter(&r))
}

func TestMatchPath(t *testing.T) {
	params, ok := MatchPath("/reservations/{reservationId}", "/reservations/-Nx3f")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"reservationId": "-Nx3f"}, params)

	params, ok = MatchPath("/users/{uid}/notificationTokens/{key}", "users/u1/notificationTokens/t1/")
	require.True(t, ok)
	assert.Equal(t, "u1", params["uid"])
	assert.Equal(t, "t1", params["key"])

	for _, p := range []string{"/reservations", "/reservations/r1/extra", "/equipment/r1", "/"} {
		_, ok := MatchPath("/reservations/{reservationId}", p)
		assert.False(t, ok, p)
	}
}

func TestOutcomeSwallow(t *testing.T) {
	out := Completed("indexEquipment")
	out.Swallow(nil)
	assert.Equal(t, OutcomeCompleted, out.Status)
	assert.NoError(t, out.Err())

	out.Swallow(errors.New("first"))
	out.Swallow(errors.New("second"))
	assert.Equal(t, OutcomeDegraded, out.Status)
	assert.Equal(t, []string{"first", "second"}, out.ErrorMessages())
	assert.ErrorContains(t, out.Err(), "second")

	skipped := Skipped("t", "no tokens")
	skipped.Swallow(errors.New("late"))
	assert.Equal(t, OutcomeSkipped, skipped.Status)
}

func TestOutcomeJSON(t *testing.T) {
	out := Completed("generateThumbnail")
	out.Reason = "thumbnail_a.png"
	out.Swallow(errors.New("not serialized"))
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"trigger":"generateThumbnail","status":"degraded","reason":"thumbnail_a.png"}`, string(data))
}
