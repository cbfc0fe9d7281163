package triggers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gearshare/models"
	"gearshare/services/dedup"
	"gearshare/services/search"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingHandler(calls *int, out models.Outcome, err error) Handler {
	return func(context.Context, json.RawMessage) (models.Outcome, error) {
		*calls++
		return out, err
	}
}

func TestDecodeDelivery(t *testing.T) {
	event := `{"path":"/equipment/eq1","after":{"name":"Kayak"}}`

	t.Run("raw event", func(t *testing.T) {
		d, err := DecodeDelivery([]byte(`{"id":"evt-9","path":"/equipment/eq1"}`))
		require.NoError(t, err)
		assert.Equal(t, "evt-9", d.ID)
		assert.JSONEq(t, `{"id":"evt-9","path":"/equipment/eq1"}`, string(d.Data))
	})

	t.Run("raw event without id", func(t *testing.T) {
		d, err := DecodeDelivery([]byte(event))
		require.NoError(t, err)
		assert.NotEmpty(t, d.ID)
		assert.JSONEq(t, event, string(d.Data))
	})

	t.Run("push envelope", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"message": map[string]string{
				"data":      base64.StdEncoding.EncodeToString([]byte(event)),
				"messageId": "1234",
			},
			"subscription": "projects/p/subscriptions/s",
		})
		d, err := DecodeDelivery(body)
		require.NoError(t, err)
		assert.Equal(t, "1234", d.ID)
		assert.JSONEq(t, event, string(d.Data))
	})

	for name, body := range map[string]string{
		"empty":         "",
		"array":         `[1,2]`,
		"broken json":   `{"path":`,
		"bad base64":    `{"message":{"data":"%%%"}}`,
		"data not json": `{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte("hello")) + `"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDelivery([]byte(body))
			require.Error(t, err)
			assert.True(t, IsCode(err, CodeMalformedPayload))
		})
	}
}

func TestInvokeUnknownTrigger(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Invoke(context.Background(), "nope", NewDelivery("1", []byte(`{}`)))
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeUnknownTrigger))
}

func TestInvokeRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	var calls int
	r := NewRegistry(nil, WithMetrics(metrics))
	r.Register("ok", countingHandler(&calls, models.Skipped("ok", "nothing to do"), nil))
	r.Register("bad", countingHandler(&calls, models.Outcome{}, errors.New("upload failed")))

	out, err := r.Invoke(context.Background(), "ok", NewDelivery("", []byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSkipped, out.Status)

	_, err = r.Invoke(context.Background(), "bad", NewDelivery("", []byte(`{}`)))
	require.Error(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("ok", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("bad", "failed")))
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, first.outcomes, second.outcomes)
}

func TestInvokeSkipsDuplicateDeliveries(t *testing.T) {
	var calls int
	r := NewRegistry(nil, WithLedger(dedup.NewMemoryLedger(time.Hour)))
	r.Register("t", countingHandler(&calls, models.Completed("t"), nil))

	d := NewDelivery("evt-1", []byte(`{}`))
	out, err := r.Invoke(context.Background(), "t", d)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, out.Status)

	out, err = r.Invoke(context.Background(), "t", d)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSkipped, out.Status)
	assert.Equal(t, "duplicate delivery", out.Reason)
	assert.Equal(t, 1, calls)
}

func TestInvokeFailureReleasesLedgerEntry(t *testing.T) {
	var calls int
	r := NewRegistry(nil, WithLedger(dedup.NewMemoryLedger(time.Hour)))
	r.Register("t", countingHandler(&calls, models.Outcome{}, errors.New("download failed")))

	d := NewDelivery("evt-1", []byte(`{}`))
	_, err := r.Invoke(context.Background(), "t", d)
	require.Error(t, err)
	_, err = r.Invoke(context.Background(), "t", d)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDatabaseHandlerRejectsEventWithoutPath(t *testing.T) {
	h := DatabaseHandler(func(context.Context, models.DatabaseEvent) (models.Outcome, error) {
		t.Fatal("handler must not run")
		return models.Outcome{}, nil
	})
	_, err := h(context.Background(), json.RawMessage(`{"after":{"a":1}}`))
	assert.True(t, IsCode(err, CodeMalformedPayload))
}

func TestRegisterAllWiresMirrors(t *testing.T) {
	backend := search.NewMemoryBackend()
	equipment, err := search.NewMirror(search.Equipment("EQUIPMENT"), backend, nil)
	require.NoError(t, err)
	vendors, err := search.NewMirror(search.Vendors("VENDORS"), backend, nil)
	require.NoError(t, err)

	r := NewRegistry(nil)
	r.RegisterAll(Handlers{Mirrors: []*search.Mirror{equipment, vendors}})
	assert.Equal(t, []string{"deleteEquipmentIndex", "deleteVendorIndex", "indexEquipment", "indexVendor"}, r.Names())

	out, err := r.Invoke(context.Background(), "indexEquipment", NewDelivery("", []byte(`{"path":"/equipment/eq7","after":{"name":"Tent"}}`)))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, out.Status)
	doc, ok := backend.Memory("EQUIPMENT").Get("eq7")
	require.True(t, ok)
	assert.Equal(t, search.Document{"name": "Tent"}, doc)
}

func TestRegisterTwicePanics(t *testing.T) {
	r := NewRegistry(nil)
	var calls int
	r.Register("t", countingHandler(&calls, models.Outcome{}, nil))
	assert.Panics(t, func() { r.Register("t", countingHandler(&calls, models.Outcome{}, nil)) })
}
