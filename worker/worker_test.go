package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gearshare/models"
	"gearshare/services/triggers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	got []triggers.Delivery
	out models.Outcome
	err error
}

func (f *fakeInvoker) Invoke(_ context.Context, _ string, d triggers.Delivery) (models.Outcome, error) {
	f.got = append(f.got, d)
	return f.out, f.err
}

func TestProcessAckDecisions(t *testing.T) {
	tests := []struct {
		name string
		out  models.Outcome
		err  error
		ack  bool
	}{
		{"completed", models.Completed("t"), nil, true},
		{"degraded", models.Outcome{Trigger: "t", Status: models.OutcomeDegraded}, nil, true},
		{"skipped", models.Skipped("t", "not an image"), nil, true},
		{"invocation failure", models.Outcome{}, errors.New("upload failed"), false},
		{"malformed", models.Outcome{}, &triggers.TriggerError{Code: triggers.CodeMalformedPayload, Message: "bad"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{out: tt.out, err: tt.err}
			ack := Process(context.Background(), inv, zap.NewNop(), "t", "msg-1", []byte(`{"path":"/x"}`))
			assert.Equal(t, tt.ack, ack)
			require.Len(t, inv.got, 1)
			assert.Equal(t, "msg-1", inv.got[0].ID)
			assert.Equal(t, json.RawMessage(`{"path":"/x"}`), inv.got[0].Data)
		})
	}
}

func TestRunWithoutSubscriptions(t *testing.T) {
	s := NewSubscriber(nil, &fakeInvoker{}, nil, 0, nil)
	assert.Error(t, s.Run(context.Background()))
}
