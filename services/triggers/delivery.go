package triggers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"
)

// Delivery is one event handed to a trigger, with the transport's message id
// when it has one.
type Delivery struct {
	ID   string
	Data json.RawMessage
}

// pushEnvelope is the body Pub/Sub posts to a push endpoint.
type pushEnvelope struct {
	Message *struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
		LegacyID  string `json:"message_id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
	// ID is the event id when the body is a raw event rather than an envelope.
	ID string `json:"id"`
}

// DecodeDelivery accepts either a Pub/Sub push envelope whose message data is
// the base64 event, or the raw event JSON itself.
func DecodeDelivery(body []byte) (Delivery, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return Delivery{}, malformedPayload("delivery body must be a JSON object")
	}

	var env pushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Delivery{}, malformedPayload("invalid JSON: %v", err)
	}
	if env.Message == nil {
		return NewDelivery(env.ID, body), nil
	}

	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return Delivery{}, malformedPayload("message data is not base64: %v", err)
	}
	if !json.Valid(data) {
		return Delivery{}, malformedPayload("message data is not JSON")
	}
	id := env.Message.MessageID
	if id == "" {
		id = env.Message.LegacyID
	}
	return NewDelivery(id, data), nil
}

// NewDelivery wraps an event; deliveries without an id get a random one so
// they are never mistaken for a duplicate.
func NewDelivery(id string, data []byte) Delivery {
	if id == "" {
		id = uuid.NewString()
	}
	return Delivery{ID: id, Data: json.RawMessage(data)}
}
