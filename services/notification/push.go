package notification

import (
	"context"
	"errors"
)

var (
	// ErrTokenInvalid marks a token the push provider rejected as malformed.
	ErrTokenInvalid = errors.New("invalid registration token")
	// ErrTokenUnregistered marks a token that is no longer registered.
	ErrTokenUnregistered = errors.New("registration token not registered")
)

// Message is the notification delivered to every device of a user.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// SendResult is the provider's verdict for one token of a batch.
type SendResult struct {
	Token     string
	MessageID string
	Err       error
}

// Pusher delivers one message to a batch of device tokens.
type Pusher interface {
	// SendBatch returns one result per token, in token order. A non-nil
	// error means the batch (or the rest of it) was not attempted.
	SendBatch(ctx context.Context, tokens []string, msg Message) ([]SendResult, error)
}

// IsStaleToken reports whether a per-token error means the token should be
// dropped from the user's token set.
func IsStaleToken(err error) bool {
	return errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenUnregistered)
}

// maskToken shortens a device token for logs.
func maskToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
