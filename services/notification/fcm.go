package notification

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// maxMulticastTokens is the FCM limit on tokens per multicast request.
const maxMulticastTokens = 500

// errPayloadRejected marks an INVALID_ARGUMENT that points at the message
// rather than at any one token.
var errPayloadRejected = errors.New("message rejected as invalid")

// Error predicates, replaced in tests since FCM errors cannot be built
// outside the SDK.
var (
	isUnregistered    = messaging.IsUnregistered
	isInvalidArgument = messaging.IsInvalidArgument
)

// multicastSender is the part of *messaging.Client the pusher uses.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMPusher implements Pusher with Firebase Cloud Messaging.
type FCMPusher struct {
	client multicastSender
}

func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

func (p *FCMPusher) SendBatch(ctx context.Context, tokens []string, msg Message) ([]SendResult, error) {
	results := make([]SendResult, 0, len(tokens))
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := start + maxMulticastTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		response, err := p.client.SendEachForMulticast(ctx, multicast(chunk, msg))
		if err != nil {
			return results, fmt.Errorf("FCMPusher.SendBatch: failed to send FCM multicast message: %w", err)
		}

		if len(response.Responses) != len(chunk) {
			return results, fmt.Errorf("FCMPusher.SendBatch: got %d responses for %d tokens", len(response.Responses), len(chunk))
		}

		payloadRejected := rejectedAsPayload(response.Responses)
		for i, resp := range response.Responses {
			res := SendResult{Token: chunk[i], MessageID: resp.MessageID}
			switch {
			case resp.Success:
			case payloadRejected:
				res.Err = fmt.Errorf("%w: %v", errPayloadRejected, resp.Error)
			default:
				res.Err = classify(resp.Error)
			}
			results = append(results, res)
		}
	}
	return results, nil
}

// rejectedAsPayload reports whether every token of a multi-token chunk failed
// with INVALID_ARGUMENT. Distinct tokens do not all go bad at once, so the
// message itself was refused and no token should be dropped.
func rejectedAsPayload(responses []*messaging.SendResponse) bool {
	if len(responses) < 2 {
		return false
	}
	for _, resp := range responses {
		if resp.Success || resp.Error == nil || !isInvalidArgument(resp.Error) {
			return false
		}
	}
	return true
}

func multicast(tokens []string, msg Message) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}

// classify maps FCM error codes onto the stale-token sentinels.
// INVALID_ARGUMENT is how FCM v1 reports a malformed registration token. The
// message built by multicast carries fixed config and string-only data, so a
// single token failing that way is taken to be the token's fault.
func classify(err error) error {
	switch {
	case err == nil:
		return errors.New("delivery failed without an error")
	case isUnregistered(err):
		return fmt.Errorf("%w: %v", ErrTokenUnregistered, err)
	case isInvalidArgument(err):
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return err
}
