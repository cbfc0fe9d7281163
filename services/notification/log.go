package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// LogPusher logs messages instead of sending them. Every token is reported
// as delivered.
type LogPusher struct {
	logger *zap.Logger
}

func NewLogPusher(logger *zap.Logger) *LogPusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPusher{logger: logger}
}

func (p *LogPusher) SendBatch(_ context.Context, tokens []string, msg Message) ([]SendResult, error) {
	results := make([]SendResult, 0, len(tokens))
	for i, token := range tokens {
		p.logger.Info("Dry-run notification",
			zap.String("token", maskToken(token)),
			zap.String("title", msg.Title),
			zap.String("body", msg.Body),
			zap.Any("data", msg.Data),
		)
		results = append(results, SendResult{Token: token, MessageID: fmt.Sprintf("dry-run-%d", i)})
	}
	return results, nil
}
