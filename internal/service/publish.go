package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"core-banking-api/internal/events"
)

const publishTimeout = 2 * time.Second

// publish announces a committed change. The change has already happened, so
// a publish failure is logged and otherwise ignored.
func publish(ctx context.Context, publisher events.Publisher, logger *zap.Logger, eventType string, data any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := publisher.Publish(ctx, eventType, data); err != nil {
		logger.Warn("failed to publish ledger event",
			zap.String("event", eventType),
			zap.Error(err),
		)
	}
}
