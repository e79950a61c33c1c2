package app

import (
	"context"
	"time"

	"github.com/adarsh140528/Horizon-Bank/pkg/rabbitmq"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// eventSink publishes post-commit events. Failures are logged, never returned:
// the ledger change they describe has already committed.
type eventSink struct {
	publisher rabbitmq.Publisher
	exchange  string
	log       *zap.Logger
}

func (e eventSink) publish(ctx context.Context, routingKey string, payload interface{}) {
	if e.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.publisher.Publish(pubCtx, e.exchange, routingKey, payload); err != nil {
		e.log.Warn("event publish failed",
			zap.String("component", "events"),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
