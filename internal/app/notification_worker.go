package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/pkg/rabbitmq"
	"go.uber.org/zap"
)

const notificationSendTimeout = 20 * time.Second

// NotificationWorker sends OTP codes queued by QueueCodeSender.
type NotificationWorker struct {
	senders map[domain.DeliveryChannel]CodeSender
	log     *zap.Logger
}

// NewNotificationWorker creates a worker that sends through the given senders.
func NewNotificationWorker(email, sms CodeSender, log *zap.Logger) *NotificationWorker {
	return &NotificationWorker{
		senders: map[domain.DeliveryChannel]CodeSender{
			domain.ChannelEmail: email,
			domain.ChannelSMS:   sms,
		},
		log: log,
	}
}

// Bindings returns the routing keys the worker consumes.
func (w *NotificationWorker) Bindings() map[string]rabbitmq.MessageHandler {
	return map[string]rabbitmq.MessageHandler{
		domain.EventOTPDeliveryEmail: w.HandleMessage,
		domain.EventOTPDeliverySMS:   w.HandleMessage,
	}
}

// HandleMessage sends one queued code. Malformed messages are acked and
// dropped; send failures are reported so the consumer can requeue once.
func (w *NotificationWorker) HandleMessage(body []byte, redelivered bool) bool {
	var msg domain.OTPDeliveryMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.log.Error("failed to decode otp delivery message", zap.Error(err))
		return true
	}

	sender, ok := w.senders[msg.Channel]
	if !ok || sender == nil {
		w.log.Error("no sender for otp delivery channel", zap.String("channel", string(msg.Channel)))
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
	defer cancel()
	if err := sender.SendCode(ctx, msg.Destination, msg.Code, msg.Action); err != nil {
		w.log.Error("otp delivery send failed",
			zap.String("component", "notification"),
			zap.String("channel", string(msg.Channel)),
			zap.String("action", string(msg.Action)),
			zap.Bool("redelivered", redelivered),
			zap.Error(err),
		)
		return false
	}

	w.log.Info("otp delivered",
		zap.String("component", "notification"),
		zap.String("channel", string(msg.Channel)),
		zap.String("action", string(msg.Action)),
	)
	return true
}
