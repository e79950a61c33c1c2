/**
 * @description
 * OTP delivery. A CodeSender delivers a code to one destination; Delivery picks
 * the destination and sender for the requested channel. Which senders are
 * installed is decided at startup from DELIVERY_PROVIDER.
 *
 * @dependencies
 * - pkg/mailer, pkg/smsclient: direct email and SMS transports.
 * - pkg/rabbitmq: queue hand-off to the notification worker.
 * - go.uber.org/zap: structured logging.
 */
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/pkg/rabbitmq"
	"go.uber.org/zap"
)

// CodeSender delivers an OTP code to a destination.
type CodeSender interface {
	SendCode(ctx context.Context, destination, code string, action domain.OTPAction) error
}

// Deliverer is what the OTP service depends on.
type Deliverer interface {
	Deliver(ctx context.Context, account *domain.Account, channel domain.DeliveryChannel, code string, action domain.OTPAction) error
}

// Delivery routes codes to the sender installed for each channel.
type Delivery struct {
	senders map[domain.DeliveryChannel]CodeSender
}

// NewDelivery creates a Delivery with the given email and SMS senders.
func NewDelivery(email, sms CodeSender) *Delivery {
	return &Delivery{senders: map[domain.DeliveryChannel]CodeSender{
		domain.ChannelEmail: email,
		domain.ChannelSMS:   sms,
	}}
}

// Deliver resolves the account's destination for channel and sends the code.
func (d *Delivery) Deliver(ctx context.Context, account *domain.Account, channel domain.DeliveryChannel, code string, action domain.OTPAction) error {
	sender, ok := d.senders[channel]
	if !ok || sender == nil {
		return fmt.Errorf("%w: %w %q", domain.ErrDeliveryFailed, domain.ErrInvalidChannel, channel)
	}

	var destination string
	switch channel {
	case domain.ChannelEmail:
		destination = account.Email
	case domain.ChannelSMS:
		destination = account.Phone
	}
	if strings.TrimSpace(destination) == "" {
		return fmt.Errorf("%w: account has no %s destination", domain.ErrDeliveryFailed, channel)
	}

	if err := sender.SendCode(ctx, destination, code, action); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return nil
}

func otpSubject(action domain.OTPAction) string {
	return fmt.Sprintf("Your %s OTP Code", action.Label())
}

func otpMessage(code string, action domain.OTPAction) string {
	return fmt.Sprintf("Your OTP for %s is %s", action.Label(), code)
}

// LogCodeSender writes codes to the log. Development only.
type LogCodeSender struct {
	Channel domain.DeliveryChannel
	Log     *zap.Logger
}

func (s *LogCodeSender) SendCode(ctx context.Context, destination, code string, action domain.OTPAction) error {
	s.Log.Info("otp code issued (log delivery)",
		zap.String("component", "delivery"),
		zap.String("channel", string(s.Channel)),
		zap.String("destination", destination),
		zap.String("action", string(action)),
		zap.String("code", code),
	)
	return nil
}

// EmailTransport is satisfied by mailer.SMTPSender.
type EmailTransport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailCodeSender sends codes by email.
type EmailCodeSender struct {
	Transport EmailTransport
}

func (s *EmailCodeSender) SendCode(ctx context.Context, destination, code string, action domain.OTPAction) error {
	return s.Transport.Send(ctx, destination, otpSubject(action), otpMessage(code, action))
}

// SMSTransport is satisfied by smsclient.Client.
type SMSTransport interface {
	Send(ctx context.Context, phone, message string) error
}

// SMSCodeSender sends codes by SMS.
type SMSCodeSender struct {
	Transport SMSTransport
}

func (s *SMSCodeSender) SendCode(ctx context.Context, destination, code string, action domain.OTPAction) error {
	return s.Transport.Send(ctx, destination, otpMessage(code, action))
}

// QueueCodeSender hands codes to the notification worker through RabbitMQ.
type QueueCodeSender struct {
	Channel   domain.DeliveryChannel
	Publisher rabbitmq.Publisher
	Exchange  string
}

func (s *QueueCodeSender) SendCode(ctx context.Context, destination, code string, action domain.OTPAction) error {
	routingKey := domain.EventOTPDeliveryEmail
	if s.Channel == domain.ChannelSMS {
		routingKey = domain.EventOTPDeliverySMS
	}
	return s.Publisher.Publish(ctx, s.Exchange, routingKey, domain.OTPDeliveryMessage{
		Channel:     s.Channel,
		Destination: destination,
		Code:        code,
		Action:      action,
	})
}
