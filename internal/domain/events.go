package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys published on the events exchange.
const (
	EventTransactionCredit     = "transaction.credit"
	EventTransactionTransfer   = "transaction.transfer"
	EventTransactionSuspicious = "transaction.suspicious"
	EventBeneficiaryAdded      = "beneficiary.added"
	EventAccountFrozen         = "account.frozen"
	EventAccountUnfrozen       = "account.unfrozen"
	EventAccountDeleted        = "account.deleted"

	EventOTPDeliveryEmail = "otp.delivery.email"
	EventOTPDeliverySMS   = "otp.delivery.sms"
)

// TransactionEvent is published after a money movement commits.
type TransactionEvent struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	FromAccount   uuid.UUID       `json:"from_account"`
	ToAccount     uuid.UUID       `json:"to_account"`
	Type          TransactionType `json:"type"`
	Amount        int64           `json:"amount"`
	Display       string          `json:"display_amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewTransactionEvent builds the event payload for a committed log entry.
func NewTransactionEvent(tx *Transaction) TransactionEvent {
	return TransactionEvent{
		TransactionID: tx.ID,
		FromAccount:   tx.FromAccount,
		ToAccount:     tx.ToAccount,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Display:       FormatMinor(tx.Amount),
		Timestamp:     tx.CreatedAt,
	}
}

// AccountEvent is published on administrative status changes and beneficiary additions.
type AccountEvent struct {
	AccountID     uuid.UUID `json:"account_id"`
	AccountNumber string    `json:"account_number,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OTPDeliveryMessage is queued for the notification worker. The code is only
// ever placed on the internal notification queue.
type OTPDeliveryMessage struct {
	Channel     DeliveryChannel `json:"channel"`
	Destination string          `json:"destination"`
	Code        string          `json:"code"`
	Action      OTPAction       `json:"action"`
}
