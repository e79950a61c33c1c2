/**
 * @description
 * Transaction log models. Entries are immutable once written and reference
 * accounts by id only.
 */
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType encodes the direction of a money movement.
type TransactionType string

const (
	TransactionCredit   TransactionType = "credit"
	TransactionDebit    TransactionType = "debit"
	TransactionTransfer TransactionType = "transfer"
)

// Transaction is an append-only ledger log entry.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	FromAccount uuid.UUID       `json:"from_account"`
	ToAccount   uuid.UUID       `json:"to_account"`
	Amount      int64           `json:"amount"` // minor units, always positive
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionView decorates a log entry with counterpart account numbers.
type TransactionView struct {
	Transaction
	SenderAccount   string `json:"sender_account"`
	ReceiverAccount string `json:"receiver_account"`
	Display         string `json:"display_amount"`
}

// UnknownAccount is reported for a counterpart that no longer exists.
const UnknownAccount = "Unknown"

const addFundsDescription = "Money added to account"

// AddFundsDescription is the log description of a self-credit.
func AddFundsDescription() string {
	return addFundsDescription
}

// TransferDescription is the log description of a transfer to accountNumber.
func TransferDescription(accountNumber string) string {
	return fmt.Sprintf("Transfer to %s", accountNumber)
}
