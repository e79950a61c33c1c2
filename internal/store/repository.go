/**
 * @description
 * This file defines the interfaces for the data access layer of the ledger.
 * The application layer depends on these interfaces only, so the Postgres
 * store, the in-memory store and the Redis challenge store are interchangeable.
 *
 * @notes
 * - Every gated mutation takes a TicketClaim and redeems the ticket inside the
 *   same storage transaction as the balance/beneficiary change.
 */
package store

import (
	"context"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository covers identity and administrative account operations.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	SetAccountStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus, now time.Time) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	AddCredential(ctx context.Context, id uuid.UUID, credentialID string, now time.Time) error
	ListAccounts(ctx context.Context, filter AccountFilter) ([]domain.Account, int, error)
	AccountNumbers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	AccountStats(ctx context.Context, since time.Time) (AccountStats, error)
}

// LedgerRepository applies money movements and beneficiary changes atomically.
type LedgerRepository interface {
	AddFunds(ctx context.Context, params AddFundsParams) (*domain.Transaction, error)
	Transfer(ctx context.Context, params TransferParams) (*domain.Transaction, error)
	AddBeneficiary(ctx context.Context, params AddBeneficiaryParams) (*domain.Account, error)
	RemoveBeneficiary(ctx context.Context, ownerID uuid.UUID, accountNumber string, now time.Time) (*domain.Account, error)
}

// TransactionRepository is the read side of the transaction log.
type TransactionRepository interface {
	ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	TransactionStats(ctx context.Context, since time.Time) (TransactionStats, error)
}

// TicketRepository stores verification tickets until they are redeemed.
type TicketRepository interface {
	IssueTicket(ctx context.Context, ticket *domain.VerificationTicket) error
	PurgeTickets(ctx context.Context, expiredBefore time.Time) (int64, error)
}

// ChallengeStore holds OTP challenges, one per (account, action).
type ChallengeStore interface {
	// ReplaceChallenge removes any challenge for the pair and stores the new one.
	ReplaceChallenge(ctx context.Context, challenge *domain.OTPChallenge) error
	GetChallenge(ctx context.Context, accountID uuid.UUID, action domain.OTPAction) (*domain.OTPChallenge, error)
	// DeleteChallenge reports whether this call removed the challenge.
	DeleteChallenge(ctx context.Context, challenge *domain.OTPChallenge) (bool, error)
}

// Repository is the full ledger store.
type Repository interface {
	AccountRepository
	LedgerRepository
	TransactionRepository
	TicketRepository
	ChallengeStore
}

// AccountFilter pages and filters the account listing.
type AccountFilter struct {
	Search string
	Limit  int
	Offset int
}

// AccountStats is the account half of the admin dashboard.
type AccountStats struct {
	TotalAccounts  int64
	ActiveAccounts int64
	TotalBalance   int64
	NewSince       int64
}

// TransactionStats is the transaction half of the admin dashboard.
type TransactionStats struct {
	TotalTransactions int64
	TransfersSince    int64
}

// TransactionFilter narrows a transaction listing. Zero values disable a filter.
type TransactionFilter struct {
	MinAmount int64
	Since     time.Time
}

// AddFundsParams describes a self-credit.
type AddFundsParams struct {
	Claim       domain.TicketClaim
	Amount      int64
	Description string
	TxID        uuid.UUID
	Now         time.Time
}

// TransferParams describes a transfer from the claim's account to a receiver number.
type TransferParams struct {
	Claim                 domain.TicketClaim
	ReceiverAccountNumber string
	Amount                int64
	TxID                  uuid.UUID
	Now                   time.Time
}

// AddBeneficiaryParams describes a beneficiary addition on the claim's account.
type AddBeneficiaryParams struct {
	Claim       domain.TicketClaim
	Beneficiary domain.Beneficiary
	Now         time.Time
}
