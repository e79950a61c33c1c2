/**
 * @description
 * The money-movement service. Add funds, transfer and add beneficiary each
 * redeem a verification ticket for their action inside the same storage
 * transaction as the ledger change; nothing is applied without one.
 *
 * @dependencies
 * - internal/store: ledger and transaction repositories.
 * - pkg/rabbitmq: post-commit events.
 * - go.uber.org/zap: structured logging.
 */
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/internal/store"
	"github.com/adarsh140528/Horizon-Bank/pkg/rabbitmq"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MoneyRepository is the slice of the store the money service uses.
type MoneyRepository interface {
	store.LedgerRepository
	store.TransactionRepository
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	AccountNumbers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// MoneyService applies OTP-gated ledger mutations.
type MoneyService struct {
	repo   MoneyRepository
	events eventSink
	log    *zap.Logger
	now    func() time.Time
}

// NewMoneyService creates a new MoneyService.
func NewMoneyService(repo MoneyRepository, publisher rabbitmq.Publisher, exchange string, log *zap.Logger) *MoneyService {
	return &MoneyService{
		repo:   repo,
		events: eventSink{publisher: publisher, exchange: exchange, log: log},
		log:    log,
		now:    time.Now,
	}
}

// AddFunds credits amount to accountID after redeeming an add-funds ticket.
// Frozen accounts may still be credited.
func (s *MoneyService) AddFunds(ctx context.Context, accountID, ticketID uuid.UUID, amount int64) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	entry, err := s.repo.AddFunds(ctx, store.AddFundsParams{
		Claim:       domain.TicketClaim{TicketID: ticketID, AccountID: accountID, Action: domain.ActionAddFunds},
		Amount:      amount,
		Description: domain.AddFundsDescription(),
		TxID:        uuid.New(),
		Now:         s.now(),
	})
	if err != nil {
		s.logOutcome("add_funds", accountID, amount, err)
		return nil, err
	}

	s.logOutcome("add_funds", accountID, amount, nil)
	s.events.publish(ctx, domain.EventTransactionCredit, domain.NewTransactionEvent(entry))
	return entry, nil
}

// Transfer moves amount from senderID to the account numbered
// receiverAccountNumber after redeeming a transfer ticket.
//
// Failures, in check order: ErrInvalidAmount, ErrTicketInvalid,
// ErrAccountNotFound, ErrAccountFrozen, ErrReceiverNotFound, ErrSelfTransfer,
// ErrInsufficientFunds. No failure mutates a balance or appends to the log.
func (s *MoneyService) Transfer(ctx context.Context, senderID, ticketID uuid.UUID, receiverAccountNumber string, amount int64) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	entry, err := s.repo.Transfer(ctx, store.TransferParams{
		Claim:                 domain.TicketClaim{TicketID: ticketID, AccountID: senderID, Action: domain.ActionTransfer},
		ReceiverAccountNumber: strings.TrimSpace(receiverAccountNumber),
		Amount:                amount,
		TxID:                  uuid.New(),
		Now:                   s.now(),
	})
	if err != nil {
		s.logOutcome("transfer", senderID, amount, err)
		return nil, err
	}

	s.logOutcome("transfer", senderID, amount, nil)
	s.events.publish(ctx, domain.EventTransactionTransfer, domain.NewTransactionEvent(entry))
	return entry, nil
}

// AddBeneficiary saves (name, accountNumber) on the owner's account after
// redeeming an add-beneficiary ticket.
func (s *MoneyService) AddBeneficiary(ctx context.Context, ownerID, ticketID uuid.UUID, name, accountNumber string) (*domain.Account, error) {
	now := s.now()
	account, err := s.repo.AddBeneficiary(ctx, store.AddBeneficiaryParams{
		Claim: domain.TicketClaim{TicketID: ticketID, AccountID: ownerID, Action: domain.ActionAddBeneficiary},
		Beneficiary: domain.Beneficiary{
			Name:          strings.TrimSpace(name),
			AccountNumber: strings.TrimSpace(accountNumber),
		},
		Now: now,
	})
	if err != nil {
		s.logOutcome("add_beneficiary", ownerID, 0, err)
		return nil, err
	}

	s.logOutcome("add_beneficiary", ownerID, 0, nil)
	s.events.publish(ctx, domain.EventBeneficiaryAdded, domain.AccountEvent{
		AccountID:     ownerID,
		AccountNumber: account.AccountNumber,
		Detail:        strings.TrimSpace(accountNumber),
		Timestamp:     now,
	})
	return account, nil
}

// RemoveBeneficiary drops accountNumber from the owner's set. Removing an
// absent entry succeeds and leaves the set unchanged.
func (s *MoneyService) RemoveBeneficiary(ctx context.Context, ownerID uuid.UUID, accountNumber string) (*domain.Account, error) {
	return s.repo.RemoveBeneficiary(ctx, ownerID, accountNumber, s.now())
}

// Balance returns the account's balance view.
func (s *MoneyService) Balance(ctx context.Context, accountID uuid.UUID) (*domain.BalanceView, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &domain.BalanceView{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Display:       domain.FormatMinor(account.Balance),
		Status:        account.Status,
	}, nil
}

// Beneficiaries lists the account's saved beneficiaries.
func (s *MoneyService) Beneficiaries(ctx context.Context, accountID uuid.UUID) ([]domain.Beneficiary, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Beneficiaries, nil
}

// History lists the account's transactions, newest first.
func (s *MoneyService) History(ctx context.Context, accountID uuid.UUID) ([]domain.TransactionView, error) {
	if _, err := s.repo.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return decorateTransactions(ctx, s.repo, entries)
}

type accountNumberResolver interface {
	AccountNumbers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

func decorateTransactions(ctx context.Context, resolver accountNumberResolver, entries []domain.Transaction) ([]domain.TransactionView, error) {
	seen := make(map[uuid.UUID]struct{}, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, t := range entries {
		for _, id := range []uuid.UUID{t.FromAccount, t.ToAccount} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	numbers, err := resolver.AccountNumbers(ctx, ids)
	if err != nil {
		return nil, err
	}

	lookup := func(id uuid.UUID) string {
		if n, ok := numbers[id]; ok {
			return n
		}
		return domain.UnknownAccount
	}
	views := make([]domain.TransactionView, 0, len(entries))
	for _, t := range entries {
		views = append(views, domain.TransactionView{
			Transaction:     t,
			SenderAccount:   lookup(t.FromAccount),
			ReceiverAccount: lookup(t.ToAccount),
			Display:         domain.FormatMinor(t.Amount),
		})
	}
	return views, nil
}

func (s *MoneyService) logOutcome(operation string, accountID uuid.UUID, amount int64, err error) {
	fields := []zap.Field{
		zap.String("component", "money"),
		zap.String("operation", operation),
		zap.String("account_id", accountID.String()),
	}
	if amount > 0 {
		fields = append(fields, zap.Int64("amount", amount))
	}
	if err == nil {
		s.log.Info("ledger mutation applied", append(fields, zap.String("outcome", "applied"))...)
		return
	}
	fields = append(fields, zap.String("outcome", "rejected"), zap.Error(err))
	if isBusinessError(err) {
		s.log.Info("ledger mutation rejected", fields...)
		return
	}
	s.log.Error("ledger mutation failed", fields...)
}

func isBusinessError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrInvalidAmount,
		domain.ErrInsufficientFunds,
		domain.ErrAccountFrozen,
		domain.ErrForbidden,
		domain.ErrDuplicateBeneficiary,
		domain.ErrSelfTransfer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
