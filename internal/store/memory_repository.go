package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
)

type challengeKey struct {
	accountID uuid.UUID
	action    domain.OTPAction
}

// MemoryRepository is an in-process Repository. A single writer lock
// serialises every mutation, so a transfer's checks and writes are atomic.
type MemoryRepository struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]*domain.Account
	byEmail      map[string]uuid.UUID
	byNumber     map[string]uuid.UUID
	transactions []domain.Transaction
	challenges   map[challengeKey]domain.OTPChallenge
	tickets      map[uuid.UUID]domain.VerificationTicket
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:   make(map[uuid.UUID]*domain.Account),
		byEmail:    make(map[string]uuid.UUID),
		byNumber:   make(map[string]uuid.UUID),
		challenges: make(map[challengeKey]domain.OTPChallenge),
		tickets:    make(map[uuid.UUID]domain.VerificationTicket),
	}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.Beneficiaries = append([]domain.Beneficiary{}, a.Beneficiaries...)
	c.Credentials = append([]string{}, a.Credentials...)
	return &c
}

func (m *MemoryRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := domain.NormalizeEmail(account.Email)
	if _, ok := m.byEmail[email]; ok {
		return domain.ErrEmailTaken
	}
	if _, ok := m.byNumber[account.AccountNumber]; ok {
		return domain.ErrAccountNumberExists
	}
	stored := cloneAccount(account)
	stored.Email = email
	m.accounts[stored.ID] = stored
	m.byEmail[email] = stored.ID
	m.byNumber[stored.AccountNumber] = stored.ID
	return nil
}

func (m *MemoryRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (m *MemoryRepository) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(m.accounts[id]), nil
}

func (m *MemoryRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byNumber[strings.TrimSpace(accountNumber)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(m.accounts[id]), nil
}

func (m *MemoryRepository) SetAccountStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus, now time.Time) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.Status = status
	a.UpdatedAt = now
	return cloneAccount(a), nil
}

func (m *MemoryRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	delete(m.accounts, id)
	delete(m.byEmail, a.Email)
	delete(m.byNumber, a.AccountNumber)
	for key := range m.challenges {
		if key.accountID == id {
			delete(m.challenges, key)
		}
	}
	for ticketID, t := range m.tickets {
		if t.AccountID == id {
			delete(m.tickets, ticketID)
		}
	}
	return nil
}

func (m *MemoryRepository) AddCredential(ctx context.Context, id uuid.UUID, credentialID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if !a.HasCredential(credentialID) {
		a.Credentials = append(a.Credentials, credentialID)
	}
	a.UpdatedAt = now
	return nil
}

func (m *MemoryRepository) ListAccounts(ctx context.Context, filter AccountFilter) ([]domain.Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.Name), needle) &&
			!strings.Contains(strings.ToLower(a.Email), needle) &&
			!strings.Contains(strings.ToLower(a.AccountNumber), needle) {
			continue
		}
		matched = append(matched, *cloneAccount(a))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < total {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (m *MemoryRepository) AccountNumbers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	numbers := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			numbers[id] = a.AccountNumber
		}
	}
	return numbers, nil
}

func (m *MemoryRepository) AccountStats(ctx context.Context, since time.Time) (AccountStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats AccountStats
	for _, a := range m.accounts {
		stats.TotalAccounts++
		if a.Status == domain.AccountActive {
			stats.ActiveAccounts++
		}
		stats.TotalBalance += a.Balance
		if !a.CreatedAt.Before(since) {
			stats.NewSince++
		}
	}
	return stats, nil
}

// redeemLocked validates and deletes a ticket. Callers hold m.mu and must
// call the returned restore func if the mutation fails afterwards.
func (m *MemoryRepository) redeemLocked(claim domain.TicketClaim, now time.Time) (func(), error) {
	t, ok := m.tickets[claim.TicketID]
	if !ok || !t.Matches(claim, now) {
		return nil, domain.ErrTicketInvalid
	}
	delete(m.tickets, claim.TicketID)
	return func() { m.tickets[t.ID] = t }, nil
}

func (m *MemoryRepository) AddFunds(ctx context.Context, params AddFundsParams) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	restore, err := m.redeemLocked(params.Claim, params.Now)
	if err != nil {
		return nil, err
	}
	a, ok := m.accounts[params.Claim.AccountID]
	if !ok {
		restore()
		return nil, domain.ErrAccountNotFound
	}

	a.Balance += params.Amount
	a.UpdatedAt = params.Now
	entry := domain.Transaction{
		ID:          params.TxID,
		FromAccount: a.ID,
		ToAccount:   a.ID,
		Amount:      params.Amount,
		Type:        domain.TransactionCredit,
		Description: params.Description,
		CreatedAt:   params.Now,
	}
	m.transactions = append(m.transactions, entry)
	return &entry, nil
}

func (m *MemoryRepository) Transfer(ctx context.Context, params TransferParams) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	restore, err := m.redeemLocked(params.Claim, params.Now)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*domain.Transaction, error) {
		restore()
		return nil, err
	}

	sender, ok := m.accounts[params.Claim.AccountID]
	if !ok {
		return fail(domain.ErrAccountNotFound)
	}
	if sender.IsFrozen() {
		return fail(domain.ErrAccountFrozen)
	}
	receiverNumber := strings.TrimSpace(params.ReceiverAccountNumber)
	receiverID, ok := m.byNumber[receiverNumber]
	if !ok {
		return fail(domain.ErrReceiverNotFound)
	}
	if receiverID == sender.ID {
		return fail(domain.ErrSelfTransfer)
	}
	if sender.Balance < params.Amount {
		return fail(domain.ErrInsufficientFunds)
	}

	receiver := m.accounts[receiverID]
	sender.Balance -= params.Amount
	receiver.Balance += params.Amount
	sender.UpdatedAt = params.Now
	receiver.UpdatedAt = params.Now

	entry := domain.Transaction{
		ID:          params.TxID,
		FromAccount: sender.ID,
		ToAccount:   receiver.ID,
		Amount:      params.Amount,
		Type:        domain.TransactionTransfer,
		Description: domain.TransferDescription(receiverNumber),
		CreatedAt:   params.Now,
	}
	m.transactions = append(m.transactions, entry)
	return &entry, nil
}

func (m *MemoryRepository) AddBeneficiary(ctx context.Context, params AddBeneficiaryParams) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	restore, err := m.redeemLocked(params.Claim, params.Now)
	if err != nil {
		return nil, err
	}
	owner, ok := m.accounts[params.Claim.AccountID]
	if !ok {
		restore()
		return nil, domain.ErrAccountNotFound
	}
	if owner.HasBeneficiary(params.Beneficiary.AccountNumber) {
		restore()
		return nil, domain.ErrDuplicateBeneficiary
	}
	b := params.Beneficiary
	b.CreatedAt = params.Now
	owner.Beneficiaries = append(owner.Beneficiaries, b)
	owner.UpdatedAt = params.Now
	return cloneAccount(owner), nil
}

func (m *MemoryRepository) RemoveBeneficiary(ctx context.Context, ownerID uuid.UUID, accountNumber string, now time.Time) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.accounts[ownerID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	accountNumber = strings.TrimSpace(accountNumber)
	kept := owner.Beneficiaries[:0]
	removed := false
	for _, b := range owner.Beneficiaries {
		if b.AccountNumber == accountNumber {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	owner.Beneficiaries = kept
	if removed {
		owner.UpdatedAt = now
	}
	return cloneAccount(owner), nil
}

func newestFirst(transactions []domain.Transaction) []domain.Transaction {
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
	return transactions
}

func (m *MemoryRepository) ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Transaction{}
	for _, t := range m.transactions {
		if t.FromAccount == accountID || t.ToAccount == accountID {
			out = append(out, t)
		}
	}
	return newestFirst(out), nil
}

func (m *MemoryRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Transaction{}
	for _, t := range m.transactions {
		if filter.MinAmount > 0 && t.Amount < filter.MinAmount {
			continue
		}
		if !filter.Since.IsZero() && t.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, t)
	}
	return newestFirst(out), nil
}

func (m *MemoryRepository) TransactionStats(ctx context.Context, since time.Time) (TransactionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := TransactionStats{TotalTransactions: int64(len(m.transactions))}
	for _, t := range m.transactions {
		if t.Type == domain.TransactionTransfer && !t.CreatedAt.Before(since) {
			stats.TransfersSince++
		}
	}
	return stats, nil
}

func (m *MemoryRepository) IssueTicket(ctx context.Context, ticket *domain.VerificationTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[ticket.AccountID]; !ok {
		return domain.ErrAccountNotFound
	}
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *MemoryRepository) PurgeTickets(ctx context.Context, expiredBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tickets {
		if t.ExpiresAt.Before(expiredBefore) {
			delete(m.tickets, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) ReplaceChallenge(ctx context.Context, challenge *domain.OTPChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[challenge.AccountID]; !ok {
		return domain.ErrAccountNotFound
	}
	m.challenges[challengeKey{challenge.AccountID, challenge.Action}] = *challenge
	return nil
}

func (m *MemoryRepository) GetChallenge(ctx context.Context, accountID uuid.UUID, action domain.OTPAction) (*domain.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[challengeKey{accountID, action}]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return &c, nil
}

func (m *MemoryRepository) DeleteChallenge(ctx context.Context, challenge *domain.OTPChallenge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := challengeKey{challenge.AccountID, challenge.Action}
	current, ok := m.challenges[key]
	if !ok || current.ID != challenge.ID {
		return false, nil
	}
	delete(m.challenges, key)
	return true, nil
}
