/**
 * @description
 * This file implements the Repository interface on PostgreSQL using pgx.
 * Money movements run inside a single database transaction: the verification
 * ticket is redeemed, the affected account rows are locked with FOR UPDATE,
 * balances are updated and the log entry is appended before one commit.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and pgxpool connection pool.
 * - internal/domain: models and sentinel errors.
 */
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

const accountColumns = `id, name, email, phone, password_hash, role, account_number, balance, status, credentials, created_at, updated_at`

// PostgresRepository is the PostgreSQL implementation of Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a      domain.Account
		role   string
		status string
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Phone, &a.PasswordHash, &role,
		&a.AccountNumber, &a.Balance, &status, &a.Credentials, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	a.Role = domain.Role(role)
	a.Status = domain.AccountStatus(status)
	if a.Beneficiaries == nil {
		a.Beneficiaries = []domain.Beneficiary{}
	}
	return &a, nil
}

// CreateAccount inserts a new account.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
        INSERT INTO accounts (id, name, email, phone, password_hash, role, account_number, balance, status, credentials, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	if account.Credentials == nil {
		account.Credentials = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.Phone,
		account.PasswordHash,
		string(account.Role),
		account.AccountNumber,
		account.Balance,
		string(account.Status),
		account.Credentials,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "accounts_email_key"):
			return domain.ErrEmailTaken
		case isUniqueViolation(err, "accounts_account_number_key"):
			return domain.ErrAccountNumberExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getAccount(ctx context.Context, where string, arg any) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s`, accountColumns, where)
	account, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	beneficiaries, err := r.beneficiaries(ctx, r.db, account.ID)
	if err != nil {
		return nil, err
	}
	account.Beneficiaries = beneficiaries
	return account, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresRepository) beneficiaries(ctx context.Context, q querier, accountID uuid.UUID) ([]domain.Beneficiary, error) {
	rows, err := q.Query(ctx, `
        SELECT name, account_number, created_at
        FROM beneficiaries
        WHERE account_id = $1
        ORDER BY created_at, account_number
    `, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load beneficiaries: %w", err)
	}
	defer rows.Close()

	beneficiaries := []domain.Beneficiary{}
	for rows.Next() {
		var b domain.Beneficiary
		if err := rows.Scan(&b.Name, &b.AccountNumber, &b.CreatedAt); err != nil {
			return nil, err
		}
		beneficiaries = append(beneficiaries, b)
	}
	return beneficiaries, rows.Err()
}

// GetAccountByID retrieves an account with its beneficiaries.
func (r *PostgresRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.getAccount(ctx, "id = $1", id)
}

// GetAccountByEmail retrieves an account by normalised email.
func (r *PostgresRepository) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getAccount(ctx, "email = $1", domain.NormalizeEmail(email))
}

// GetAccountByNumber retrieves an account by its external account number.
func (r *PostgresRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return r.getAccount(ctx, "account_number = $1", strings.TrimSpace(accountNumber))
}

// SetAccountStatus freezes or unfreezes an account.
func (r *PostgresRepository) SetAccountStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus, now time.Time) (*domain.Account, error) {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), now)
	if err != nil {
		return nil, fmt.Errorf("failed to update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return r.GetAccountByID(ctx, id)
}

// DeleteAccount removes the account. Beneficiaries, challenges and tickets
// cascade; transaction log entries are kept.
func (r *PostgresRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// AddCredential registers a biometric credential id on the account.
func (r *PostgresRepository) AddCredential(ctx context.Context, id uuid.UUID, credentialID string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE accounts
        SET credentials = CASE WHEN $2 = ANY(credentials) THEN credentials ELSE array_append(credentials, $2) END,
            updated_at = $3
        WHERE id = $1
    `, id, credentialID, now)
	if err != nil {
		return fmt.Errorf("failed to add credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func likePattern(search string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(strings.TrimSpace(search)) + "%"
}

// ListAccounts returns one page of accounts and the total match count.
func (r *PostgresRepository) ListAccounts(ctx context.Context, filter AccountFilter) ([]domain.Account, int, error) {
	where := "TRUE"
	args := []any{}
	if strings.TrimSpace(filter.Search) != "" {
		args = append(args, likePattern(filter.Search))
		where = "(name ILIKE $1 OR email ILIKE $1 OR account_number ILIKE $1)"
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM accounts WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		accountColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	ids := make([]uuid.UUID, 0, len(accounts))
	for i := range accounts {
		ids = append(ids, accounts[i].ID)
	}
	byAccount, err := r.beneficiariesByAccount(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	attachBeneficiaries(accounts, byAccount)
	return accounts, total, nil
}

// beneficiariesByAccount loads the beneficiary sets of a page of accounts in
// one query.
func (r *PostgresRepository) beneficiariesByAccount(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.Beneficiary, error) {
	byAccount := make(map[uuid.UUID][]domain.Beneficiary, len(ids))
	if len(ids) == 0 {
		return byAccount, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	rows, err := r.db.Query(ctx, `
        SELECT account_id, name, account_number, created_at
        FROM beneficiaries
        WHERE account_id = ANY($1::uuid[])
        ORDER BY account_id, created_at, account_number
    `, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load beneficiaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			accountID uuid.UUID
			b         domain.Beneficiary
		)
		if err := rows.Scan(&accountID, &b.Name, &b.AccountNumber, &b.CreatedAt); err != nil {
			return nil, err
		}
		byAccount[accountID] = append(byAccount[accountID], b)
	}
	return byAccount, rows.Err()
}

func attachBeneficiaries(accounts []domain.Account, byAccount map[uuid.UUID][]domain.Beneficiary) {
	for i := range accounts {
		if list, ok := byAccount[accounts[i].ID]; ok {
			accounts[i].Beneficiaries = list
		} else {
			accounts[i].Beneficiaries = []domain.Beneficiary{}
		}
	}
}

// AccountNumbers resolves account ids to account numbers; unknown ids are absent.
func (r *PostgresRepository) AccountNumbers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	numbers := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return numbers, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	rows, err := r.db.Query(ctx, `SELECT id, account_number FROM accounts WHERE id = ANY($1::uuid[])`, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account numbers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id     uuid.UUID
			number string
		)
		if err := rows.Scan(&id, &number); err != nil {
			return nil, err
		}
		numbers[id] = number
	}
	return numbers, rows.Err()
}

// AccountStats aggregates account counts and the total balance.
func (r *PostgresRepository) AccountStats(ctx context.Context, since time.Time) (AccountStats, error) {
	var stats AccountStats
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'active'),
               COALESCE(SUM(balance), 0)::BIGINT,
               COUNT(*) FILTER (WHERE created_at >= $1)
        FROM accounts
    `, since).Scan(&stats.TotalAccounts, &stats.ActiveAccounts, &stats.TotalBalance, &stats.NewSince)
	if err != nil {
		return AccountStats{}, fmt.Errorf("failed to aggregate accounts: %w", err)
	}
	return stats, nil
}

// redeemTicket deletes a matching unexpired ticket inside tx.
func redeemTicket(ctx context.Context, tx pgx.Tx, claim domain.TicketClaim, now time.Time) error {
	tag, err := tx.Exec(ctx, `
        DELETE FROM verification_tickets
        WHERE id = $1 AND account_id = $2 AND action = $3 AND expires_at > $4
    `, claim.TicketID, claim.AccountID, string(claim.Action), now)
	if err != nil {
		return fmt.Errorf("failed to redeem ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketInvalid
	}
	return nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO transactions (id, from_account, to_account, amount, type, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, t.ID, t.FromAccount, t.ToAccount, t.Amount, string(t.Type), t.Description, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// AddFunds credits the claim's account and logs a credit entry in one transaction.
func (r *PostgresRepository) AddFunds(ctx context.Context, params AddFundsParams) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := redeemTicket(ctx, tx, params.Claim, params.Now); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2, updated_at = $3 WHERE id = $1`,
		params.Claim.AccountID, params.Amount, params.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrAccountNotFound
	}

	entry := &domain.Transaction{
		ID:          params.TxID,
		FromAccount: params.Claim.AccountID,
		ToAccount:   params.Claim.AccountID,
		Amount:      params.Amount,
		Type:        domain.TransactionCredit,
		Description: params.Description,
		CreatedAt:   params.Now,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit add funds: %w", err)
	}
	return entry, nil
}

type lockedAccount struct {
	balance int64
	status  domain.AccountStatus
}

// Transfer moves funds between two accounts in one transaction. Both rows are
// locked in id order so opposing transfers cannot deadlock.
func (r *PostgresRepository) Transfer(ctx context.Context, params TransferParams) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := redeemTicket(ctx, tx, params.Claim, params.Now); err != nil {
		return nil, err
	}

	senderID := params.Claim.AccountID
	var senderStatus string
	if err := tx.QueryRow(ctx, `SELECT status FROM accounts WHERE id = $1`, senderID).Scan(&senderStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}
	if domain.AccountStatus(senderStatus) == domain.AccountFrozen {
		return nil, domain.ErrAccountFrozen
	}

	var receiverID uuid.UUID
	receiverNumber := strings.TrimSpace(params.ReceiverAccountNumber)
	if err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE account_number = $1`, receiverNumber).Scan(&receiverID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReceiverNotFound
		}
		return nil, fmt.Errorf("failed to load receiver: %w", err)
	}
	if receiverID == senderID {
		return nil, domain.ErrSelfTransfer
	}

	rows, err := tx.Query(ctx, `
        SELECT id, balance, status FROM accounts
        WHERE id = ANY($1::uuid[])
        ORDER BY id
        FOR UPDATE
    `, []string{senderID.String(), receiverID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	locked := make(map[uuid.UUID]lockedAccount, 2)
	for rows.Next() {
		var (
			id      uuid.UUID
			balance int64
			status  string
		)
		if err := rows.Scan(&id, &balance, &status); err != nil {
			rows.Close()
			return nil, err
		}
		locked[id] = lockedAccount{balance: balance, status: domain.AccountStatus(status)}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	sender, ok := locked[senderID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if sender.status == domain.AccountFrozen {
		return nil, domain.ErrAccountFrozen
	}
	if _, ok := locked[receiverID]; !ok {
		return nil, domain.ErrReceiverNotFound
	}
	if sender.balance < params.Amount {
		return nil, domain.ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance - $2, updated_at = $3 WHERE id = $1`,
		senderID, params.Amount, params.Now); err != nil {
		return nil, fmt.Errorf("failed to debit sender: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2, updated_at = $3 WHERE id = $1`,
		receiverID, params.Amount, params.Now); err != nil {
		return nil, fmt.Errorf("failed to credit receiver: %w", err)
	}

	entry := &domain.Transaction{
		ID:          params.TxID,
		FromAccount: senderID,
		ToAccount:   receiverID,
		Amount:      params.Amount,
		Type:        domain.TransactionTransfer,
		Description: domain.TransferDescription(receiverNumber),
		CreatedAt:   params.Now,
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return entry, nil
}

// AddBeneficiary appends a beneficiary to the claim's account.
func (r *PostgresRepository) AddBeneficiary(ctx context.Context, params AddBeneficiaryParams) (*domain.Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := redeemTicket(ctx, tx, params.Claim, params.Now); err != nil {
		return nil, err
	}

	ownerID := params.Claim.AccountID
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, ownerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}

	tag, err := tx.Exec(ctx, `
        INSERT INTO beneficiaries (account_id, name, account_number, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT ON CONSTRAINT beneficiaries_pkey DO NOTHING
    `, ownerID, params.Beneficiary.Name, params.Beneficiary.AccountNumber, params.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to add beneficiary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrDuplicateBeneficiary
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit beneficiary: %w", err)
	}
	return r.GetAccountByID(ctx, ownerID)
}

// RemoveBeneficiary deletes the entry if present. Absence is not an error.
func (r *PostgresRepository) RemoveBeneficiary(ctx context.Context, ownerID uuid.UUID, accountNumber string, now time.Time) (*domain.Account, error) {
	if _, err := r.db.Exec(ctx, `DELETE FROM beneficiaries WHERE account_id = $1 AND account_number = $2`,
		ownerID, strings.TrimSpace(accountNumber)); err != nil {
		return nil, fmt.Errorf("failed to remove beneficiary: %w", err)
	}
	return r.GetAccountByID(ctx, ownerID)
}

const transactionColumns = `id, from_account, to_account, amount, type, description, created_at`

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	transactions := []domain.Transaction{}
	for rows.Next() {
		var (
			t   domain.Transaction
			typ string
		)
		if err := rows.Scan(&t.ID, &t.FromAccount, &t.ToAccount, &t.Amount, &typ, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(typ)
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// ListTransactionsByAccount returns entries where the account is either side, newest first.
func (r *PostgresRepository) ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+`
        FROM transactions
        WHERE from_account = $1 OR to_account = $1
        ORDER BY created_at DESC, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListTransactions returns filtered entries, newest first.
func (r *PostgresRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	if filter.MinAmount > 0 {
		args = append(args, filter.MinAmount)
		conditions = append(conditions, fmt.Sprintf("amount >= $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC, id`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// TransactionStats counts all entries and transfers since the given instant.
func (r *PostgresRepository) TransactionStats(ctx context.Context, since time.Time) (TransactionStats, error) {
	var stats TransactionStats
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE type = 'transfer' AND created_at >= $1)
        FROM transactions
    `, since).Scan(&stats.TotalTransactions, &stats.TransfersSince)
	if err != nil {
		return TransactionStats{}, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	return stats, nil
}

// IssueTicket stores a verification ticket.
func (r *PostgresRepository) IssueTicket(ctx context.Context, ticket *domain.VerificationTicket) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO verification_tickets (id, account_id, action, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, ticket.ID, ticket.AccountID, string(ticket.Action), ticket.ExpiresAt, ticket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to issue ticket: %w", err)
	}
	return nil
}

// PurgeTickets removes tickets that expired before the given instant.
func (r *PostgresRepository) PurgeTickets(ctx context.Context, expiredBefore time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM verification_tickets WHERE expires_at < $1`, expiredBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tickets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ReplaceChallenge upserts the challenge for its (account, action) pair.
func (r *PostgresRepository) ReplaceChallenge(ctx context.Context, challenge *domain.OTPChallenge) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO otp_challenges (id, account_id, action, code, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT ON CONSTRAINT otp_challenges_pair_key
        DO UPDATE SET id = EXCLUDED.id, code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
    `, challenge.ID, challenge.AccountID, string(challenge.Action), challenge.Code, challenge.ExpiresAt, challenge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// GetChallenge loads the live challenge for the pair.
func (r *PostgresRepository) GetChallenge(ctx context.Context, accountID uuid.UUID, action domain.OTPAction) (*domain.OTPChallenge, error) {
	var (
		c   domain.OTPChallenge
		act string
	)
	err := r.db.QueryRow(ctx, `
        SELECT id, account_id, action, code, expires_at, created_at
        FROM otp_challenges
        WHERE account_id = $1 AND action = $2
    `, accountID, string(action)).Scan(&c.ID, &c.AccountID, &act, &c.Code, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	c.Action = domain.OTPAction(act)
	return &c, nil
}

// DeleteChallenge removes exactly this challenge; a superseded or consumed one is left alone.
func (r *PostgresRepository) DeleteChallenge(ctx context.Context, challenge *domain.OTPChallenge) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM otp_challenges WHERE account_id = $1 AND action = $2 AND id = $3`,
		challenge.AccountID, string(challenge.Action), challenge.ID)
	if err != nil {
		return false, fmt.Errorf("failed to delete challenge: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
