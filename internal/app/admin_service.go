/**
 * @description
 * Administrative reporting and account control: user listing, the global
 * transaction log, dashboard stats, the daily volume chart, suspicious
 * transactions, and freeze / unfreeze / delete.
 *
 * @dependencies
 * - golang.org/x/sync/errgroup: concurrent dashboard aggregates.
 */
package app

import (
	"context"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/internal/store"
	"github.com/adarsh140528/Horizon-Bank/pkg/rabbitmq"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	adminPageSize    = 10
	defaultChartDays = 7
	maxChartDays     = 366
	chartDateLayout  = "2006-01-02"
	defaultThreshold = 50000
)

// AdminRepository is the slice of the store the admin service uses.
type AdminRepository interface {
	store.AccountRepository
	store.TransactionRepository
}

// UserPage is one page of the account listing.
type UserPage struct {
	Users []domain.Account `json:"users"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Pages int              `json:"pages"`
}

// Stats is the admin dashboard summary. Money values are minor units.
type Stats struct {
	TotalUsers        int64  `json:"total_users"`
	ActiveUsers       int64  `json:"active_users"`
	TotalBalance      int64  `json:"total_balance"`
	TotalBalanceText  string `json:"total_balance_display"`
	TotalTransactions int64  `json:"total_transactions"`
	TodaysTransfers   int64  `json:"todays_transfers"`
	NewUsersToday     int64  `json:"new_users_today"`
	Revenue           int64  `json:"revenue"`
	RevenueText       string `json:"revenue_display"`
}

// ChartPoint is the summed transaction volume of one calendar day.
type ChartPoint struct {
	Date    string `json:"date"`
	Amount  int64  `json:"amount"`
	Display string `json:"display_amount"`
}

// AdminService serves the administrative surface.
type AdminService struct {
	repo                AdminRepository
	events              eventSink
	log                 *zap.Logger
	revenuePerTx        int64
	suspiciousThreshold int64
	now                 func() time.Time
}

// NewAdminService creates a new AdminService.
func NewAdminService(repo AdminRepository, publisher rabbitmq.Publisher, exchange string, log *zap.Logger, revenuePerTx, suspiciousThreshold int64) *AdminService {
	if suspiciousThreshold <= 0 {
		suspiciousThreshold = defaultThreshold
	}
	return &AdminService{
		repo:                repo,
		events:              eventSink{publisher: publisher, exchange: exchange, log: log},
		log:                 log,
		revenuePerTx:        revenuePerTx,
		suspiciousThreshold: suspiciousThreshold,
		now:                 time.Now,
	}
}

// ListUsers returns one page of accounts matching search on name, email or
// account number. Pages below 1 are treated as 1.
func (s *AdminService) ListUsers(ctx context.Context, search string, page int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	users, total, err := s.repo.ListAccounts(ctx, store.AccountFilter{
		Search: search,
		Limit:  adminPageSize,
		Offset: (page - 1) * adminPageSize,
	})
	if err != nil {
		return nil, err
	}
	return &UserPage{
		Users: users,
		Total: total,
		Page:  page,
		Pages: (total + adminPageSize - 1) / adminPageSize,
	}, nil
}

// ListAllTransactions returns the whole log, newest first.
func (s *AdminService) ListAllTransactions(ctx context.Context) ([]domain.TransactionView, error) {
	entries, err := s.repo.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return decorateTransactions(ctx, s.repo, entries)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Stats computes the dashboard aggregates.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	today := startOfDay(s.now())

	var (
		accounts     store.AccountStats
		transactions store.TransactionStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.repo.AccountStats(gctx, today)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = s.repo.TransactionStats(gctx, today)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	revenue := transactions.TotalTransactions * s.revenuePerTx
	return &Stats{
		TotalUsers:        accounts.TotalAccounts,
		ActiveUsers:       accounts.ActiveAccounts,
		TotalBalance:      accounts.TotalBalance,
		TotalBalanceText:  domain.FormatMinor(accounts.TotalBalance),
		TotalTransactions: transactions.TotalTransactions,
		TodaysTransfers:   transactions.TransfersSince,
		NewUsersToday:     accounts.NewSince,
		Revenue:           revenue,
		RevenueText:       domain.FormatMinor(revenue),
	}, nil
}

// ChartSeries sums transaction amounts per day for the last days days,
// oldest first. Days without activity are present with a zero amount.
func (s *AdminService) ChartSeries(ctx context.Context, days int) ([]ChartPoint, error) {
	if days <= 0 {
		days = defaultChartDays
	}
	if days > maxChartDays {
		days = maxChartDays
	}
	today := startOfDay(s.now())
	first := today.AddDate(0, 0, -(days - 1))

	entries, err := s.repo.ListTransactions(ctx, store.TransactionFilter{Since: first})
	if err != nil {
		return nil, err
	}

	loc := today.Location()
	sums := make(map[string]int64, days)
	for _, t := range entries {
		sums[t.CreatedAt.In(loc).Format(chartDateLayout)] += t.Amount
	}

	points := make([]ChartPoint, 0, days)
	for i := 0; i < days; i++ {
		key := first.AddDate(0, 0, i).Format(chartDateLayout)
		points = append(points, ChartPoint{Date: key, Amount: sums[key], Display: domain.FormatMinor(sums[key])})
	}
	return points, nil
}

// Suspicious lists transactions with amount >= threshold, newest first.
// A non-positive threshold uses the configured default.
func (s *AdminService) Suspicious(ctx context.Context, threshold int64) ([]domain.TransactionView, error) {
	if threshold <= 0 {
		threshold = s.suspiciousThreshold
	}
	entries, err := s.repo.ListTransactions(ctx, store.TransactionFilter{MinAmount: threshold})
	if err != nil {
		return nil, err
	}
	return decorateTransactions(ctx, s.repo, entries)
}

// Freeze blocks outgoing transfers from the account.
func (s *AdminService) Freeze(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.setStatus(ctx, id, domain.AccountFrozen, domain.EventAccountFrozen)
}

// Unfreeze restores an account to active.
func (s *AdminService) Unfreeze(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.setStatus(ctx, id, domain.AccountActive, domain.EventAccountUnfrozen)
}

func (s *AdminService) setStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus, routingKey string) (*domain.Account, error) {
	now := s.now()
	account, err := s.repo.SetAccountStatus(ctx, id, status, now)
	if err != nil {
		return nil, err
	}
	s.log.Info("account status changed",
		zap.String("component", "admin"),
		zap.String("account_id", id.String()),
		zap.String("status", string(status)),
	)
	s.events.publish(ctx, routingKey, domain.AccountEvent{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Detail:        string(status),
		Timestamp:     now,
	})
	return account, nil
}

// Delete removes the account with its beneficiaries, challenges and tickets.
// Transactions referencing it are kept.
func (s *AdminService) Delete(ctx context.Context, id uuid.UUID) error {
	account, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.log.Info("account deleted", zap.String("component", "admin"), zap.String("account_id", id.String()))
	s.events.publish(ctx, domain.EventAccountDeleted, domain.AccountEvent{
		AccountID:     id,
		AccountNumber: account.AccountNumber,
		Timestamp:     s.now(),
	})
	return nil
}
