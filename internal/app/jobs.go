/**
 * @description
 * Scheduled job implementations: the suspicious-transaction sweep and the
 * expired verification ticket purge.
 */
package app

import (
	"context"
	"sync"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/internal/store"
	"github.com/adarsh140528/Horizon-Bank/pkg/rabbitmq"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sweepOverlap re-scans the tail of the previous window so transactions that
// committed after a sweep started, stamped before it, are still reported.
const sweepOverlap = 2 * time.Minute

// JobsRepository defines the storage operations the jobs need.
type JobsRepository interface {
	ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]domain.Transaction, error)
	PurgeTickets(ctx context.Context, expiredBefore time.Time) (int64, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo      JobsRepository
	events    eventSink
	log       *zap.Logger
	threshold int64
	now       func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
	// reported holds ids already published inside the overlap window.
	reported map[uuid.UUID]time.Time
}

// NewJobs creates a new Jobs runner. The first sweep covers transactions
// created after the runner was built.
func NewJobs(repo JobsRepository, publisher rabbitmq.Publisher, exchange string, log *zap.Logger, threshold int64) *Jobs {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	j := &Jobs{
		repo:      repo,
		events:    eventSink{publisher: publisher, exchange: exchange, log: log},
		log:       log,
		threshold: threshold,
		now:       time.Now,
		reported:  make(map[uuid.UUID]time.Time),
	}
	j.lastSweep = j.now()
	return j
}

// SweepSuspicious publishes a transaction.suspicious event for every
// transaction at or above the threshold created since the previous sweep.
// Each transaction is reported at most once.
func (j *Jobs) SweepSuspicious() {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx := context.Background()
	started := j.now()
	since := j.lastSweep.Add(-sweepOverlap)
	j.log.Info("starting suspicious transaction sweep", zap.Time("since", since))

	entries, err := j.repo.ListTransactions(ctx, store.TransactionFilter{MinAmount: j.threshold, Since: since})
	if err != nil {
		j.log.Error("failed to list suspicious transactions", zap.Error(err))
		return
	}

	published := 0
	for i := range entries {
		entry := entries[i]
		if _, seen := j.reported[entry.ID]; seen {
			continue
		}
		j.log.Warn("suspicious transaction",
			zap.String("component", "jobs"),
			zap.String("transaction_id", entry.ID.String()),
			zap.String("from_account", entry.FromAccount.String()),
			zap.String("to_account", entry.ToAccount.String()),
			zap.Int64("amount", entry.Amount),
		)
		j.events.publish(ctx, domain.EventTransactionSuspicious, domain.NewTransactionEvent(&entry))
		j.reported[entry.ID] = entry.CreatedAt
		published++
	}

	j.lastSweep = started
	cutoff := started.Add(-sweepOverlap)
	for id, createdAt := range j.reported {
		if createdAt.Before(cutoff) {
			delete(j.reported, id)
		}
	}
	j.log.Info("suspicious transaction sweep finished", zap.Int("count", published))
}

// PurgeExpiredTickets deletes verification tickets past their expiry. OTP
// challenges are left alone: they expire logically and are replaced by the
// next request for the same pair.
func (j *Jobs) PurgeExpiredTickets() {
	ctx := context.Background()
	j.log.Info("starting expired ticket purge job")

	tickets, err := j.repo.PurgeTickets(ctx, j.now())
	if err != nil {
		j.log.Error("failed to purge expired verification tickets", zap.Error(err))
		return
	}

	j.log.Info("expired ticket purge job finished", zap.Int64("tickets_removed", tickets))
}
