package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisChallengeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisChallengeStore(client, "test:otp:"), mr
}

func newChallenge(accountID uuid.UUID, action domain.OTPAction, code string) *domain.OTPChallenge {
	return &domain.OTPChallenge{
		ID:        uuid.New(),
		AccountID: accountID,
		Action:    action,
		Code:      code,
		ExpiresAt: testNow.Add(5 * time.Minute),
		CreatedAt: testNow,
	}
}

func TestRedisChallengeStore_RoundTripAndSingleUse(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	accountID := uuid.New()

	stored := newChallenge(accountID, domain.ActionTransfer, "012345")
	if err := s.ReplaceChallenge(ctx, stored); err != nil {
		t.Fatalf("ReplaceChallenge returned error: %v", err)
	}
	key := "test:otp:" + accountID.String() + ":transfer"
	if !mr.Exists(key) {
		t.Fatalf("expected key %s to exist", key)
	}
	if ttl := mr.TTL(key); ttl != 0 {
		t.Fatalf("expected no ttl on challenge key, got %s", ttl)
	}

	loaded, err := s.GetChallenge(ctx, accountID, domain.ActionTransfer)
	if err != nil {
		t.Fatalf("GetChallenge returned error: %v", err)
	}
	if loaded.ID != stored.ID || loaded.Code != "012345" || !loaded.ExpiresAt.Equal(stored.ExpiresAt) {
		t.Fatalf("unexpected challenge: %+v", loaded)
	}

	if ok, err := s.DeleteChallenge(ctx, loaded); err != nil || !ok {
		t.Fatalf("expected first delete to succeed, got (%v, %v)", ok, err)
	}
	if ok, err := s.DeleteChallenge(ctx, loaded); err != nil || ok {
		t.Fatalf("expected second delete to report false, got (%v, %v)", ok, err)
	}
	if _, err := s.GetChallenge(ctx, accountID, domain.ActionTransfer); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after consumption, got %v", err)
	}
}

func TestRedisChallengeStore_ReplaceSupersedesPrevious(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	accountID := uuid.New()

	first := newChallenge(accountID, domain.ActionTransfer, "111111")
	second := newChallenge(accountID, domain.ActionTransfer, "222222")
	if err := s.ReplaceChallenge(ctx, first); err != nil {
		t.Fatalf("ReplaceChallenge returned error: %v", err)
	}
	if err := s.ReplaceChallenge(ctx, second); err != nil {
		t.Fatalf("ReplaceChallenge returned error: %v", err)
	}

	loaded, err := s.GetChallenge(ctx, accountID, domain.ActionTransfer)
	if err != nil {
		t.Fatalf("GetChallenge returned error: %v", err)
	}
	if loaded.ID != second.ID || loaded.Code != "222222" {
		t.Fatalf("expected the newest challenge, got %+v", loaded)
	}

	if ok, err := s.DeleteChallenge(ctx, first); err != nil || ok {
		t.Fatalf("expected superseded challenge delete to report false, got (%v, %v)", ok, err)
	}
	if _, err := s.GetChallenge(ctx, accountID, domain.ActionTransfer); err != nil {
		t.Fatalf("expected live challenge to survive a stale delete, got %v", err)
	}
	if ok, err := s.DeleteChallenge(ctx, second); err != nil || !ok {
		t.Fatalf("expected live challenge delete to succeed, got (%v, %v)", ok, err)
	}
	if _, err := s.GetChallenge(ctx, accountID, domain.ActionTransfer); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after delete, got %v", err)
	}
}

func TestRedisChallengeStore_ScopedPerAction(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	accountID := uuid.New()

	transfer := newChallenge(accountID, domain.ActionTransfer, "111111")
	addFunds := newChallenge(accountID, domain.ActionAddFunds, "222222")
	for _, c := range []*domain.OTPChallenge{transfer, addFunds} {
		if err := s.ReplaceChallenge(ctx, c); err != nil {
			t.Fatalf("ReplaceChallenge returned error: %v", err)
		}
	}

	if ok, err := s.DeleteChallenge(ctx, transfer); err != nil || !ok {
		t.Fatalf("expected transfer challenge delete to succeed, got (%v, %v)", ok, err)
	}
	loaded, err := s.GetChallenge(ctx, accountID, domain.ActionAddFunds)
	if err != nil {
		t.Fatalf("expected add-funds challenge to be untouched, got %v", err)
	}
	if loaded.ID != addFunds.ID {
		t.Fatalf("unexpected add-funds challenge: %+v", loaded)
	}
	if _, err := s.GetChallenge(ctx, uuid.New(), domain.ActionAddFunds); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected other accounts to see no challenge, got %v", err)
	}
}

func TestRedisChallengeStore_ExpiredChallengeStaysReadable(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	accountID := uuid.New()

	stored := newChallenge(accountID, domain.ActionTransfer, "012345")
	if err := s.ReplaceChallenge(ctx, stored); err != nil {
		t.Fatalf("ReplaceChallenge returned error: %v", err)
	}
	mr.FastForward(48 * time.Hour)

	loaded, err := s.GetChallenge(ctx, accountID, domain.ActionTransfer)
	if err != nil {
		t.Fatalf("expected expired challenge to remain readable, got %v", err)
	}
	if !loaded.ExpiredAt(testNow.Add(time.Hour)) {
		t.Fatalf("expected challenge to be logically expired: %+v", loaded)
	}
}
