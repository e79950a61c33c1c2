package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var deleteChallengeScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "id") == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisChallengeStore keeps OTP challenges in Redis hashes keyed by
// prefix:accountID:action. Keys carry no TTL: expiry is logical, and a key
// lives until it is consumed or replaced by the next request for the pair.
type RedisChallengeStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisChallengeStore(client redis.UniversalClient, prefix string) *RedisChallengeStore {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = "horizon:otp"
	}
	return &RedisChallengeStore{client: client, prefix: trimmedPrefix}
}

func (s *RedisChallengeStore) key(accountID uuid.UUID, action domain.OTPAction) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, accountID, action)
}

func (s *RedisChallengeStore) ReplaceChallenge(ctx context.Context, challenge *domain.OTPChallenge) error {
	key := s.key(challenge.AccountID, challenge.Action)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"id", challenge.ID.String(),
			"code", challenge.Code,
			"expires_at", strconv.FormatInt(challenge.ExpiresAt.UnixMilli(), 10),
			"created_at", strconv.FormatInt(challenge.CreatedAt.UnixMilli(), 10),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) GetChallenge(ctx context.Context, accountID uuid.UUID, action domain.OTPAction) (*domain.OTPChallenge, error) {
	fields, err := s.client.HGetAll(ctx, s.key(accountID, action)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrChallengeNotFound
	}
	return decodeChallenge(accountID, action, fields)
}

func decodeChallenge(accountID uuid.UUID, action domain.OTPAction, fields map[string]string) (*domain.OTPChallenge, error) {
	id, err := uuid.Parse(fields["id"])
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge id: %w", err)
	}
	expiresMs, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge expiry: %w", err)
	}
	createdMs, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge creation time: %w", err)
	}
	code, ok := fields["code"]
	if !ok {
		return nil, errors.New("corrupt challenge: missing code")
	}
	return &domain.OTPChallenge{
		ID:        id,
		AccountID: accountID,
		Action:    action,
		Code:      code,
		ExpiresAt: time.UnixMilli(expiresMs),
		CreatedAt: time.UnixMilli(createdMs),
	}, nil
}

func (s *RedisChallengeStore) DeleteChallenge(ctx context.Context, challenge *domain.OTPChallenge) (bool, error) {
	deleted, err := deleteChallengeScript.Run(ctx, s.client,
		[]string{s.key(challenge.AccountID, challenge.Action)}, challenge.ID.String()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to delete challenge: %w", err)
	}
	return deleted == 1, nil
}
