/**
 * @description
 * The OTP challenge service. It issues one live code per (account, action),
 * verifies submitted codes exactly once, and turns a successful verification of
 * a gated action into a single-use verification ticket.
 *
 * @notes
 * - A mismatched or expired attempt leaves the challenge in place.
 * - Delivery failure is logged and reported on the receipt; the challenge stays.
 */
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const otpDigits = 6

// AccountReader resolves accounts by id.
type AccountReader interface {
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// OTPService issues and verifies OTP challenges.
type OTPService struct {
	accounts   AccountReader
	challenges store.ChallengeStore
	tickets    store.TicketRepository
	delivery   Deliverer
	log        *zap.Logger
	codeTTL    time.Duration
	ticketTTL  time.Duration
	now        func() time.Time
	newCode    func() (string, error)
}

// NewOTPService creates a new OTPService.
func NewOTPService(
	accounts AccountReader,
	challenges store.ChallengeStore,
	tickets store.TicketRepository,
	delivery Deliverer,
	log *zap.Logger,
	codeTTL time.Duration,
	ticketTTL time.Duration,
) *OTPService {
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	if ticketTTL <= 0 {
		ticketTTL = 5 * time.Minute
	}
	return &OTPService{
		accounts:   accounts,
		challenges: challenges,
		tickets:    tickets,
		delivery:   delivery,
		log:        log,
		codeTTL:    codeTTL,
		ticketTTL:  ticketTTL,
		now:        time.Now,
		newCode:    func() (string, error) { return randomCode(otpDigits) },
	}
}

// randomCode draws a uniform numeric code of the given length.
func randomCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

func validAction(action domain.OTPAction) bool {
	parsed, ok := domain.ParseOTPAction(string(action))
	return ok && parsed == action
}

// RequestChallenge replaces any challenge for (accountID, action) with a fresh
// code and sends it over channel.
func (s *OTPService) RequestChallenge(ctx context.Context, accountID uuid.UUID, action domain.OTPAction, channel domain.DeliveryChannel) (*domain.ChallengeReceipt, error) {
	if !validAction(action) {
		return nil, domain.ErrInvalidAction
	}
	if channel != domain.ChannelEmail && channel != domain.ChannelSMS {
		return nil, domain.ErrInvalidChannel
	}

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	now := s.now()
	challenge := &domain.OTPChallenge{
		ID:        uuid.New(),
		AccountID: account.ID,
		Action:    action,
		Code:      code,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}
	if err := s.challenges.ReplaceChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store otp challenge: %w", err)
	}

	receipt := &domain.ChallengeReceipt{
		AccountID: account.ID,
		Action:    action,
		Channel:   channel,
		ExpiresAt: challenge.ExpiresAt,
	}
	if err := s.delivery.Deliver(ctx, account, channel, code, action); err != nil {
		s.log.Warn("otp delivery failed",
			zap.String("component", "otp"),
			zap.String("account_id", account.ID.String()),
			zap.String("action", string(action)),
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		return receipt, nil
	}
	receipt.Delivered = true

	s.log.Info("otp challenge issued",
		zap.String("component", "otp"),
		zap.String("account_id", account.ID.String()),
		zap.String("action", string(action)),
		zap.String("channel", string(channel)),
	)
	return receipt, nil
}

// Verify checks code against the live challenge for the pair. On success the
// challenge is consumed and, for gated actions, a verification ticket is
// returned. Login challenges return a nil ticket.
//
// Failures: ErrChallengeNotFound (absent, consumed or superseded),
// ErrOTPMismatch, ErrOTPExpired.
func (s *OTPService) Verify(ctx context.Context, accountID uuid.UUID, action domain.OTPAction, code string) (*domain.VerificationTicket, error) {
	if !validAction(action) {
		return nil, domain.ErrInvalidAction
	}

	challenge, err := s.challenges.GetChallenge(ctx, accountID, action)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) != 1 {
		s.logRejected(accountID, action, "mismatch")
		return nil, domain.ErrOTPMismatch
	}
	now := s.now()
	if challenge.ExpiredAt(now) {
		s.logRejected(accountID, action, "expired")
		return nil, domain.ErrOTPExpired
	}

	consumed, err := s.challenges.DeleteChallenge(ctx, challenge)
	if err != nil {
		return nil, fmt.Errorf("failed to consume otp challenge: %w", err)
	}
	if !consumed {
		// Lost a race with another verify or a newer request.
		return nil, domain.ErrChallengeNotFound
	}

	if !action.Gated() {
		return nil, nil
	}

	ticket := &domain.VerificationTicket{
		ID:        uuid.New(),
		AccountID: accountID,
		Action:    action,
		ExpiresAt: now.Add(s.ticketTTL),
		CreatedAt: now,
	}
	if err := s.tickets.IssueTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to issue verification ticket: %w", err)
	}

	s.log.Info("otp verified",
		zap.String("component", "otp"),
		zap.String("account_id", accountID.String()),
		zap.String("action", string(action)),
	)
	return ticket, nil
}

// VerifyChallenge is the boolean form of Verify: a mismatched or expired code
// yields false with no error. Only a missing challenge is an error.
func (s *OTPService) VerifyChallenge(ctx context.Context, accountID uuid.UUID, action domain.OTPAction, code string) (bool, error) {
	_, err := s.Verify(ctx, accountID, action, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrOTPMismatch), errors.Is(err, domain.ErrOTPExpired):
		return false, nil
	default:
		return false, err
	}
}

func (s *OTPService) logRejected(accountID uuid.UUID, action domain.OTPAction, reason string) {
	s.log.Info("otp rejected",
		zap.String("component", "otp"),
		zap.String("account_id", accountID.String()),
		zap.String("action", string(action)),
		zap.String("outcome", reason),
	)
}
