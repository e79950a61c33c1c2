/**
 * @description
 * Identity and sessions: signup, password login with an optional login OTP,
 * the caller profile, and the startup admin seed.
 *
 * @dependencies
 * - golang.org/x/crypto/bcrypt: password hashing.
 * - internal/app/token.go: HS256 session tokens.
 */
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	accountNumberDigits   = 10
	accountNumberAttempts = 5

	// bcrypt only reads the first 72 bytes of a password.
	maxPasswordBytes = 72
)

// AuthRepository is the slice of the store the auth service uses.
type AuthRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// Session is returned by a successful login or signup.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *domain.Account `json:"account"`
}

// LoginResult is either a session or, when login OTP is on, a pending challenge.
type LoginResult struct {
	Session     *Session                 `json:"session,omitempty"`
	OTPRequired bool                     `json:"otp_required"`
	AccountID   uuid.UUID                `json:"account_id"`
	Challenge   *domain.ChallengeReceipt `json:"challenge,omitempty"`
}

// SignupInput carries the signup fields.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthService handles signup, login and session issuance.
type AuthService struct {
	repo             AuthRepository
	otp              *OTPService
	tokens           *TokenIssuer
	log              *zap.Logger
	loginOTPRequired bool
	hashCost         int
	now              func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo AuthRepository, otp *OTPService, tokens *TokenIssuer, log *zap.Logger, loginOTPRequired bool) *AuthService {
	return &AuthService{
		repo:             repo,
		otp:              otp,
		tokens:           tokens,
		log:              log,
		loginOTPRequired: loginOTPRequired,
		hashCost:         bcrypt.DefaultCost,
		now:              time.Now,
	}
}

// Signup registers a user account and returns a session for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	if len(in.Password) > maxPasswordBytes {
		return nil, domain.ErrPasswordTooLong
	}
	email := domain.NormalizeEmail(in.Email)
	if _, err := s.repo.GetAccountByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	account := &domain.Account{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Status:       domain.AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.createWithAccountNumber(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("account created",
		zap.String("component", "auth"),
		zap.String("account_id", account.ID.String()),
	)
	return s.session(account)
}

func (s *AuthService) createWithAccountNumber(ctx context.Context, account *domain.Account) error {
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		number, err := randomCode(accountNumberDigits)
		if err != nil {
			return fmt.Errorf("failed to generate account number: %w", err)
		}
		account.AccountNumber = number

		err = s.repo.CreateAccount(ctx, account)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrAccountNumberExists) {
			return err
		}
	}
	return fmt.Errorf("failed to allocate account number after %d attempts: %w", accountNumberAttempts, domain.ErrAccountNumberExists)
}

// Login checks the password. With login OTP enabled a login challenge is sent
// to the account's email and no session is returned yet.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.repo.GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if s.loginOTPRequired {
		receipt, err := s.otp.RequestChallenge(ctx, account.ID, domain.ActionLogin, domain.ChannelEmail)
		if err != nil {
			return nil, err
		}
		return &LoginResult{OTPRequired: true, AccountID: account.ID, Challenge: receipt}, nil
	}

	session, err := s.session(account)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: session, AccountID: account.ID}, nil
}

// CompleteLogin verifies the login challenge and issues the session.
func (s *AuthService) CompleteLogin(ctx context.Context, accountID uuid.UUID, code string) (*Session, error) {
	if _, err := s.otp.Verify(ctx, accountID, domain.ActionLogin, code); err != nil {
		return nil, err
	}
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.session(account)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.repo.GetAccountByID(ctx, accountID)
}

// SessionFor issues a session for an already authenticated account.
func (s *AuthService) SessionFor(ctx context.Context, accountID uuid.UUID) (*Session, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.session(account)
}

// SeedAdmin creates the administrator account if it does not exist yet.
// It is a no-op when password is empty.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, accountNumber string) error {
	if password == "" {
		return nil
	}
	if len(password) > maxPasswordBytes {
		return domain.ErrPasswordTooLong
	}
	email = domain.NormalizeEmail(email)
	if _, err := s.repo.GetAccountByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	now := s.now()
	admin := &domain.Account{
		ID:            uuid.New(),
		Name:          "Administrator",
		Email:         email,
		PasswordHash:  string(hash),
		Role:          domain.RoleAdmin,
		AccountNumber: accountNumber,
		Status:        domain.AccountActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateAccount(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	s.log.Info("admin account seeded", zap.String("component", "auth"), zap.String("email", email))
	return nil
}

func (s *AuthService) session(account *domain.Account) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(account)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// randomBytes fills n bytes from crypto/rand.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
