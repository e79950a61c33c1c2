/**
 * @description
 * Biometric login demo. It mimics the WebAuthn ceremony shape (options, then
 * verify against the issued challenge) but performs no attestation or
 * signature verification. It is only reachable when WEBAUTHN_DEMO_MODE is on
 * and every response is labelled demo_mode.
 */
package app

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	webAuthnChallengeBytes = 32
	webAuthnChallengeTTL   = 2 * time.Minute
	webAuthnTimeoutMillis  = 60000
)

// WebAuthnRepository is the slice of the store the demo uses.
type WebAuthnRepository interface {
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	AddCredential(ctx context.Context, id uuid.UUID, credentialID string, now time.Time) error
}

type RelyingParty struct {
	Name string `json:"name"`
}

type WebAuthnUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type AllowedCredential struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// RegistrationOptions is returned by RegisterOptions.
type RegistrationOptions struct {
	DemoMode  bool         `json:"demo_mode"`
	Challenge string       `json:"challenge"`
	RP        RelyingParty `json:"rp"`
	User      WebAuthnUser `json:"user"`
	Timeout   int          `json:"timeout"`
}

// LoginOptions is returned by LoginOptions.
type LoginOptions struct {
	DemoMode         bool                `json:"demo_mode"`
	Challenge        string              `json:"challenge"`
	AllowCredentials []AllowedCredential `json:"allowCredentials"`
	Timeout          int                 `json:"timeout"`
}

type pendingChallenge struct {
	value     string
	expiresAt time.Time
}

// WebAuthnDemo runs the demo ceremonies. Challenges live in memory and are
// single use.
type WebAuthnDemo struct {
	repo   WebAuthnRepository
	auth   *AuthService
	log    *zap.Logger
	rpName string
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]pendingChallenge
}

// NewWebAuthnDemo creates a new WebAuthnDemo.
func NewWebAuthnDemo(repo WebAuthnRepository, auth *AuthService, log *zap.Logger, rpName string) *WebAuthnDemo {
	return &WebAuthnDemo{
		repo:    repo,
		auth:    auth,
		log:     log,
		rpName:  rpName,
		now:     time.Now,
		pending: make(map[string]pendingChallenge),
	}
}

func registrationKey(accountID uuid.UUID) string {
	return "register:" + accountID.String()
}

func loginKey(email string) string {
	return "login:" + email
}

func (d *WebAuthnDemo) issue(key string) (string, error) {
	raw, err := randomBytes(webAuthnChallengeBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	challenge := base64.RawURLEncoding.EncodeToString(raw)

	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, p := range d.pending {
		if !now.Before(p.expiresAt) {
			delete(d.pending, k)
		}
	}
	d.pending[key] = pendingChallenge{value: challenge, expiresAt: now.Add(webAuthnChallengeTTL)}
	return challenge, nil
}

// consume removes the pending challenge for key and reports whether it
// matched and was still live. A consumed challenge cannot be reused.
func (d *WebAuthnDemo) consume(key, challenge string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[key]
	if !ok {
		return false
	}
	delete(d.pending, key)
	if !d.now().Before(p.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.value), []byte(challenge)) == 1
}

// RegisterOptions starts a credential registration for the account.
func (d *WebAuthnDemo) RegisterOptions(ctx context.Context, accountID uuid.UUID) (*RegistrationOptions, error) {
	account, err := d.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	challenge, err := d.issue(registrationKey(account.ID))
	if err != nil {
		return nil, err
	}
	return &RegistrationOptions{
		DemoMode:  true,
		Challenge: challenge,
		RP:        RelyingParty{Name: d.rpName},
		User: WebAuthnUser{
			ID:          account.ID.String(),
			Name:        account.Email,
			DisplayName: account.Name,
		},
		Timeout: webAuthnTimeoutMillis,
	}, nil
}

// VerifyRegistration stores credentialID on the account when challenge
// matches the one issued by RegisterOptions.
func (d *WebAuthnDemo) VerifyRegistration(ctx context.Context, accountID uuid.UUID, credentialID, challenge string) error {
	credentialID = strings.TrimSpace(credentialID)
	if credentialID == "" || !d.consume(registrationKey(accountID), challenge) {
		return domain.ErrWebAuthnChallenge
	}
	if err := d.repo.AddCredential(ctx, accountID, credentialID, d.now()); err != nil {
		return err
	}
	d.log.Info("biometric credential registered (demo mode)",
		zap.String("component", "webauthn"),
		zap.String("account_id", accountID.String()),
	)
	return nil
}

// LoginOptions starts a biometric login for the account with email.
func (d *WebAuthnDemo) LoginOptions(ctx context.Context, email string) (*LoginOptions, error) {
	account, err := d.repo.GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	challenge, err := d.issue(loginKey(account.Email))
	if err != nil {
		return nil, err
	}
	allowed := make([]AllowedCredential, 0, len(account.Credentials))
	for _, id := range account.Credentials {
		allowed = append(allowed, AllowedCredential{ID: id, Type: "public-key"})
	}
	return &LoginOptions{
		DemoMode:         true,
		Challenge:        challenge,
		AllowCredentials: allowed,
		Timeout:          webAuthnTimeoutMillis,
	}, nil
}

// VerifyLogin issues a session when challenge matches and credentialID is
// registered on the account.
func (d *WebAuthnDemo) VerifyLogin(ctx context.Context, email, credentialID, challenge string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if !d.consume(loginKey(email), challenge) {
		return nil, domain.ErrWebAuthnChallenge
	}
	account, err := d.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !account.HasCredential(strings.TrimSpace(credentialID)) {
		return nil, domain.ErrInvalidCredentials
	}
	d.log.Info("biometric login (demo mode)",
		zap.String("component", "webauthn"),
		zap.String("account_id", account.ID.String()),
	)
	return d.auth.SessionFor(ctx, account.ID)
}
