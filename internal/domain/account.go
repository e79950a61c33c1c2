/**
 * @description
 * This file defines the core domain model for an Account in the Horizon Bank ledger.
 * An account carries the customer's identity, credentials, balance, status and
 * the embedded beneficiary list.
 *
 * @notes
 * - Balances are `int64` minor units; the service never lets a debit cross zero.
 * - Status is only changed by an administrator; balance only by the money service.
 */
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the capability carried by a session token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
)

// Account is the ledger entry for one customer.
type Account struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone,omitempty"`
	PasswordHash  string        `json:"-"`
	Role          Role          `json:"role"`
	AccountNumber string        `json:"account_number"`
	Balance       int64         `json:"balance"` // minor units
	Status        AccountStatus `json:"status"`
	Beneficiaries []Beneficiary `json:"beneficiaries"`
	Credentials   []string      `json:"-"` // registered biometric credential ids
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Beneficiary is a saved transfer target, unique per owner on AccountNumber.
type Beneficiary struct {
	Name          string    `json:"name"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsFrozen reports whether the account is barred from sending transfers.
func (a *Account) IsFrozen() bool {
	return a.Status == AccountFrozen
}

// HasBeneficiary reports whether accountNumber is already in the beneficiary set.
func (a *Account) HasBeneficiary(accountNumber string) bool {
	for _, b := range a.Beneficiaries {
		if b.AccountNumber == accountNumber {
			return true
		}
	}
	return false
}

// HasCredential reports whether a biometric credential id is registered.
func (a *Account) HasCredential(credentialID string) bool {
	for _, c := range a.Credentials {
		if c == credentialID {
			return true
		}
	}
	return false
}

// Principal is the caller identity asserted by a verified session token.
type Principal struct {
	AccountID uuid.UUID
	Email     string
	Role      Role
}

// IsAdmin reports whether the principal holds the administrative capability.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BalanceView is the read model returned by balance lookups.
type BalanceView struct {
	AccountID     uuid.UUID     `json:"account_id"`
	AccountNumber string        `json:"account_number"`
	Balance       int64         `json:"balance"`
	Display       string        `json:"display_balance"`
	Status        AccountStatus `json:"status"`
}
