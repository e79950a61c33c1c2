/**
 * @description
 * OTP challenge and verification ticket models.
 *
 * @notes
 * - At most one live challenge exists per (account, action); issuing a new one
 *   deletes the previous one.
 * - A verification ticket is the single-use proof a gated mutation must redeem.
 */
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OTPAction is the action a challenge is scoped to.
type OTPAction string

const (
	ActionAddFunds       OTPAction = "add-funds"
	ActionTransfer       OTPAction = "transfer"
	ActionAddBeneficiary OTPAction = "add-beneficiary"
	ActionLogin          OTPAction = "login"
)

// ParseOTPAction accepts the canonical names plus the legacy camel-case aliases.
func ParseOTPAction(raw string) (OTPAction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "add-funds", "addmoney", "add_money", "add-money":
		return ActionAddFunds, true
	case "transfer":
		return ActionTransfer, true
	case "add-beneficiary", "addbeneficiary", "add_beneficiary":
		return ActionAddBeneficiary, true
	case "login":
		return ActionLogin, true
	}
	return "", false
}

// Gated reports whether a verified challenge for this action yields a ticket.
func (a OTPAction) Gated() bool {
	return a == ActionAddFunds || a == ActionTransfer || a == ActionAddBeneficiary
}

// Label renders the action for human-facing messages, e.g. "Add Funds".
func (a OTPAction) Label() string {
	words := strings.ReplaceAll(string(a), "-", " ")
	return cases.Title(language.English).String(words)
}

// DeliveryChannel selects where a code is sent.
type DeliveryChannel string

const (
	ChannelEmail DeliveryChannel = "email"
	ChannelSMS   DeliveryChannel = "sms"
)

// OTPChallenge is a short-lived one-time code scoped to one account and one action.
type OTPChallenge struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Action    OTPAction `json:"action"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiredAt reports whether the challenge is expired at now (expiry is exclusive).
func (c *OTPChallenge) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ChallengeReceipt is returned to the caller after a challenge is issued.
type ChallengeReceipt struct {
	AccountID uuid.UUID       `json:"account_id"`
	Action    OTPAction       `json:"action"`
	Channel   DeliveryChannel `json:"channel"`
	ExpiresAt time.Time       `json:"expires_at"`
	Delivered bool            `json:"delivered"`
}

// VerificationTicket proves a successful OTP verification for one gated action.
type VerificationTicket struct {
	ID        uuid.UUID `json:"ticket"`
	AccountID uuid.UUID `json:"account_id"`
	Action    OTPAction `json:"action"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"-"`
}

// TicketClaim is what a mutation presents to redeem a ticket.
type TicketClaim struct {
	TicketID  uuid.UUID
	AccountID uuid.UUID
	Action    OTPAction
}

// Matches reports whether the ticket may be redeemed for the claim at now.
func (t *VerificationTicket) Matches(claim TicketClaim, now time.Time) bool {
	return t.ID == claim.TicketID &&
		t.AccountID == claim.AccountID &&
		t.Action == claim.Action &&
		now.Before(t.ExpiresAt)
}
