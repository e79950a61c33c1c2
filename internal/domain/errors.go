package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the root of every lookup failure.
var ErrNotFound = errors.New("not found")

var (
	ErrAccountNotFound   = fmt.Errorf("account %w", ErrNotFound)
	ErrReceiverNotFound  = fmt.Errorf("receiver account %w", ErrNotFound)
	ErrChallengeNotFound = fmt.Errorf("otp challenge %w", ErrNotFound)

	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAccountFrozen        = errors.New("account is frozen")
	ErrForbidden            = errors.New("forbidden")
	ErrTicketInvalid        = fmt.Errorf("verification ticket invalid or already used: %w", ErrForbidden)
	ErrDuplicateBeneficiary = errors.New("beneficiary already exists")
	ErrSelfTransfer         = errors.New("cannot transfer to the same account")

	ErrInvalidAction  = errors.New("unknown otp action")
	ErrInvalidChannel = errors.New("unknown delivery channel")
	ErrOTPMismatch    = errors.New("incorrect otp")
	ErrOTPExpired     = errors.New("otp expired")
	ErrDeliveryFailed = errors.New("otp delivery failed")

	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrPasswordTooLong     = errors.New("password must be at most 72 bytes")
	ErrAccountNumberExists = errors.New("account number already exists")
	ErrWebAuthnChallenge   = errors.New("biometric challenge missing, expired or mismatched")
)
