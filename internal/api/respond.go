package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adarsh140528/Horizon-Bank/internal/app"
	"github.com/adarsh140528/Horizon-Bank/internal/domain"
)

const (
	kindValidation           = "validation"
	kindNotFound             = "not_found"
	kindInvalidAmount        = "invalid_amount"
	kindInsufficientFunds    = "insufficient_funds"
	kindAccountFrozen        = "account_frozen"
	kindForbidden            = "forbidden"
	kindTicketInvalid        = "ticket_invalid"
	kindDuplicateBeneficiary = "duplicate_beneficiary"
	kindSelfTransfer         = "self_transfer"
	kindOTPMismatch          = "otp_mismatch"
	kindOTPExpired           = "otp_expired"
	kindUnauthorized         = "unauthorized"
	kindEmailTaken           = "email_taken"
	kindNotImplemented       = "not_implemented"
	kindInternal             = "internal"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

// errorStatus maps a service error to its HTTP status and kind. Order
// matters: ErrTicketInvalid wraps ErrForbidden.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrTicketInvalid):
		return http.StatusForbidden, kindTicketInvalid
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, kindForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, kindInvalidAmount
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired, kindInsufficientFunds
	case errors.Is(err, domain.ErrAccountFrozen):
		return http.StatusLocked, kindAccountFrozen
	case errors.Is(err, domain.ErrDuplicateBeneficiary):
		return http.StatusConflict, kindDuplicateBeneficiary
	case errors.Is(err, domain.ErrSelfTransfer):
		return http.StatusBadRequest, kindSelfTransfer
	case errors.Is(err, domain.ErrOTPMismatch):
		return http.StatusBadRequest, kindOTPMismatch
	case errors.Is(err, domain.ErrOTPExpired):
		return http.StatusGone, kindOTPExpired
	case errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, domain.ErrInvalidChannel),
		errors.Is(err, domain.ErrPasswordTooLong):
		return http.StatusBadRequest, kindValidation
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrWebAuthnChallenge),
		errors.Is(err, app.ErrInvalidToken):
		return http.StatusUnauthorized, kindUnauthorized
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, kindEmailTaken
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

// respondWithError writes err with its mapped status. Internal errors get a
// generic message.
func respondWithError(w http.ResponseWriter, err error) int {
	status, kind := errorStatus(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, kind, "Internal server error")
		return status
	}
	writeError(w, status, kind, err.Error())
	return status
}
