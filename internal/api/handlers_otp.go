package api

import (
	"net/http"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
)

type otpRequestRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Action    string `json:"action" validate:"required"`
	Channel   string `json:"channel" validate:"required,oneof=email sms"`
}

type otpVerifyRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Action    string `json:"action" validate:"required"`
	Code      string `json:"code" validate:"required,max=16"`
}

type otpVerifyResponse struct {
	Verified  bool             `json:"verified"`
	Action    domain.OTPAction `json:"action"`
	Ticket    *uuid.UUID       `json:"ticket,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req otpRequestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	accountID, ok := h.authorizeAccount(w, principal, req.AccountID, "otp_request")
	if !ok {
		return
	}
	action, ok := domain.ParseOTPAction(req.Action)
	if !ok {
		h.fail(w, "otp_request", domain.ErrInvalidAction)
		return
	}

	receipt, err := h.otp.RequestChallenge(r.Context(), accountID, action, domain.DeliveryChannel(req.Channel))
	if err != nil {
		h.fail(w, "otp_request", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req otpVerifyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	accountID, ok := h.authorizeAccount(w, principal, req.AccountID, "otp_verify")
	if !ok {
		return
	}
	action, ok := domain.ParseOTPAction(req.Action)
	if !ok {
		h.fail(w, "otp_verify", domain.ErrInvalidAction)
		return
	}

	ticket, err := h.otp.Verify(r.Context(), accountID, action, req.Code)
	if err != nil {
		h.fail(w, "otp_verify", err)
		return
	}

	resp := otpVerifyResponse{Verified: true, Action: action}
	if ticket != nil {
		resp.Ticket = &ticket.ID
		resp.ExpiresAt = &ticket.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}
