package api

import (
	"net/http"
)

type webAuthnRegisterVerifyRequest struct {
	CredentialID string `json:"credential_id" validate:"required,max=1024"`
	Challenge    string `json:"challenge" validate:"required"`
}

type webAuthnLoginOptionsRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type webAuthnLoginVerifyRequest struct {
	Email        string `json:"email" validate:"required,email"`
	CredentialID string `json:"credential_id" validate:"required,max=1024"`
	Challenge    string `json:"challenge" validate:"required"`
}

// demoDisabled answers every biometric route when demo mode is off.
func demoDisabled(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, kindNotImplemented, "Biometric login is only available in demo mode")
}

func (h *Handler) handleWebAuthnRegisterOptions(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	options, err := h.webauthn.RegisterOptions(r.Context(), principal.AccountID)
	if err != nil {
		h.fail(w, "webauthn_register_options", err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (h *Handler) handleWebAuthnRegisterVerify(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req webAuthnRegisterVerifyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if err := h.webauthn.VerifyRegistration(r.Context(), principal.AccountID, req.CredentialID, req.Challenge); err != nil {
		h.fail(w, "webauthn_register_verify", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"demo_mode": true, "registered": true})
}

func (h *Handler) handleWebAuthnLoginOptions(w http.ResponseWriter, r *http.Request) {
	var req webAuthnLoginOptionsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	options, err := h.webauthn.LoginOptions(r.Context(), req.Email)
	if err != nil {
		h.fail(w, "webauthn_login_options", err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (h *Handler) handleWebAuthnLoginVerify(w http.ResponseWriter, r *http.Request) {
	var req webAuthnLoginVerifyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	session, err := h.webauthn.VerifyLogin(r.Context(), req.Email, req.CredentialID, req.Challenge)
	if err != nil {
		h.fail(w, "webauthn_login_verify", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"demo_mode": true, "session": session})
}
