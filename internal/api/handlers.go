/**
 * @description
 * HTTP handlers for the ledger service. Handlers decode and validate the
 * request, enforce ownership, call the application services and map their
 * errors to statuses.
 *
 * @dependencies
 * - internal/app: application services.
 * - github.com/go-chi/chi/v5: URL parameters.
 * - go.uber.org/zap: request outcome logging.
 */
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/adarsh140528/Horizon-Bank/internal/app"
	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler holds the application services the handlers interact with.
type Handler struct {
	auth     *app.AuthService
	otp      *app.OTPService
	money    *app.MoneyService
	admin    *app.AdminService
	webauthn *app.WebAuthnDemo
	log      *zap.Logger
}

// Services groups the handler dependencies. WebAuthn is nil when demo mode is off.
type Services struct {
	Auth     *app.AuthService
	OTP      *app.OTPService
	Money    *app.MoneyService
	Admin    *app.AdminService
	WebAuthn *app.WebAuthnDemo
}

// NewHandler creates a new Handler.
func NewHandler(s Services, log *zap.Logger) *Handler {
	return &Handler{
		auth:     s.Auth,
		otp:      s.OTP,
		money:    s.Money,
		admin:    s.Admin,
		webauthn: s.WebAuthn,
		log:      log,
	}
}

// fail writes err and logs the outcome under endpoint.
func (h *Handler) fail(w http.ResponseWriter, endpoint string, err error) {
	status := respondWithError(w, err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("component", "api"),
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
			zap.Error(err),
		)
		return
	}
	h.log.Info("request rejected",
		zap.String("component", "api"),
		zap.String("endpoint", endpoint),
		zap.Int("status", status),
		zap.String("outcome", err.Error()),
	)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "Unauthorized")
	}
	return principal, ok
}

// ownedAccountID parses the {id} URL parameter and checks the caller may act
// on it.
func (h *Handler) ownedAccountID(w http.ResponseWriter, r *http.Request, endpoint string) (uuid.UUID, bool) {
	principal, ok := h.principal(w, r)
	if !ok {
		return uuid.Nil, false
	}
	return h.authorizeAccount(w, principal, chi.URLParam(r, "id"), endpoint)
}

func (h *Handler) authorizeAccount(w http.ResponseWriter, principal domain.Principal, raw, endpoint string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "Invalid account ID format")
		return uuid.Nil, false
	}
	if err := app.RequireOwnerOrAdmin(principal, id); err != nil {
		h.fail(w, endpoint, err)
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return 0
	}
	return n
}

func queryInt64(r *http.Request, name string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(name)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
