package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/app"
	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/internal/store"
	"github.com/adarsh140528/Horizon-Bank/pkg/rabbitmq"
	"go.uber.org/zap"
)

// codeCatcher records the last code sent per account so tests can verify it.
type codeCatcher struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *codeCatcher) Deliver(ctx context.Context, account *domain.Account, channel domain.DeliveryChannel, code string, action domain.OTPAction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[account.ID.String()+"/"+string(action)] = code
	return nil
}

func (c *codeCatcher) code(t *testing.T, accountID string, action domain.OTPAction) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.codes[accountID+"/"+string(action)]
	if !ok {
		t.Fatalf("no code delivered for %s/%s", accountID, action)
	}
	return code
}

type testServer struct {
	*httptest.Server
	repo   *store.MemoryRepository
	auth   *app.AuthService
	codes  *codeCatcher
	tokens *app.TokenIssuer
}

func newTestServer(t *testing.T, withWebAuthn bool) *testServer {
	t.Helper()
	log := zap.NewNop()
	repo := store.NewMemoryRepository()
	codes := &codeCatcher{codes: map[string]string{}}
	publisher := &rabbitmq.EventProducerFallback{}

	tokens := app.NewTokenIssuer("handler-test-secret", time.Hour)
	otp := app.NewOTPService(repo, repo, repo, codes, log, 5*time.Minute, 5*time.Minute)
	auth := app.NewAuthService(repo, otp, tokens, log, false)
	services := Services{
		Auth:  auth,
		OTP:   otp,
		Money: app.NewMoneyService(repo, publisher, "test.events", log),
		Admin: app.NewAdminService(repo, publisher, "test.events", log, 2, 50000),
	}
	if withWebAuthn {
		services.WebAuthn = app.NewWebAuthnDemo(repo, auth, log, "Horizon Bank")
	}

	router := NewRouter(NewHandler(services, log), RouterOptions{Tokens: tokens})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, repo: repo, auth: auth, codes: codes, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type sessionBody struct {
	Token   string         `json:"token"`
	Account domain.Account `json:"account"`
}

func (s *testServer) signup(t *testing.T, email string) sessionBody {
	t.Helper()
	var session sessionBody
	status := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name":     "Holder",
		"email":    email,
		"password": "secret-pass",
		"phone":    "9876543210",
	}, &session)
	if status != http.StatusCreated {
		t.Fatalf("signup returned %d", status)
	}
	return session
}

func (s *testServer) ticket(t *testing.T, session sessionBody, action domain.OTPAction) string {
	t.Helper()
	id := session.Account.ID.String()
	status := s.do(t, http.MethodPost, "/api/otp/request", session.Token, map[string]string{
		"account_id": id,
		"action":     string(action),
		"channel":    "email",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("otp request returned %d", status)
	}

	var verified struct {
		Verified bool   `json:"verified"`
		Ticket   string `json:"ticket"`
	}
	status = s.do(t, http.MethodPost, "/api/otp/verify", session.Token, map[string]string{
		"account_id": id,
		"action":     string(action),
		"code":       s.codes.code(t, id, action),
	}, &verified)
	if status != http.StatusOK || !verified.Verified || verified.Ticket == "" {
		t.Fatalf("otp verify returned %d %+v", status, verified)
	}
	return verified.Ticket
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)
	var body map[string]string
	if status := srv.do(t, http.MethodGet, "/health", "", nil, &body); status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", status, body)
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t, false)
	session := srv.signup(t, "alice@example.com")

	var dup errorResponse
	status := srv.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Again", "email": "alice@example.com", "password": "secret-pass",
	}, &dup)
	if status != http.StatusConflict || dup.Kind != kindEmailTaken {
		t.Fatalf("expected 409 email_taken, got %d %+v", status, dup)
	}

	var bad errorResponse
	status = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-pass",
	}, &bad)
	if status != http.StatusUnauthorized || bad.Kind != kindUnauthorized {
		t.Fatalf("expected 401 unauthorized, got %d %+v", status, bad)
	}

	var me domain.Account
	if status := srv.do(t, http.MethodGet, "/api/auth/me", session.Token, nil, &me); status != http.StatusOK || me.ID != session.Account.ID {
		t.Fatalf("unexpected /me response %d %+v", status, me)
	}
	if status := srv.do(t, http.MethodGet, "/api/auth/me", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status := srv.do(t, http.MethodGet, "/api/auth/me", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a bad token, got %d", status)
	}
}

func TestValidationErrorsListFields(t *testing.T) {
	srv := newTestServer(t, false)

	var resp errorResponse
	status := srv.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "123",
	}, &resp)
	if status != http.StatusBadRequest || resp.Kind != kindValidation {
		t.Fatalf("expected 400 validation, got %d %+v", status, resp)
	}
	for _, field := range []string{"name", "email", "password"} {
		if _, ok := resp.Fields[field]; !ok {
			t.Errorf("expected field error for %q, got %v", field, resp.Fields)
		}
	}

	status = srv.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"a@b.co","password":"x","extra":true}`, &resp)
	if status != http.StatusBadRequest {
		t.Fatalf("expected unknown fields to be rejected, got %d", status)
	}
}

func TestSignupRejectsPasswordOverByteLimit(t *testing.T) {
	srv := newTestServer(t, false)

	var resp errorResponse
	status := srv.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Eve", "email": "eve@example.com", "password": strings.Repeat("é", 40),
	}, &resp)
	if status != http.StatusBadRequest || resp.Kind != kindValidation {
		t.Fatalf("expected 400 validation, got %d %+v", status, resp)
	}
	if msg := resp.Fields["password"]; msg != "must be at most 72 bytes" {
		t.Fatalf("unexpected password field error %q", msg)
	}

	rec := httptest.NewRecorder()
	respondWithError(rec, domain.ErrPasswordTooLong)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected ErrPasswordTooLong to map to 400, got %d", rec.Code)
	}
}

func TestMoneyFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, false)
	alice := srv.signup(t, "alice@example.com")
	bob := srv.signup(t, "bob@example.com")
	base := "/api/accounts/" + alice.Account.ID.String()

	var resp errorResponse
	status := srv.do(t, http.MethodPost, base+"/add-funds", alice.Token, map[string]interface{}{
		"amount": 1000,
		"ticket": "00000000-0000-0000-0000-000000000000",
	}, &resp)
	if status != http.StatusForbidden || resp.Kind != kindTicketInvalid {
		t.Fatalf("expected 403 ticket_invalid, got %d %+v", status, resp)
	}

	var added struct {
		Balance domain.BalanceView `json:"balance"`
	}
	status = srv.do(t, http.MethodPost, base+"/add-funds", alice.Token, map[string]interface{}{
		"amount": 1000,
		"ticket": srv.ticket(t, alice, domain.ActionAddFunds),
	}, &added)
	if status != http.StatusOK || added.Balance.Balance != 1000 || added.Balance.Display != "10.00" {
		t.Fatalf("unexpected add-funds response %d %+v", status, added)
	}

	status = srv.do(t, http.MethodPost, base+"/transfer", alice.Token, map[string]interface{}{
		"receiver_account_number": bob.Account.AccountNumber,
		"amount":                  5000,
		"ticket":                  srv.ticket(t, alice, domain.ActionTransfer),
	}, &resp)
	if status != http.StatusPaymentRequired || resp.Kind != kindInsufficientFunds {
		t.Fatalf("expected 402 insufficient_funds, got %d %+v", status, resp)
	}

	var moved struct {
		Balance domain.BalanceView `json:"balance"`
	}
	status = srv.do(t, http.MethodPost, base+"/transfer", alice.Token, map[string]interface{}{
		"receiver_account_number": bob.Account.AccountNumber,
		"amount":                  400,
		"ticket":                  srv.ticket(t, alice, domain.ActionTransfer),
	}, &moved)
	if status != http.StatusOK || moved.Balance.Balance != 600 {
		t.Fatalf("unexpected transfer response %d %+v", status, moved)
	}

	var history []domain.TransactionView
	if status := srv.do(t, http.MethodGet, "/api/accounts/"+bob.Account.ID.String()+"/transactions", bob.Token, nil, &history); status != http.StatusOK {
		t.Fatalf("history returned %d", status)
	}
	if len(history) != 1 || history[0].SenderAccount != alice.Account.AccountNumber {
		t.Fatalf("unexpected receiver history: %+v", history)
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	srv := newTestServer(t, false)
	alice := srv.signup(t, "alice@example.com")
	mallory := srv.signup(t, "mallory@example.com")

	var resp errorResponse
	status := srv.do(t, http.MethodGet, "/api/accounts/"+alice.Account.ID.String(), mallory.Token, nil, &resp)
	if status != http.StatusForbidden || resp.Kind != kindForbidden {
		t.Fatalf("expected 403 forbidden, got %d %+v", status, resp)
	}

	status = srv.do(t, http.MethodPost, "/api/otp/request", mallory.Token, map[string]string{
		"account_id": alice.Account.ID.String(),
		"action":     "transfer",
		"channel":    "email",
	}, &resp)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 when requesting an otp for another account, got %d", status)
	}

	if status := srv.do(t, http.MethodGet, "/api/accounts/not-a-uuid", alice.Token, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed id, got %d", status)
	}
}

func TestBeneficiariesOverHTTP(t *testing.T) {
	srv := newTestServer(t, false)
	alice := srv.signup(t, "alice@example.com")
	base := "/api/accounts/" + alice.Account.ID.String() + "/beneficiaries"

	var list []domain.Beneficiary
	status := srv.do(t, http.MethodPost, base, alice.Token, map[string]string{
		"name":           "Bob",
		"account_number": "2000000002",
		"ticket":         srv.ticket(t, alice, domain.ActionAddBeneficiary),
	}, &list)
	if status != http.StatusCreated || len(list) != 1 {
		t.Fatalf("unexpected add beneficiary response %d %+v", status, list)
	}

	var resp errorResponse
	status = srv.do(t, http.MethodPost, base, alice.Token, map[string]string{
		"name":           "Bob",
		"account_number": "2000000002",
		"ticket":         srv.ticket(t, alice, domain.ActionAddBeneficiary),
	}, &resp)
	if status != http.StatusConflict || resp.Kind != kindDuplicateBeneficiary {
		t.Fatalf("expected 409 duplicate_beneficiary, got %d %+v", status, resp)
	}

	if status := srv.do(t, http.MethodDelete, base+"/2000000002", alice.Token, nil, &list); status != http.StatusOK || len(list) != 0 {
		t.Fatalf("unexpected remove response %d %+v", status, list)
	}
}

func TestAdminRoutes(t *testing.T) {
	srv := newTestServer(t, false)
	alice := srv.signup(t, "alice@example.com")

	if status := srv.do(t, http.MethodGet, "/api/admin/stats", alice.Token, nil, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-admin, got %d", status)
	}

	if err := srv.auth.SeedAdmin(context.Background(), "admin@example.com", "admin-pass", "0000000001"); err != nil {
		t.Fatalf("SeedAdmin returned error: %v", err)
	}
	var admin sessionBody
	if status := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "admin-pass",
	}, &admin); status != http.StatusOK {
		t.Fatalf("admin login returned %d", status)
	}

	var stats app.Stats
	if status := srv.do(t, http.MethodGet, "/api/admin/stats", admin.Token, nil, &stats); status != http.StatusOK || stats.TotalUsers != 2 {
		t.Fatalf("unexpected stats %d %+v", status, stats)
	}

	var frozen struct {
		Account domain.Account `json:"account"`
	}
	status := srv.do(t, http.MethodPut, "/api/admin/users/"+alice.Account.ID.String()+"/freeze", admin.Token, nil, &frozen)
	if status != http.StatusOK || frozen.Account.Status != domain.AccountFrozen {
		t.Fatalf("unexpected freeze response %d %+v", status, frozen)
	}

	var page app.UserPage
	if status := srv.do(t, http.MethodGet, "/api/admin/users?search=alice", admin.Token, nil, &page); status != http.StatusOK || page.Total != 1 {
		t.Fatalf("unexpected users page %d %+v", status, page)
	}

	var points []app.ChartPoint
	if status := srv.do(t, http.MethodGet, "/api/admin/charts?days=3", admin.Token, nil, &points); status != http.StatusOK || len(points) != 3 {
		t.Fatalf("unexpected chart %d %+v", status, points)
	}

	if status := srv.do(t, http.MethodDelete, "/api/admin/users/"+alice.Account.ID.String(), admin.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("delete returned %d", status)
	}
	if status := srv.do(t, http.MethodDelete, "/api/admin/users/"+alice.Account.ID.String(), admin.Token, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", status)
	}
}

func TestWebAuthnDisabledAnswersNotImplemented(t *testing.T) {
	srv := newTestServer(t, false)
	var resp errorResponse
	status := srv.do(t, http.MethodPost, "/api/webauthn/login/options", "", map[string]string{"email": "a@b.co"}, &resp)
	if status != http.StatusNotImplemented || resp.Kind != kindNotImplemented {
		t.Fatalf("expected 501 not_implemented, got %d %+v", status, resp)
	}
}

func TestWebAuthnDemoLogin(t *testing.T) {
	srv := newTestServer(t, true)
	alice := srv.signup(t, "alice@example.com")

	var reg struct {
		DemoMode  bool   `json:"demo_mode"`
		Challenge string `json:"challenge"`
	}
	if status := srv.do(t, http.MethodPost, "/api/webauthn/register/options", alice.Token, nil, &reg); status != http.StatusOK || !reg.DemoMode {
		t.Fatalf("unexpected register options %d %+v", status, reg)
	}
	if status := srv.do(t, http.MethodPost, "/api/webauthn/register/verify", alice.Token, map[string]string{
		"credential_id": "cred-1", "challenge": reg.Challenge,
	}, nil); status != http.StatusOK {
		t.Fatalf("register verify returned %d", status)
	}

	var opts struct {
		Challenge string `json:"challenge"`
	}
	if status := srv.do(t, http.MethodPost, "/api/webauthn/login/options", "", map[string]string{"email": "alice@example.com"}, &opts); status != http.StatusOK {
		t.Fatalf("login options returned %d", status)
	}
	var login struct {
		DemoMode bool        `json:"demo_mode"`
		Session  sessionBody `json:"session"`
	}
	status := srv.do(t, http.MethodPost, "/api/webauthn/login/verify", "", map[string]string{
		"email": "alice@example.com", "credential_id": "cred-1", "challenge": opts.Challenge,
	}, &login)
	if status != http.StatusOK || !login.DemoMode || login.Session.Account.ID != alice.Account.ID {
		t.Fatalf("unexpected login verify %d %+v", status, login)
	}
}
