package app

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
)

func TestRandomCode_IsSixDigits(t *testing.T) {
	digits := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 50; i++ {
		code, err := randomCode(6)
		if err != nil {
			t.Fatalf("randomCode returned error: %v", err)
		}
		if !digits.MatchString(code) {
			t.Fatalf("expected six digits, got %q", code)
		}
	}
}

func TestRequestChallenge_ValidatesInput(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	if _, err := h.otp.RequestChallenge(context.Background(), alice.ID, "withdraw", domain.ChannelEmail); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionTransfer, "fax"); !errors.Is(err, domain.ErrInvalidChannel) {
		t.Fatalf("expected ErrInvalidChannel, got %v", err)
	}
	if _, err := h.otp.RequestChallenge(context.Background(), uuid.New(), domain.ActionTransfer, domain.ChannelEmail); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound for unknown account, got %v", err)
	}
}

func TestVerify_SingleUse(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	receipt, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionTransfer, domain.ChannelEmail)
	if err != nil {
		t.Fatalf("RequestChallenge returned error: %v", err)
	}
	if !receipt.Delivered || !receipt.ExpiresAt.Equal(testNow.Add(5*time.Minute)) {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	code := h.delivery.last(t).code

	ticket, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionTransfer, code)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ticket == nil || ticket.Action != domain.ActionTransfer || ticket.AccountID != alice.ID {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}

	if _, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionTransfer, code); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected second verify to fail with NotFound, got %v", err)
	}
}

func TestVerify_NewRequestSupersedesOldCode(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	h.otp.newCode = func() (string, error) { return "111111", nil }
	if _, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionAddFunds, domain.ChannelEmail); err != nil {
		t.Fatalf("RequestChallenge returned error: %v", err)
	}
	h.otp.newCode = func() (string, error) { return "222222", nil }
	if _, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionAddFunds, domain.ChannelSMS); err != nil {
		t.Fatalf("RequestChallenge returned error: %v", err)
	}

	if _, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionAddFunds, "111111"); !errors.Is(err, domain.ErrOTPMismatch) {
		t.Fatalf("expected superseded code to mismatch, got %v", err)
	}
	if _, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionAddFunds, "222222"); err != nil {
		t.Fatalf("expected newest code to verify, got %v", err)
	}
}

func TestVerify_ChallengesAreScopedPerAction(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	h.otp.newCode = func() (string, error) { return "333333", nil }
	if _, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionTransfer, domain.ChannelEmail); err != nil {
		t.Fatalf("RequestChallenge returned error: %v", err)
	}
	if _, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionAddBeneficiary, "333333"); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected NotFound for another action, got %v", err)
	}
	if _, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionTransfer, "333333"); err != nil {
		t.Fatalf("expected transfer code to verify, got %v", err)
	}
}

func TestVerify_MismatchDoesNotConsume(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	h.otp.newCode = func() (string, error) { return "444444", nil }
	if _, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionTransfer, domain.ChannelEmail); err != nil {
		t.Fatalf("RequestChallenge returned error: %v", err)
	}

	ok, err := h.otp.VerifyChallenge(context.Background(), alice.ID, domain.ActionTransfer, "000000")
	if err != nil || ok {
		t.Fatalf("expected (false, nil) for wrong code, got (%v, %v)", ok, err)
	}
	ok, err = h.otp.VerifyChallenge(context.Background(), alice.ID, domain.ActionTransfer, "444444")
	if err != nil || !ok {
		t.Fatalf("expected (true, nil) for right code, got (%v, %v)", ok, err)
	}
}

func TestVerify_ExpiryIsExclusive(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	h.otp.newCode = func() (string, error) { return "555555", nil }
	if _, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionTransfer, domain.ChannelEmail); err != nil {
		t.Fatalf("RequestChallenge returned error: %v", err)
	}

	h.clock.Advance(5 * time.Minute)
	if _, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionTransfer, "555555"); !errors.Is(err, domain.ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired at the expiry instant, got %v", err)
	}
	if _, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionTransfer, "000000"); !errors.Is(err, domain.ErrOTPMismatch) {
		t.Fatalf("expected wrong code on an expired challenge to mismatch, got %v", err)
	}
	ok, err := h.otp.VerifyChallenge(context.Background(), alice.ID, domain.ActionTransfer, "555555")
	if err != nil || ok {
		t.Fatalf("expected expired challenge to report (false, nil), got (%v, %v)", ok, err)
	}
}

func TestVerify_LoginIssuesNoTicket(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	if _, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionLogin, domain.ChannelEmail); err != nil {
		t.Fatalf("RequestChallenge returned error: %v", err)
	}
	ticket, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionLogin, h.delivery.last(t).code)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ticket != nil {
		t.Fatalf("expected no ticket for login, got %+v", ticket)
	}
}

func TestRequestChallenge_DeliveryFailureKeepsChallenge(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)
	h.delivery.err = errors.New("smtp down")

	h.otp.newCode = func() (string, error) { return "666666", nil }
	receipt, err := h.otp.RequestChallenge(context.Background(), alice.ID, domain.ActionTransfer, domain.ChannelEmail)
	if err != nil {
		t.Fatalf("expected delivery failure to be non-fatal, got %v", err)
	}
	if receipt.Delivered {
		t.Fatal("expected receipt to report undelivered")
	}
	if _, err := h.otp.Verify(context.Background(), alice.ID, domain.ActionTransfer, "666666"); err != nil {
		t.Fatalf("expected stored challenge to verify, got %v", err)
	}
}
