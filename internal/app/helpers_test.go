package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/adarsh140528/Horizon-Bank/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentCode struct {
	channel domain.DeliveryChannel
	code    string
	action  domain.OTPAction
}

// recordingDeliverer captures delivered codes instead of sending them.
type recordingDeliverer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (d *recordingDeliverer) Deliver(ctx context.Context, account *domain.Account, channel domain.DeliveryChannel, code string, action domain.OTPAction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, sentCode{channel: channel, code: code, action: action})
	return nil
}

func (d *recordingDeliverer) last(t *testing.T) sentCode {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		t.Fatal("expected a delivered code")
	}
	return d.sent[len(d.sent)-1]
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func (p *publisherStub) Close() {}

func (p *publisherStub) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.routingKey)
	}
	return keys
}

// harness wires the services over one memory store and a fixed clock.
type harness struct {
	repo      *store.MemoryRepository
	clock     *fixedClock
	delivery  *recordingDeliverer
	publisher *publisherStub
	otp       *OTPService
	money     *MoneyService
	admin     *AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:      store.NewMemoryRepository(),
		clock:     &fixedClock{now: testNow},
		delivery:  &recordingDeliverer{},
		publisher: &publisherStub{},
	}
	log := zap.NewNop()
	h.otp = NewOTPService(h.repo, h.repo, h.repo, h.delivery, log, 5*time.Minute, 5*time.Minute)
	h.otp.now = h.clock.Now
	h.money = NewMoneyService(h.repo, h.publisher, "test.events", log)
	h.money.now = h.clock.Now
	h.admin = NewAdminService(h.repo, h.publisher, "test.events", log, 2, 50000)
	h.admin.now = h.clock.Now
	return h
}

func (h *harness) account(t *testing.T, number string, balance int64) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:            uuid.New(),
		Name:          "Holder " + number,
		Email:         number + "@example.com",
		Phone:         "98" + number[len(number)-8:],
		Role:          domain.RoleUser,
		AccountNumber: number,
		Balance:       balance,
		Status:        domain.AccountActive,
		CreatedAt:     h.clock.Now(),
		UpdatedAt:     h.clock.Now(),
	}
	if err := h.repo.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	return account
}

// ticket runs the full request/verify flow and returns the issued ticket id.
func (h *harness) ticket(t *testing.T, accountID uuid.UUID, action domain.OTPAction) uuid.UUID {
	t.Helper()
	if _, err := h.otp.RequestChallenge(context.Background(), accountID, action, domain.ChannelEmail); err != nil {
		t.Fatalf("RequestChallenge returned error: %v", err)
	}
	ticket, err := h.otp.Verify(context.Background(), accountID, action, h.delivery.last(t).code)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	return ticket.ID
}

func (h *harness) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	view, err := h.money.Balance(context.Background(), id)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	return view.Balance
}
