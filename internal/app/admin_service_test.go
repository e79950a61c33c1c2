package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
)

func TestListUsers_PagesAndSearch(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 23; i++ {
		h.account(t, fmt.Sprintf("30000000%02d", i), 0)
	}

	page, err := h.admin.ListUsers(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if page.Page != 1 || page.Total != 23 || page.Pages != 3 || len(page.Users) != adminPageSize {
		t.Fatalf("unexpected first page: page=%d total=%d pages=%d users=%d", page.Page, page.Total, page.Pages, len(page.Users))
	}

	last, err := h.admin.ListUsers(context.Background(), "", 3)
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(last.Users) != 3 {
		t.Fatalf("expected 3 users on the last page, got %d", len(last.Users))
	}

	found, err := h.admin.ListUsers(context.Background(), "3000000017", 1)
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if found.Total != 1 || found.Users[0].AccountNumber != "3000000017" {
		t.Fatalf("unexpected search result: %+v", found)
	}
}

func TestStats_CountsAndRevenue(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 1000)
	h.account(t, "1000000002", 500)
	carol := h.account(t, "1000000003", 0)

	if _, err := h.money.Transfer(context.Background(), alice.ID, h.ticket(t, alice.ID, domain.ActionTransfer), "1000000002", 100); err != nil {
		t.Fatalf("Transfer returned error: %v", err)
	}
	if _, err := h.money.AddFunds(context.Background(), carol.ID, h.ticket(t, carol.ID, domain.ActionAddFunds), 250); err != nil {
		t.Fatalf("AddFunds returned error: %v", err)
	}
	if _, err := h.admin.Freeze(context.Background(), carol.ID); err != nil {
		t.Fatalf("Freeze returned error: %v", err)
	}

	stats, err := h.admin.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	want := Stats{
		TotalUsers:        3,
		ActiveUsers:       2,
		TotalBalance:      1750,
		TotalBalanceText:  "17.50",
		TotalTransactions: 2,
		TodaysTransfers:   1,
		NewUsersToday:     3,
		Revenue:           4,
		RevenueText:       "0.04",
	}
	if *stats != want {
		t.Fatalf("unexpected stats:\n got %+v\nwant %+v", *stats, want)
	}
}

func TestChartSeries_ZeroFillsOldestFirst(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	if _, err := h.money.AddFunds(context.Background(), alice.ID, h.ticket(t, alice.ID, domain.ActionAddFunds), 300); err != nil {
		t.Fatalf("AddFunds returned error: %v", err)
	}
	h.clock.Advance(48 * time.Hour)
	if _, err := h.money.AddFunds(context.Background(), alice.ID, h.ticket(t, alice.ID, domain.ActionAddFunds), 200); err != nil {
		t.Fatalf("AddFunds returned error: %v", err)
	}
	if _, err := h.money.AddFunds(context.Background(), alice.ID, h.ticket(t, alice.ID, domain.ActionAddFunds), 50); err != nil {
		t.Fatalf("AddFunds returned error: %v", err)
	}

	points, err := h.admin.ChartSeries(context.Background(), 4)
	if err != nil {
		t.Fatalf("ChartSeries returned error: %v", err)
	}
	want := []ChartPoint{
		{Date: "2024-02-29", Amount: 0, Display: "0.00"},
		{Date: "2024-03-01", Amount: 300, Display: "3.00"},
		{Date: "2024-03-02", Amount: 0, Display: "0.00"},
		{Date: "2024-03-03", Amount: 250, Display: "2.50"},
	}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i := range want {
		if points[i] != want[i] {
			t.Errorf("point %d: got %+v, want %+v", i, points[i], want[i])
		}
	}

	defaults, err := h.admin.ChartSeries(context.Background(), 0)
	if err != nil {
		t.Fatalf("ChartSeries returned error: %v", err)
	}
	if len(defaults) != defaultChartDays {
		t.Fatalf("expected %d default points, got %d", defaultChartDays, len(defaults))
	}
}

func TestSuspicious_UsesThreshold(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	for _, amount := range []int64{49999, 50000, 80000} {
		if _, err := h.money.AddFunds(context.Background(), alice.ID, h.ticket(t, alice.ID, domain.ActionAddFunds), amount); err != nil {
			t.Fatalf("AddFunds returned error: %v", err)
		}
		h.clock.Advance(time.Second)
	}

	flagged, err := h.admin.Suspicious(context.Background(), 0)
	if err != nil {
		t.Fatalf("Suspicious returned error: %v", err)
	}
	if len(flagged) != 2 || flagged[0].Amount != 80000 || flagged[1].Amount != 50000 {
		t.Fatalf("unexpected suspicious list: %+v", flagged)
	}

	custom, err := h.admin.Suspicious(context.Background(), 60000)
	if err != nil {
		t.Fatalf("Suspicious returned error: %v", err)
	}
	if len(custom) != 1 {
		t.Fatalf("expected 1 transaction over 60000, got %d", len(custom))
	}
}

func TestFreezeUnfreeze_PublishesEvents(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 0)

	frozen, err := h.admin.Freeze(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("Freeze returned error: %v", err)
	}
	if !frozen.IsFrozen() {
		t.Fatal("expected account to be frozen")
	}
	active, err := h.admin.Unfreeze(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("Unfreeze returned error: %v", err)
	}
	if active.Status != domain.AccountActive {
		t.Fatalf("expected active status, got %s", active.Status)
	}

	keys := h.publisher.keys()
	if len(keys) != 2 || keys[0] != domain.EventAccountFrozen || keys[1] != domain.EventAccountUnfrozen {
		t.Fatalf("unexpected events: %v", keys)
	}

	if _, err := h.admin.Freeze(context.Background(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown account, got %v", err)
	}
}

func TestDelete_KeepsHistoryWithUnknownCounterpart(t *testing.T) {
	h := newHarness(t)
	alice := h.account(t, "1000000001", 1000)
	bob := h.account(t, "1000000002", 0)

	if _, err := h.money.Transfer(context.Background(), alice.ID, h.ticket(t, alice.ID, domain.ActionTransfer), "1000000002", 100); err != nil {
		t.Fatalf("Transfer returned error: %v", err)
	}
	if err := h.admin.Delete(context.Background(), bob.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := h.admin.Delete(context.Background(), bob.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}

	history, err := h.money.History(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 1 || history[0].ReceiverAccount != domain.UnknownAccount {
		t.Fatalf("expected deleted receiver to show as unknown, got %+v", history)
	}

	all, err := h.admin.ListAllTransactions(context.Background())
	if err != nil {
		t.Fatalf("ListAllTransactions returned error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected transaction to survive deletion, got %d", len(all))
	}
}
