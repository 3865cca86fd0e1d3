package wallet

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamont703/XRWebsites-sub000/internal/apierror"
	"github.com/lamont703/XRWebsites-sub000/internal/identity"
	"github.com/lamont703/XRWebsites-sub000/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewRepository(store.NewMemory()), false)
}

func TestServiceCreateAndLookup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	w, err := svc.Create(ctx, userID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", w.Balance)
	}
	if w.Status != StatusActive {
		t.Fatalf("expected active status, got %s", w.Status)
	}

	fetched, err := svc.FindByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.ID != w.ID || fetched.UserID != userID {
		t.Fatalf("expected wallet %s for %s, got %+v", w.ID, userID, fetched)
	}

	byUser, err := svc.FindByUser(ctx, userID)
	if err != nil {
		t.Fatalf("find by user: %v", err)
	}
	if byUser.ID != w.ID {
		t.Fatalf("expected wallet %s, got %s", w.ID, byUser.ID)
	}
}

func TestServiceCreateDuplicateUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	if _, err := svc.Create(ctx, userID); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	_, err := svc.Create(ctx, userID)
	if err == nil {
		t.Fatal("expected conflict for second wallet")
	}
	if apierror.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%v)", apierror.StatusOf(err), err)
	}
}

func TestServiceFindMissing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.FindByID(ctx, "wallet-missing"); apierror.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if _, err := svc.FindByUser(ctx, "nobody"); apierror.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestServiceMutateBalanceFloor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	if _, err := svc.MutateBalance(ctx, w.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.MutateBalance(ctx, w.ID, decimal.NewFromInt(-40)); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if _, err := svc.MutateBalance(ctx, w.ID, decimal.NewFromInt(-100)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	final, err := svc.FindByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("find wallet: %v", err)
	}
	if !final.Balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected balance 60, got %s", final.Balance)
	}
}

func TestServiceMutateBalanceOverdraftMode(t *testing.T) {
	svc := NewService(NewRepository(store.NewMemory()), true)
	ctx := context.Background()

	w, err := svc.Create(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	updated, err := svc.MutateBalance(ctx, w.ID, decimal.NewFromInt(-250))
	if err != nil {
		t.Fatalf("overdraft debit: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(-250)) {
		t.Fatalf("expected balance -250, got %s", updated.Balance)
	}
}

func TestServiceMutateBalanceConcurrent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	// Concurrent credits must all land; none may overwrite another.
	const workers = 2
	amount := decimal.NewFromInt(10)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.MutateBalance(ctx, w.ID, amount); err != nil {
				t.Errorf("mutate: %v", err)
			}
		}()
	}
	wg.Wait()

	final, err := svc.FindByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("find wallet: %v", err)
	}
	if !final.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected balance 20 after concurrent credits, got %s", final.Balance)
	}
}

func TestServiceConnectExternalAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	w, err := svc.Create(ctx, userID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	owner := identity.Caller{UserID: userID}
	updated, err := svc.ConnectExternalAccount(ctx, w.ID, "0xabc123", "phantom", owner)
	if err != nil {
		t.Fatalf("connect account: %v", err)
	}
	if len(updated.LinkedAccounts) != 1 || updated.LinkedAccounts[0].Address != "0xabc123" {
		t.Fatalf("expected one linked account, got %+v", updated.LinkedAccounts)
	}

	stranger := identity.Caller{UserID: uuid.NewString()}
	if _, err := svc.ConnectExternalAccount(ctx, w.ID, "0xdef", "phantom", stranger); apierror.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %v", err)
	}

	admin := identity.Caller{UserID: uuid.NewString(), Admin: true}
	if _, err := svc.ConnectExternalAccount(ctx, w.ID, "0xdef", "ledgerhw", admin); err != nil {
		t.Fatalf("admin connect: %v", err)
	}

	if _, err := svc.ConnectExternalAccount(ctx, w.ID, "", "phantom", owner); apierror.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty address, got %v", err)
	}
}
