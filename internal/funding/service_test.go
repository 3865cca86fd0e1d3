package funding

import (
	"context"
	"net/http"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/lamont703/XRWebsites-sub000/internal/apierror"
	"github.com/lamont703/XRWebsites-sub000/internal/ledger"
	"github.com/lamont703/XRWebsites-sub000/internal/logging"
	"github.com/lamont703/XRWebsites-sub000/internal/store"
	"github.com/lamont703/XRWebsites-sub000/internal/wallet"
)

type fundingHarness struct {
	svc     *Service
	wallets *wallet.Service
	mr      *miniredis.Miniredis
}

func newFundingHarness(t *testing.T) fundingHarness {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	docs := store.NewMemory()
	wallets := wallet.NewService(wallet.NewRepository(docs), false)
	recorder := ledger.NewRecorder(docs)
	return fundingHarness{
		svc:     NewService(wallets, recorder, cache, logging.Discard()),
		wallets: wallets,
		mr:      mr,
	}
}

func TestHandlePaymentSucceeded(t *testing.T) {
	h := newFundingHarness(t)
	ctx := context.Background()

	w, err := h.wallets.Create(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	event := Event{ID: "evt_1", WalletID: w.ID, Amount: decimal.NewFromInt(500)}
	entry, err := h.svc.HandlePaymentSucceeded(ctx, event)
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if entry.TransactionType != ledger.TypeDeposit || entry.ClientTxID != "evt_1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	funded, err := h.wallets.FindByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("find wallet: %v", err)
	}
	if !funded.Balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected balance 500, got %s", funded.Balance)
	}

	if !h.mr.Exists(key("evt_1")) {
		t.Fatal("expected a processed-event reservation in the cache")
	}
}

func TestHandlePaymentSucceededDuplicate(t *testing.T) {
	h := newFundingHarness(t)
	ctx := context.Background()

	w, err := h.wallets.Create(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	event := Event{ID: "evt_dup", WalletID: w.ID, Amount: decimal.NewFromInt(250)}
	first, err := h.svc.HandlePaymentSucceeded(ctx, event)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// Redelivery is a no-op that returns the original entry.
	second, err := h.svc.HandlePaymentSucceeded(ctx, event)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected original entry %s, got %s", first.ID, second.ID)
	}

	funded, err := h.wallets.FindByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("find wallet: %v", err)
	}
	if !funded.Balance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("wallet must be credited exactly once, got %s", funded.Balance)
	}
}

func TestHandlePaymentSucceededInFlightReservation(t *testing.T) {
	h := newFundingHarness(t)
	ctx := context.Background()

	w, err := h.wallets.Create(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	// Simulate a concurrent delivery that has reserved the event but not
	// yet recorded its ledger entry.
	if err := h.mr.Set(key("evt_race"), "1"); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	event := Event{ID: "evt_race", WalletID: w.ID, Amount: decimal.NewFromInt(100)}
	_, err = h.svc.HandlePaymentSucceeded(ctx, event)
	if apierror.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}

	funded, err := h.wallets.FindByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("find wallet: %v", err)
	}
	if !funded.Balance.IsZero() {
		t.Fatalf("balance must be untouched, got %s", funded.Balance)
	}
}

func TestHandlePaymentSucceededReleasesReservationOnFailure(t *testing.T) {
	h := newFundingHarness(t)
	ctx := context.Background()

	event := Event{ID: "evt_bad", WalletID: "wallet-missing", Amount: decimal.NewFromInt(100)}
	if _, err := h.svc.HandlePaymentSucceeded(ctx, event); apierror.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for missing wallet, got %v", err)
	}

	// The reservation is released so a corrected retry can proceed.
	if h.mr.Exists(key("evt_bad")) {
		t.Fatal("expected reservation to be released after failure")
	}
}

func TestHandlePaymentSucceededValidation(t *testing.T) {
	h := newFundingHarness(t)

	event := Event{ID: "evt_zero", WalletID: "wallet-a", Amount: decimal.Zero}
	if _, err := h.svc.HandlePaymentSucceeded(context.Background(), event); apierror.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-positive amount, got %v", err)
	}
}
