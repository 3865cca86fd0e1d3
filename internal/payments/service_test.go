package payments

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamont703/XRWebsites-sub000/internal/apierror"
	"github.com/lamont703/XRWebsites-sub000/internal/asset"
	"github.com/lamont703/XRWebsites-sub000/internal/identity"
	"github.com/lamont703/XRWebsites-sub000/internal/ledger"
	"github.com/lamont703/XRWebsites-sub000/internal/minting"
	"github.com/lamont703/XRWebsites-sub000/internal/notification"
	"github.com/lamont703/XRWebsites-sub000/internal/store"
	"github.com/lamont703/XRWebsites-sub000/internal/wallet"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

type testHarness struct {
	svc      *Service
	wallets  *wallet.Service
	recorder *ledger.Recorder
	notifier *testNotifier
}

func newTestHarness(t *testing.T) testHarness {
	t.Helper()
	docs := store.NewMemory()
	wallets := wallet.NewService(wallet.NewRepository(docs), false)
	recorder := ledger.NewRecorder(docs)
	registry := asset.NewRegistry(docs, wallets)
	notifier := &testNotifier{}
	return testHarness{
		svc:      NewService(wallets, recorder, registry, minting.StaticMinter{}, notifier),
		wallets:  wallets,
		recorder: recorder,
		notifier: notifier,
	}
}

func (h testHarness) createWallet(t *testing.T) (wallet.Wallet, identity.Caller) {
	t.Helper()
	userID := uuid.NewString()
	w, err := h.wallets.Create(context.Background(), userID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w, identity.Caller{UserID: userID}
}

func TestDepositAndWithdraw(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	w, owner := h.createWallet(t)

	updated, err := h.svc.Deposit(ctx, DepositInput{WalletID: w.ID, Amount: decimal.NewFromInt(100), Source: "card"}, owner)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", updated.Balance)
	}

	updated, err = h.svc.Withdraw(ctx, WithdrawInput{WalletID: w.ID, Amount: decimal.NewFromInt(40), DestinationAddress: "0xdead"}, owner)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected balance 60, got %s", updated.Balance)
	}

	entries, total, err := h.svc.History(ctx, w.ID, 1, 10, owner)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 entries, got %d", total)
	}
	// Newest first: withdrawal then deposit.
	if entries[0].TransactionType != ledger.TypeWithdrawal || entries[0].Status != ledger.StatusProcessing {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if !entries[0].Amount.Equal(decimal.NewFromInt(-40)) {
		t.Fatalf("withdrawal must record a negative amount, got %s", entries[0].Amount)
	}

	// The ledger reconciles with the balance.
	sum, err := h.recorder.SumAmounts(ctx, w.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !sum.Equal(updated.Balance) {
		t.Fatalf("ledger sum %s does not match balance %s", sum, updated.Balance)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	w, owner := h.createWallet(t)

	_, err := h.svc.Withdraw(ctx, WithdrawInput{WalletID: w.ID, Amount: decimal.NewFromInt(10)}, owner)
	if apierror.StatusOf(err) != http.StatusBadRequest || apierror.MessageOf(err) != "insufficient funds" {
		t.Fatalf("expected insufficient funds 400, got %v", err)
	}

	// No ledger entry for the rejected debit.
	if _, total, err := h.svc.History(ctx, w.ID, 1, 10, owner); err != nil || total != 0 {
		t.Fatalf("expected empty history, total=%d err=%v", total, err)
	}
}

func TestDepositValidation(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	w, owner := h.createWallet(t)

	if _, err := h.svc.Deposit(ctx, DepositInput{WalletID: w.ID, Amount: decimal.Zero}, owner); apierror.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %v", err)
	}
	if _, err := h.svc.Deposit(ctx, DepositInput{WalletID: w.ID, Amount: decimal.NewFromInt(-5)}, owner); apierror.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %v", err)
	}

	stranger := identity.Caller{UserID: uuid.NewString()}
	if _, err := h.svc.Deposit(ctx, DepositInput{WalletID: w.ID, Amount: decimal.NewFromInt(5)}, stranger); apierror.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %v", err)
	}
}

func TestTransferBetweenWallets(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	src, owner := h.createWallet(t)
	dst, recipient := h.createWallet(t)

	if _, err := h.svc.Deposit(ctx, DepositInput{WalletID: src.ID, Amount: decimal.NewFromInt(100)}, owner); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	updated, err := h.svc.Transfer(ctx, TransferInput{FromWalletID: src.ID, ToWalletID: dst.ID, Amount: decimal.NewFromInt(30)}, owner)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected source balance 70, got %s", updated.Balance)
	}

	dstWallet, err := h.wallets.FindByID(ctx, dst.ID)
	if err != nil {
		t.Fatalf("find recipient: %v", err)
	}
	if !dstWallet.Balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected recipient balance 30, got %s", dstWallet.Balance)
	}

	if h.notifier.last.Kind != notification.KindTransferReceived || h.notifier.last.Destination != recipient.UserID {
		t.Fatalf("expected transfer notification to recipient, got %+v", h.notifier.last)
	}

	entries, _, err := h.svc.History(ctx, src.ID, 1, 10, owner)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if entries[0].TransactionType != ledger.TypeTransfer || !entries[0].Amount.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("unexpected transfer entry: %+v", entries[0])
	}
}

func TestTransferGuards(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	src, owner := h.createWallet(t)

	if _, err := h.svc.Deposit(ctx, DepositInput{WalletID: src.ID, Amount: decimal.NewFromInt(50)}, owner); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	_, err := h.svc.Transfer(ctx, TransferInput{FromWalletID: src.ID, ToWalletID: "wallet-missing", Amount: decimal.NewFromInt(10)}, owner)
	if apierror.StatusOf(err) != http.StatusNotFound || apierror.MessageOf(err) != "recipient wallet not found" {
		t.Fatalf("expected recipient 404, got %v", err)
	}

	if _, err := h.svc.Transfer(ctx, TransferInput{FromWalletID: src.ID, ToWalletID: src.ID, Amount: decimal.NewFromInt(10)}, owner); apierror.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for self transfer, got %v", err)
	}

	dst, _ := h.createWallet(t)
	if _, err := h.svc.Transfer(ctx, TransferInput{FromWalletID: src.ID, ToWalletID: dst.ID, Amount: decimal.NewFromInt(1000)}, owner); apierror.MessageOf(err) != "insufficient funds" {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestMintNFT(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	w, owner := h.createWallet(t)

	minted, err := h.svc.MintNFT(ctx, MintInput{
		WalletID:    w.ID,
		Name:        "Dawn",
		Description: "first light",
		Value:       decimal.NewFromInt(10),
	}, owner)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if minted.OwnerWalletID != w.ID || minted.CreatorID != owner.UserID {
		t.Fatalf("unexpected asset: %+v", minted)
	}
	if minted.Metadata.MintAddress == "" {
		t.Fatal("expected a mint address from the minting service")
	}

	entries, _, err := h.svc.History(ctx, w.ID, 1, 10, owner)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if entries[0].TransactionType != ledger.TypeNFTMint || !entries[0].Amount.IsZero() {
		t.Fatalf("expected zero-amount mint entry, got %+v", entries[0])
	}

	assets, total, err := h.svc.WalletAssets(ctx, w.ID, 1, 10, owner)
	if err != nil {
		t.Fatalf("wallet assets: %v", err)
	}
	if total != 1 || assets[0].ID != minted.ID {
		t.Fatalf("expected the minted asset, got total=%d", total)
	}
}

func TestTransferNFT(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	src, owner := h.createWallet(t)
	dst, recipient := h.createWallet(t)

	minted, err := h.svc.MintNFT(ctx, MintInput{WalletID: src.ID, Name: "Dusk", Value: decimal.NewFromInt(5)}, owner)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	moved, err := h.svc.TransferNFT(ctx, NFTTransferInput{WalletID: src.ID, NFTID: minted.ID, RecipientWalletID: dst.ID}, owner)
	if err != nil {
		t.Fatalf("transfer nft: %v", err)
	}
	if moved.OwnerWalletID != dst.ID {
		t.Fatalf("expected new owner %s, got %s", dst.ID, moved.OwnerWalletID)
	}

	if h.notifier.last.Kind != notification.KindNFTReceived || h.notifier.last.Destination != recipient.UserID {
		t.Fatalf("expected NFT notification to recipient, got %+v", h.notifier.last)
	}

	_, err = h.svc.TransferNFT(ctx, NFTTransferInput{WalletID: src.ID, NFTID: minted.ID, RecipientWalletID: "wallet-missing"}, owner)
	if apierror.MessageOf(err) != "recipient wallet not found" {
		t.Fatalf("expected recipient 404, got %v", err)
	}

	// The old owner can no longer move the asset.
	if _, err := h.svc.TransferNFT(ctx, NFTTransferInput{WalletID: src.ID, NFTID: minted.ID, RecipientWalletID: dst.ID}, owner); apierror.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for stale owner, got %v", err)
	}
}

func TestListNFT(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	w, owner := h.createWallet(t)

	minted, err := h.svc.MintNFT(ctx, MintInput{WalletID: w.ID, Name: "Noon", Value: decimal.NewFromInt(5)}, owner)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	listing, err := h.svc.ListNFT(ctx, ListInput{WalletID: w.ID, NFTID: minted.ID, Price: decimal.NewFromInt(250), DurationDays: 7}, owner)
	if err != nil {
		t.Fatalf("list nft: %v", err)
	}
	if listing.SellerWalletID != w.ID || listing.Status != asset.ListingActive {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	entries, _, err := h.svc.History(ctx, w.ID, 1, 10, owner)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if entries[0].TransactionType != ledger.TypeNFTList {
		t.Fatalf("expected listing entry first, got %+v", entries[0])
	}
}

func TestHistoryAuthorization(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	w, _ := h.createWallet(t)

	stranger := identity.Caller{UserID: uuid.NewString()}
	if _, _, err := h.svc.History(ctx, w.ID, 1, 10, stranger); apierror.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}

	admin := identity.Caller{UserID: uuid.NewString(), Admin: true}
	if _, _, err := h.svc.History(ctx, w.ID, 1, 10, admin); err != nil {
		t.Fatalf("admin history: %v", err)
	}
}
