package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lamont703/XRWebsites-sub000/internal/apierror"
	"github.com/lamont703/XRWebsites-sub000/internal/asset"
	"github.com/lamont703/XRWebsites-sub000/internal/identity"
	"github.com/lamont703/XRWebsites-sub000/internal/ledger"
	"github.com/lamont703/XRWebsites-sub000/internal/minting"
	"github.com/lamont703/XRWebsites-sub000/internal/notification"
	"github.com/lamont703/XRWebsites-sub000/internal/wallet"
)

// Service is the transfer orchestrator: it validates ownership and
// authorization, mutates the wallet or asset, then records the transaction.
// The mutate and record steps are not wrapped in a physical transaction;
// when recording fails after a mutation committed, the caller sees an error
// while the side effect persists. Recorder idempotency keys keep retries
// safe.
type Service struct {
	wallets  *wallet.Service
	recorder *ledger.Recorder
	assets   *asset.Registry
	minter   minting.Minter
	notifier notification.Notifier
}

// NewService constructs the orchestrator.
func NewService(wallets *wallet.Service, recorder *ledger.Recorder, assets *asset.Registry, minter minting.Minter, notifier notification.Notifier) *Service {
	return &Service{wallets: wallets, recorder: recorder, assets: assets, minter: minter, notifier: notifier}
}

// DepositInput captures a credit into a wallet.
type DepositInput struct {
	WalletID        string
	Amount          decimal.Decimal
	Source          string
	TransactionHash string
	ClientTxID      string
}

// Deposit credits the wallet and records a deposit entry.
func (s *Service) Deposit(ctx context.Context, input DepositInput, caller identity.Caller) (wallet.Wallet, error) {
	if !input.Amount.IsPositive() {
		return wallet.Wallet{}, apierror.BadRequest("amount must be positive")
	}
	if _, err := s.authorize(ctx, input.WalletID, caller); err != nil {
		return wallet.Wallet{}, err
	}

	updated, err := s.wallets.MutateBalance(ctx, input.WalletID, input.Amount)
	if err != nil {
		return wallet.Wallet{}, err
	}

	_, err = s.recorder.Record(ctx, ledger.RecordInput{
		WalletID:        input.WalletID,
		TransactionType: ledger.TypeDeposit,
		Amount:          input.Amount,
		ClientTxID:      input.ClientTxID,
		Details: map[string]any{
			"source":             input.Source,
			"transaction_hash":   input.TransactionHash,
			"external_reference": input.TransactionHash,
		},
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return wallet.Wallet{}, err
	}
	return updated, nil
}

// WithdrawInput captures a debit out of a wallet.
type WithdrawInput struct {
	WalletID           string
	Amount             decimal.Decimal
	DestinationAddress string
}

// Withdraw debits the wallet and records a withdrawal entry. The entry is
// recorded as processing; settlement confirmation is an external concern
// and nothing here transitions it further.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput, caller identity.Caller) (wallet.Wallet, error) {
	if !input.Amount.IsPositive() {
		return wallet.Wallet{}, apierror.BadRequest("amount must be positive")
	}
	if _, err := s.authorize(ctx, input.WalletID, caller); err != nil {
		return wallet.Wallet{}, err
	}

	updated, err := s.wallets.MutateBalance(ctx, input.WalletID, input.Amount.Neg())
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return wallet.Wallet{}, apierror.BadRequest("insufficient funds")
		}
		return wallet.Wallet{}, err
	}

	_, err = s.recorder.Record(ctx, ledger.RecordInput{
		WalletID:        input.WalletID,
		TransactionType: ledger.TypeWithdrawal,
		Amount:          input.Amount.Neg(),
		Status:          ledger.StatusProcessing,
		Details: map[string]any{
			"destination_address": input.DestinationAddress,
		},
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return wallet.Wallet{}, err
	}
	return updated, nil
}

// TransferInput captures an internal wallet-to-wallet movement.
type TransferInput struct {
	FromWalletID string
	ToWalletID   string
	Amount       decimal.Decimal
}

// Transfer debits the source wallet and credits the destination. The two
// mutations are independent conditional writes, not an atomic pair; one
// transfer entry is recorded on the source wallet.
func (s *Service) Transfer(ctx context.Context, input TransferInput, caller identity.Caller) (wallet.Wallet, error) {
	if !input.Amount.IsPositive() {
		return wallet.Wallet{}, apierror.BadRequest("amount must be positive")
	}
	if input.FromWalletID == input.ToWalletID {
		return wallet.Wallet{}, apierror.BadRequest("cannot transfer to the same wallet")
	}
	if _, err := s.authorize(ctx, input.FromWalletID, caller); err != nil {
		return wallet.Wallet{}, err
	}

	recipient, err := s.wallets.FindByID(ctx, input.ToWalletID)
	if err != nil {
		if apierror.StatusOf(err) == http.StatusNotFound {
			return wallet.Wallet{}, apierror.NotFound("recipient wallet not found")
		}
		return wallet.Wallet{}, err
	}

	updated, err := s.wallets.MutateBalance(ctx, input.FromWalletID, input.Amount.Neg())
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return wallet.Wallet{}, apierror.BadRequest("insufficient funds")
		}
		return wallet.Wallet{}, err
	}
	if _, err := s.wallets.MutateBalance(ctx, input.ToWalletID, input.Amount); err != nil {
		return wallet.Wallet{}, err
	}

	_, err = s.recorder.Record(ctx, ledger.RecordInput{
		WalletID:        input.FromWalletID,
		TransactionType: ledger.TypeTransfer,
		Amount:          input.Amount.Neg(),
		Details: map[string]any{
			"recipient_wallet_id": input.ToWalletID,
		},
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return wallet.Wallet{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: recipient.UserID,
			Body:        fmt.Sprintf("You received %s from wallet %s", input.Amount.String(), input.FromWalletID),
		})
	}
	return updated, nil
}

// MintInput captures the data for minting a new asset into a wallet.
type MintInput struct {
	WalletID    string
	Name        string
	Description string
	ImageURL    string
	Value       decimal.Decimal
	Attributes  []asset.Attribute
	Royalties   int
	Supply      int
}

// MintNFT asks the external minting service for a mint address, registers
// the asset and records a zero-amount audit entry on the wallet.
func (s *Service) MintNFT(ctx context.Context, input MintInput, caller identity.Caller) (asset.Asset, error) {
	if _, err := s.authorize(ctx, input.WalletID, caller); err != nil {
		return asset.Asset{}, err
	}

	mintAddress, err := s.minter.Mint(ctx, minting.MintRequest{
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		CreatorID:   caller.UserID,
	})
	if err != nil {
		return asset.Asset{}, apierror.Internal("minting service failed", err)
	}

	created, err := s.assets.Create(ctx, asset.CreateInput{
		Name:          input.Name,
		Description:   input.Description,
		ImageURL:      input.ImageURL,
		Value:         input.Value,
		OwnerWalletID: input.WalletID,
		CreatorID:     caller.UserID,
		Attributes:    input.Attributes,
		Royalties:     input.Royalties,
		Supply:        input.Supply,
		MintAddress:   mintAddress,
	})
	if err != nil {
		return asset.Asset{}, err
	}

	_, err = s.recorder.Record(ctx, ledger.RecordInput{
		WalletID:        input.WalletID,
		TransactionType: ledger.TypeNFTMint,
		Amount:          decimal.Zero,
		Details: map[string]any{
			"nft_id":       created.ID,
			"mint_address": mintAddress,
		},
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return asset.Asset{}, err
	}
	return created, nil
}

// NFTTransferInput captures an asset transfer between wallets.
type NFTTransferInput struct {
	WalletID          string
	NFTID             string
	RecipientWalletID string
}

// TransferNFT moves an asset to the recipient wallet and records a
// zero-amount audit entry on the source wallet.
func (s *Service) TransferNFT(ctx context.Context, input NFTTransferInput, caller identity.Caller) (asset.Asset, error) {
	recipient, err := s.wallets.FindByID(ctx, input.RecipientWalletID)
	if err != nil {
		if apierror.StatusOf(err) == http.StatusNotFound {
			return asset.Asset{}, apierror.NotFound("recipient wallet not found")
		}
		return asset.Asset{}, err
	}

	transferred, err := s.assets.Transfer(ctx, input.NFTID, input.WalletID, input.RecipientWalletID, caller)
	if err != nil {
		return asset.Asset{}, err
	}

	_, err = s.recorder.Record(ctx, ledger.RecordInput{
		WalletID:        input.WalletID,
		TransactionType: ledger.TypeNFTTransfer,
		Amount:          decimal.Zero,
		Details: map[string]any{
			"nft_id":              input.NFTID,
			"recipient_wallet_id": input.RecipientWalletID,
		},
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return asset.Asset{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindNFTReceived,
			Destination: recipient.UserID,
			Body:        fmt.Sprintf("You received NFT %s", input.NFTID),
		})
	}
	return transferred, nil
}

// ListInput captures a marketplace listing request.
type ListInput struct {
	WalletID     string
	NFTID        string
	Price        decimal.Decimal
	DurationDays int
}

// ListNFT puts an asset up for sale and records a zero-amount audit entry.
func (s *Service) ListNFT(ctx context.Context, input ListInput, caller identity.Caller) (asset.Listing, error) {
	if _, err := s.authorize(ctx, input.WalletID, caller); err != nil {
		return asset.Listing{}, err
	}

	listing, err := s.assets.CreateListing(ctx, input.NFTID, input.WalletID, input.Price, input.DurationDays, caller.UserID)
	if err != nil {
		return asset.Listing{}, err
	}

	_, err = s.recorder.Record(ctx, ledger.RecordInput{
		WalletID:        input.WalletID,
		TransactionType: ledger.TypeNFTList,
		Amount:          decimal.Zero,
		Details: map[string]any{
			"nft_id":     input.NFTID,
			"listing_id": listing.ID,
			"price":      listing.Price.String(),
		},
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return asset.Listing{}, err
	}
	return listing, nil
}

// History returns the wallet's ledger entries, owner or admin only.
func (s *Service) History(ctx context.Context, walletID string, page, limit int, caller identity.Caller) ([]ledger.Entry, int, error) {
	if _, err := s.authorize(ctx, walletID, caller); err != nil {
		return nil, 0, err
	}
	return s.recorder.History(ctx, walletID, page, limit)
}

// Stats aggregates the wallet's recent ledger activity, owner or admin
// only.
func (s *Service) Stats(ctx context.Context, walletID string, since time.Time, caller identity.Caller) (ledger.Stats, error) {
	if _, err := s.authorize(ctx, walletID, caller); err != nil {
		return ledger.Stats{}, err
	}
	return s.recorder.Stats(ctx, walletID, since)
}

// WalletAssets returns the assets held by a wallet, owner or admin only.
func (s *Service) WalletAssets(ctx context.Context, walletID string, page, limit int, caller identity.Caller) ([]asset.Asset, int, error) {
	if _, err := s.authorize(ctx, walletID, caller); err != nil {
		return nil, 0, err
	}
	return s.assets.FindByWallet(ctx, walletID, page, limit)
}

func (s *Service) authorize(ctx context.Context, walletID string, caller identity.Caller) (wallet.Wallet, error) {
	w, err := s.wallets.FindByID(ctx, walletID)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if !caller.CanAct(w.UserID) {
		return wallet.Wallet{}, apierror.Forbidden("unauthorized to access this wallet")
	}
	return w, nil
}
