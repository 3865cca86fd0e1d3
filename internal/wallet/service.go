package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamont703/XRWebsites-sub000/internal/apierror"
	"github.com/lamont703/XRWebsites-sub000/internal/identity"
	"github.com/lamont703/XRWebsites-sub000/internal/store"
)

// ErrInsufficientFunds occurs when a debit would drive the balance below
// zero and overdraft is disallowed.
var ErrInsufficientFunds = errors.New("insufficient funds")

// mutateAttempts bounds the optimistic-concurrency retry loop.
const mutateAttempts = 5

// Service owns wallet documents: creation, lookup and balance mutation.
type Service struct {
	repo Repository

	// allowOverdraft restores the legacy behavior where a withdrawal may
	// exceed the balance. Off by default.
	allowOverdraft bool
}

// NewService builds a wallet service.
func NewService(repo Repository, allowOverdraft bool) *Service {
	return &Service{repo: repo, allowOverdraft: allowOverdraft}
}

// Create provisions a wallet for the user with a zero balance. One wallet
// per user is enforced here by lookup, not by a store constraint.
func (s *Service) Create(ctx context.Context, userID string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, apierror.BadRequest("user id is required")
	}

	if _, _, err := s.repo.FindByUser(ctx, userID); err == nil {
		return Wallet{}, apierror.Conflict("wallet already exists for this user")
	} else if !errors.Is(err, store.ErrNotFound) {
		return Wallet{}, apierror.Internal("wallet lookup failed", err)
	}

	now := time.Now().UTC()
	w := Wallet{
		ID:             fmt.Sprintf("wallet-%s", uuid.NewString()),
		UserID:         userID,
		Balance:        decimal.Zero,
		Status:         StatusActive,
		LinkedAccounts: []LinkedAccount{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return Wallet{}, apierror.Conflict("wallet already exists for this user")
		}
		return Wallet{}, apierror.Internal("wallet creation failed", err)
	}
	return w, nil
}

// FindByID fetches a wallet by its identifier.
func (s *Service) FindByID(ctx context.Context, id string) (Wallet, error) {
	w, _, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Wallet{}, apierror.NotFound("wallet not found")
		}
		return Wallet{}, apierror.Internal("wallet lookup failed", err)
	}
	return w, nil
}

// FindByUser fetches the wallet owned by the given user.
func (s *Service) FindByUser(ctx context.Context, userID string) (Wallet, error) {
	w, _, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Wallet{}, apierror.NotFound("no wallet found for this user")
		}
		return Wallet{}, apierror.Internal("wallet lookup failed", err)
	}
	return w, nil
}

// MutateBalance applies a signed delta to the wallet balance with a
// conditional replace. A lost race re-reads and retries; sustained
// contention surfaces as Conflict rather than silently dropping an update.
func (s *Service) MutateBalance(ctx context.Context, walletID string, delta decimal.Decimal) (Wallet, error) {
	for attempt := 0; attempt < mutateAttempts; attempt++ {
		w, etag, err := s.repo.Get(ctx, walletID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Wallet{}, apierror.NotFound("wallet not found")
			}
			return Wallet{}, apierror.Internal("wallet lookup failed", err)
		}

		next := w.Balance.Add(delta)
		if !s.allowOverdraft && next.IsNegative() {
			return Wallet{}, ErrInsufficientFunds
		}

		w.Balance = next
		w.UpdatedAt = time.Now().UTC()

		if _, err := s.repo.Replace(ctx, w, etag); err != nil {
			if errors.Is(err, store.ErrETagMismatch) {
				continue
			}
			return Wallet{}, apierror.Internal("wallet update failed", err)
		}
		return w, nil
	}
	return Wallet{}, apierror.Conflict("wallet is under concurrent modification")
}

// ConnectExternalAccount appends a linked external address. Only the owner
// or an admin may modify the wallet.
func (s *Service) ConnectExternalAccount(ctx context.Context, walletID, address, kind string, caller identity.Caller) (Wallet, error) {
	if address == "" {
		return Wallet{}, apierror.BadRequest("external wallet address is required")
	}

	for attempt := 0; attempt < mutateAttempts; attempt++ {
		w, etag, err := s.repo.Get(ctx, walletID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Wallet{}, apierror.NotFound("wallet not found")
			}
			return Wallet{}, apierror.Internal("wallet lookup failed", err)
		}
		if !caller.CanAct(w.UserID) {
			return Wallet{}, apierror.Forbidden("unauthorized to modify this wallet")
		}

		w.LinkedAccounts = append(w.LinkedAccounts, LinkedAccount{
			Address:     address,
			Kind:        kind,
			ConnectedAt: time.Now().UTC(),
		})
		w.UpdatedAt = time.Now().UTC()

		if _, err := s.repo.Replace(ctx, w, etag); err != nil {
			if errors.Is(err, store.ErrETagMismatch) {
				continue
			}
			return Wallet{}, apierror.Internal("wallet update failed", err)
		}
		return w, nil
	}
	return Wallet{}, apierror.Conflict("wallet is under concurrent modification")
}
