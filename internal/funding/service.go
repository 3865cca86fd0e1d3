package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lamont703/XRWebsites-sub000/internal/apierror"
	"github.com/lamont703/XRWebsites-sub000/internal/ledger"
	"github.com/lamont703/XRWebsites-sub000/internal/store"
	"github.com/lamont703/XRWebsites-sub000/internal/wallet"
)

const (
	eventKeyPrefix = "payment_event:v1:"
	eventKeyTTL    = 72 * time.Hour
)

// Service credits wallets from payment-succeeded webhook events. Gateways
// redeliver events, so crediting is keyed by event id: a repeat returns the
// original ledger entry without touching the balance.
type Service struct {
	wallets  *wallet.Service
	recorder *ledger.Recorder
	cache    *redis.Client
	logger   *slog.Logger
}

// NewService builds the webhook funding service. The Redis client is an
// optional fast path; the recorder lookup remains the authoritative
// duplicate check.
func NewService(wallets *wallet.Service, recorder *ledger.Recorder, cache *redis.Client, logger *slog.Logger) *Service {
	return &Service{wallets: wallets, recorder: recorder, cache: cache, logger: logger}
}

// HandlePaymentSucceeded applies one payment event: credit the wallet, then
// record a deposit entry keyed by the event id. Duplicate deliveries are a
// no-op returning the original entry.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, event Event) (ledger.Entry, error) {
	if !event.Amount.IsPositive() {
		return ledger.Entry{}, apierror.BadRequest("event amount must be positive")
	}

	if existing, err := s.recorder.FindByClientTxID(ctx, event.ID); err == nil {
		s.logger.Info("duplicate payment event ignored", slog.String("event_id", event.ID))
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return ledger.Entry{}, apierror.Internal("event lookup failed", err)
	}

	if s.cache != nil {
		reserved, err := s.cache.SetNX(ctx, eventKeyPrefix+event.ID, "1", eventKeyTTL).Result()
		if err != nil {
			s.logger.Warn("event reservation failed, continuing without fast path",
				slog.String("event_id", event.ID), slog.Any("error", err))
		} else if !reserved {
			// A concurrent delivery holds the reservation; surface a
			// conflict rather than double-crediting.
			return ledger.Entry{}, apierror.Conflict("event is already being processed")
		}
	}

	if _, err := s.wallets.MutateBalance(ctx, event.WalletID, event.Amount); err != nil {
		s.releaseReservation(ctx, event.ID)
		return ledger.Entry{}, err
	}

	entry, err := s.recorder.Record(ctx, ledger.RecordInput{
		WalletID:        event.WalletID,
		TransactionType: ledger.TypeDeposit,
		Amount:          event.Amount,
		ClientTxID:      event.ID,
		Details: map[string]any{
			"source":   "payment_gateway",
			"event_id": event.ID,
		},
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return entry, nil
		}
		// The credit persisted; the missing audit entry is the documented
		// partial-failure gap. The reservation stays so a blind retry
		// cannot double-credit.
		return ledger.Entry{}, err
	}

	s.logger.Info("payment event credited",
		slog.String("event_id", event.ID),
		slog.String("wallet_id", event.WalletID),
		slog.String("amount", event.Amount.String()),
	)
	return entry, nil
}

func (s *Service) releaseReservation(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.cache.Del(cleanupCtx, eventKeyPrefix+eventID).Err(); err != nil {
		s.logger.Warn("event reservation cleanup failed",
			slog.String("event_id", eventID), slog.Any("error", err))
	}
}

// key formats the cache key for an event id, exposed for tests.
func key(eventID string) string { return fmt.Sprintf("%s%s", eventKeyPrefix, eventID) }
