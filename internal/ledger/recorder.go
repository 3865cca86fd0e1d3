package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamont703/XRWebsites-sub000/internal/apierror"
	"github.com/lamont703/XRWebsites-sub000/internal/store"
)

// DocType is the document partition for ledger entries.
const DocType = "transaction"

const (
	fieldWalletID   = "wallet_id"
	fieldClientTxID = "client_tx_id"
)

// Recorder appends immutable ledger entries to the document store. Recording
// is independent of the wallet mutation that caused it: a failure here does
// not roll back a balance change that already committed.
type Recorder struct {
	docs store.Store
}

// NewRecorder builds a transaction recorder.
func NewRecorder(docs store.Store) *Recorder {
	return &Recorder{docs: docs}
}

// RecordInput captures the data for one ledger entry. Status defaults to
// completed. When ClientTxID is set, recording becomes idempotent: a repeat
// with the same id returns the original entry and ErrDuplicateTransaction.
type RecordInput struct {
	WalletID        string
	TransactionType string
	Amount          decimal.Decimal
	Status          string
	ClientTxID      string
	Details         map[string]any
}

// Record creates a brand-new entry document; it never upserts an existing
// one.
func (r *Recorder) Record(ctx context.Context, input RecordInput) (Entry, error) {
	if input.ClientTxID != "" {
		existing, err := r.FindByClientTxID(ctx, input.ClientTxID)
		if err == nil {
			return existing, ErrDuplicateTransaction
		}
		if !errors.Is(err, store.ErrNotFound) {
			return Entry{}, apierror.Internal("transaction lookup failed", err)
		}
	}

	status := input.Status
	if status == "" {
		status = StatusCompleted
	}
	entry := Entry{
		ID:              fmt.Sprintf("txn-%s", uuid.NewString()),
		WalletID:        input.WalletID,
		TransactionType: input.TransactionType,
		Amount:          input.Amount,
		Status:          status,
		ClientTxID:      input.ClientTxID,
		CreatedAt:       time.Now().UTC(),
		Details:         input.Details,
	}
	if err := entry.Validate(); err != nil {
		return Entry{}, apierror.BadRequest(err.Error())
	}
	if _, err := r.docs.Create(ctx, DocType, entry.ID, entry); err != nil {
		return Entry{}, apierror.Internal("transaction recording failed", err)
	}
	return entry, nil
}

// History returns a wallet's entries newest first, with the total count for
// pagination.
func (r *Recorder) History(ctx context.Context, walletID string, page, limit int) ([]Entry, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	q := store.Query{
		Type:        DocType,
		Filters:     []store.Filter{{Field: fieldWalletID, Value: walletID}},
		NewestFirst: true,
		Offset:      (page - 1) * limit,
		Limit:       limit,
	}
	docs, err := r.docs.Query(ctx, q)
	if err != nil {
		return nil, 0, apierror.Internal("transaction history failed", err)
	}
	total, err := r.docs.Count(ctx, store.Query{
		Type:    DocType,
		Filters: []store.Filter{{Field: fieldWalletID, Value: walletID}},
	})
	if err != nil {
		return nil, 0, apierror.Internal("transaction count failed", err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		var e Entry
		if err := doc.Decode(&e); err != nil {
			return nil, 0, apierror.Internal("transaction decode failed", err)
		}
		entries = append(entries, e)
	}
	return entries, total, nil
}

// SumAmounts totals the signed amounts of all entries for a wallet. The
// result should reconcile with the wallet's current balance; it is reported,
// not enforced.
func (r *Recorder) SumAmounts(ctx context.Context, walletID string) (decimal.Decimal, error) {
	docs, err := r.docs.Query(ctx, store.Query{
		Type:    DocType,
		Filters: []store.Filter{{Field: fieldWalletID, Value: walletID}},
	})
	if err != nil {
		return decimal.Zero, apierror.Internal("transaction query failed", err)
	}
	sum := decimal.Zero
	for _, doc := range docs {
		var e Entry
		if err := doc.Decode(&e); err != nil {
			return decimal.Zero, apierror.Internal("transaction decode failed", err)
		}
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

// Stats aggregates entry counts by transaction type over a recent window.
func (r *Recorder) Stats(ctx context.Context, walletID string, since time.Time) (Stats, error) {
	docs, err := r.docs.Query(ctx, store.Query{
		Type:         DocType,
		Filters:      []store.Filter{{Field: fieldWalletID, Value: walletID}},
		CreatedAfter: since,
	})
	if err != nil {
		return Stats{}, apierror.Internal("transaction stats failed", err)
	}
	stats := Stats{ByType: make(map[string]int)}
	for _, doc := range docs {
		var e Entry
		if err := doc.Decode(&e); err != nil {
			return Stats{}, apierror.Internal("transaction decode failed", err)
		}
		stats.Total++
		stats.ByType[e.TransactionType]++
	}
	return stats, nil
}

// FindByClientTxID returns the entry recorded under an external client or
// event id, or store.ErrNotFound.
func (r *Recorder) FindByClientTxID(ctx context.Context, clientTxID string) (Entry, error) {
	docs, err := r.docs.Query(ctx, store.Query{
		Type:    DocType,
		Filters: []store.Filter{{Field: fieldClientTxID, Value: clientTxID}},
		Limit:   1,
	})
	if err != nil {
		return Entry{}, err
	}
	if len(docs) == 0 {
		return Entry{}, store.ErrNotFound
	}
	var e Entry
	if err := docs[0].Decode(&e); err != nil {
		return Entry{}, err
	}
	return e, nil
}
