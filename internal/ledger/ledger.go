package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDuplicateTransaction indicates the provided client transaction id has
// already been recorded; the caller should treat the operation as a no-op
// and reuse the original entry.
var ErrDuplicateTransaction = errors.New("duplicate transaction")

// Transaction types. Positive amounts are credits, negative are debits;
// NFT operations record zero-amount entries for the audit trail.
const (
	TypeDeposit     = "deposit"
	TypeWithdrawal  = "withdrawal"
	TypeTransfer    = "transfer"
	TypeNFTMint     = "nft_mint"
	TypeNFTTransfer = "nft_transfer"
	TypeNFTList     = "nft_list"
)

// Entry statuses.
const (
	StatusCompleted  = "completed"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)

// Entry is one immutable ledger record. Entries are only ever created,
// never mutated or deleted; they are the audit trail for every balance
// change.
type Entry struct {
	ID              string          `json:"id"`
	WalletID        string          `json:"wallet_id"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	ClientTxID      string          `json:"client_tx_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Details         map[string]any  `json:"details,omitempty"`
}

// Validate checks required fields before the entry crosses the store
// boundary.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if e.WalletID == "" {
		return fmt.Errorf("entry wallet_id is required")
	}
	switch e.TransactionType {
	case TypeDeposit, TypeWithdrawal, TypeTransfer, TypeNFTMint, TypeNFTTransfer, TypeNFTList:
	default:
		return fmt.Errorf("invalid transaction type %q", e.TransactionType)
	}
	switch e.Status {
	case StatusCompleted, StatusProcessing, StatusFailed:
	default:
		return fmt.Errorf("invalid transaction status %q", e.Status)
	}
	return nil
}

// Stats aggregates a wallet's recent ledger activity.
type Stats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}
