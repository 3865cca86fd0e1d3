package wallet

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// StatusActive marks a wallet that accepts mutations.
	StatusActive = "active"
	// StatusFrozen marks a wallet that is temporarily blocked.
	StatusFrozen = "frozen"
)

// LinkedAccount is an external address attached to a wallet.
type LinkedAccount struct {
	Address     string    `json:"address"`
	Kind        string    `json:"kind"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Wallet is the custodial balance account for one user. The balance is a
// decimal serialized as a JSON string to avoid floating-point drift.
type Wallet struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	Status         string          `json:"status"`
	LinkedAccounts []LinkedAccount `json:"linked_accounts"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Validate checks required fields before the document crosses the store
// boundary.
func (w Wallet) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("wallet id is required")
	}
	if w.UserID == "" {
		return fmt.Errorf("wallet user_id is required")
	}
	switch w.Status {
	case StatusActive, StatusFrozen:
	default:
		return fmt.Errorf("invalid wallet status %q", w.Status)
	}
	return nil
}
