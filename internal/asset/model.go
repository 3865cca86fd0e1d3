package asset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Document partitions.
const (
	DocType        = "nft"
	ListingDocType = "nft_listing"
)

// Asset statuses.
const (
	StatusActive  = "active"
	StatusListed  = "listed"
	StatusDeleted = "deleted"
)

// Listing statuses.
const (
	ListingActive    = "active"
	ListingSold      = "sold"
	ListingCancelled = "cancelled"
	ListingExpired   = "expired"
)

// Transfer-history entry kinds.
const (
	HistoryMint     = "mint"
	HistoryTransfer = "transfer"
)

// TransferRecord is one entry in an asset's append-only ownership history.
// From is nil for the mint entry.
type TransferRecord struct {
	From            *string   `json:"from"`
	To              string    `json:"to"`
	Timestamp       time.Time `json:"timestamp"`
	TransactionType string    `json:"transaction_type"`
}

// Attribute is a display trait attached to asset metadata.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata carries the descriptive fields of an asset.
type Metadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Attributes  []Attribute     `json:"attributes"`
	Royalties   int             `json:"royalties"`
	Supply      int             `json:"supply"`
	Value       decimal.Decimal `json:"value"`
	MintAddress string          `json:"mint_address,omitempty"`
}

// Asset is an NFT document owned by exactly one wallet. The owner always
// equals the `to` field of the most recent transfer-history entry; assets
// are soft-deleted, never removed.
type Asset struct {
	ID              string           `json:"id"`
	OwnerWalletID   string           `json:"owner_wallet_id"`
	CreatorID       string           `json:"creator_id"`
	Status          string           `json:"status"`
	TransferHistory []TransferRecord `json:"transfer_history"`
	Metadata        Metadata         `json:"metadata"`
	IsTokenized     bool             `json:"is_tokenized"`
	TokenSupply     int              `json:"token_supply,omitempty"`
	TokenPrice      decimal.Decimal  `json:"token_price"`
	AvailableTokens int              `json:"available_tokens,omitempty"`
	CurrentListing  string           `json:"current_listing,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Validate checks required fields before the document crosses the store
// boundary.
func (a Asset) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("asset id is required")
	}
	if a.OwnerWalletID == "" {
		return fmt.Errorf("owner_wallet_id is required")
	}
	switch a.Status {
	case StatusActive, StatusListed, StatusDeleted:
	default:
		return fmt.Errorf("invalid asset status %q", a.Status)
	}
	if len(a.TransferHistory) == 0 {
		return fmt.Errorf("transfer_history must not be empty")
	}
	if last := a.TransferHistory[len(a.TransferHistory)-1]; last.To != a.OwnerWalletID {
		return fmt.Errorf("owner %q does not match last transfer recipient %q", a.OwnerWalletID, last.To)
	}
	return nil
}

// Listing offers an asset for sale. It is only created while the seller
// wallet owns the asset.
type Listing struct {
	ID             string          `json:"id"`
	NFTID          string          `json:"nft_id"`
	SellerWalletID string          `json:"seller_wallet_id"`
	Price          decimal.Decimal `json:"price"`
	Status         string          `json:"status"`
	DurationDays   int             `json:"duration_days"`
	ExpiresAt      time.Time       `json:"expires_at"`
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
