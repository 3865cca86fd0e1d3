package minting

import (
	"context"

	"github.com/google/uuid"
)

// MintRequest carries the metadata sent to the external minting service.
type MintRequest struct {
	Name        string
	Description string
	ImageURL    string
	CreatorID   string
}

// Minter represents a connector to the external asset minting service. The
// ledger core treats the returned mint address as an inert identifier.
type Minter interface {
	Mint(ctx context.Context, req MintRequest) (string, error)
}

// StaticMinter simulates a successful minting integration.
type StaticMinter struct{}

// Mint returns a synthetic mint address.
func (StaticMinter) Mint(_ context.Context, _ MintRequest) (string, error) {
	return "mint:" + uuid.NewString(), nil
}
