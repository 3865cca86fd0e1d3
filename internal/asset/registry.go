package asset

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
	"github.com/lamont703/XRWebsites-sub000/internal/wallet"
)

const (
	fieldOwnerWalletID = "owner_wallet_id"
	fieldCreatorID     = "creator_id"
)

const transferAttempts = 5

// Registry owns asset and listing documents: creation, lookup, ownership
// transfer, listing and tokenization.
type Registry struct {
	docs    store.Store
	wallets *wallet.Service
}

// NewRegistry builds an asset registry.
func NewRegistry(docs store.Store, wallets *wallet.Service) *Registry {
	return &Registry{docs: docs, wallets: wallets}
}

// CreateInput captures the data required to register a freshly minted asset.
type CreateInput struct {
	Name          string
	Description   string
	ImageURL      string
	Value         decimal.Decimal
	OwnerWalletID string
	CreatorID     string
	Attributes    []Attribute
	Royalties     int
	Supply        int
	MintAddress   string
}

// Create registers an asset and seeds its transfer history with the mint
// entry.
func (r *Registry) Create(ctx context.Context, input CreateInput) (Asset, error) {
	if input.OwnerWalletID == "" {
		return Asset{}, apierror.BadRequest("owner_wallet_id is required")
	}

	now := time.Now().UTC()
	supply := input.Supply
	if supply == 0 {
		supply = 1
	}
	a := Asset{
		ID:            fmt.Sprintf("nft-%s", uuid.NewString()),
		OwnerWalletID: input.OwnerWalletID,
		CreatorID:     input.CreatorID,
		Status:        StatusActive,
		TransferHistory: []TransferRecord{{
			From:            nil,
			To:              input.OwnerWalletID,
			Timestamp:       now,
			TransactionType: HistoryMint,
		}},
		Metadata: Metadata{
			Name:        input.Name,
			Description: input.Description,
			ImageURL:    input.ImageURL,
			Attributes:  input.Attributes,
			Royalties:   input.Royalties,
			Supply:      supply,
			Value:       input.Value,
			MintAddress: input.MintAddress,
		},
		TokenPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.Validate(); err != nil {
		return Asset{}, apierror.BadRequest(err.Error())
	}
	if _, err := r.docs.Create(ctx, DocType, a.ID, a); err != nil {
		return Asset{}, apierror.Internal("asset creation failed", err)
	}
	return a, nil
}

// FindByID fetches an asset by id.
func (r *Registry) FindByID(ctx context.Context, id string) (Asset, error) {
	a, _, err := r.get(ctx, id)
	return a, err
}

// FindByWallet lists the assets currently owned by a wallet, newest first.
func (r *Registry) FindByWallet(ctx context.Context, walletID string, page, limit int) ([]Asset, int, error) {
	return r.findBy(ctx, fieldOwnerWalletID, walletID, page, limit)
}

// FindByCreator lists the assets created by a user, newest first.
func (r *Registry) FindByCreator(ctx context.Context, creatorID string, page, limit int) ([]Asset, int, error) {
	return r.findBy(ctx, fieldCreatorID, creatorID, page, limit)
}

// Transfer moves asset ownership between wallets. The source wallet must
// currently own the asset (stale-ownership guard) and the caller must own
// the source wallet or be an admin. The write is a conditional replace, so
// two racing transfers of the same asset cannot both win.
func (r *Registry) Transfer(ctx context.Context, nftID, fromWalletID, toWalletID string, caller identity.Caller) (Asset, error) {
	for attempt := 0; attempt < transferAttempts; attempt++ {
		a, etag, err := r.get(ctx, nftID)
		if err != nil {
			return Asset{}, err
		}
		if a.OwnerWalletID != fromWalletID {
			return Asset{}, apierror.BadRequest("NFT is not owned by the source wallet")
		}

		src, err := r.wallets.FindByID(ctx, fromWalletID)
		if err != nil {
			return Asset{}, err
		}
		if !caller.CanAct(src.UserID) {
			return Asset{}, apierror.Forbidden("not authorized to transfer this NFT")
		}

		now := time.Now().UTC()
		from := fromWalletID
		a.OwnerWalletID = toWalletID
		a.TransferHistory = append(a.TransferHistory, TransferRecord{
			From:            &from,
			To:              toWalletID,
			Timestamp:       now,
			TransactionType: HistoryTransfer,
		})
		a.UpdatedAt = now

		if _, err := r.docs.Replace(ctx, DocType, a.ID, a, etag); err != nil {
			if errors.Is(err, store.ErrETagMismatch) {
				continue
			}
			return Asset{}, apierror.Internal("asset update failed", err)
		}
		return a, nil
	}
	return Asset{}, apierror.Conflict("asset is under concurrent modification")
}

// CreateListing offers an asset for sale. The listing and the asset status
// update are written as one store batch.
func (r *Registry) CreateListing(ctx context.Context, nftID, sellerWalletID string, price decimal.Decimal, durationDays int, createdBy string) (Listing, error) {
	a, etag, err := r.get(ctx, nftID)
	if err != nil {
		return Listing{}, err
	}
	if a.OwnerWalletID != sellerWalletID {
		return Listing{}, apierror.Forbidden("not authorized to list this NFT")
	}
	if durationDays <= 0 {
		return Listing{}, apierror.BadRequest("listing duration must be positive")
	}

	now := time.Now().UTC()
	listing := Listing{
		ID:             fmt.Sprintf("listing-%s", uuid.NewString()),
		NFTID:          nftID,
		SellerWalletID: sellerWalletID,
		Price:          price,
		Status:         ListingActive,
		DurationDays:   durationDays,
		ExpiresAt:      now.Add(time.Duration(durationDays) * 24 * time.Hour),
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	a.Status = StatusListed
	a.CurrentListing = listing.ID
	a.UpdatedAt = now

	err = r.docs.Batch(ctx, []store.Op{
		{Kind: store.OpCreate, Type: ListingDocType, ID: listing.ID, Body: listing},
		{Kind: store.OpReplace, Type: DocType, ID: a.ID, Body: a, ETag: etag},
	})
	if err != nil {
		if errors.Is(err, store.ErrETagMismatch) {
			return Listing{}, apierror.Conflict("asset changed while creating listing")
		}
		return Listing{}, apierror.Internal("listing creation failed", err)
	}
	return listing, nil
}

// Tokenize marks an asset as fractionalized into a fixed token supply.
// Only the creator (or an admin) may tokenize, and a second call against
// the same asset is rejected.
func (r *Registry) Tokenize(ctx context.Context, nftID string, supply int, price decimal.Decimal, caller identity.Caller) (Asset, error) {
	a, etag, err := r.get(ctx, nftID)
	if err != nil {
		return Asset{}, err
	}
	if !caller.CanAct(a.CreatorID) {
		return Asset{}, apierror.Forbidden("not authorized to tokenize this NFT")
	}
	if a.IsTokenized {
		return Asset{}, apierror.BadRequest("NFT is already tokenized")
	}
	if supply <= 0 {
		return Asset{}, apierror.BadRequest("token supply must be positive")
	}

	a.IsTokenized = true
	a.TokenSupply = supply
	a.TokenPrice = price
	a.AvailableTokens = supply
	a.UpdatedAt = time.Now().UTC()

	if _, err := r.docs.Replace(ctx, DocType, a.ID, a, etag); err != nil {
		if errors.Is(err, store.ErrETagMismatch) {
			return Asset{}, apierror.Conflict("asset changed while tokenizing")
		}
		return Asset{}, apierror.Internal("asset update failed", err)
	}
	return a, nil
}

// MetadataPatch carries the metadata fields an update may change. Nil
// fields keep their current value.
type MetadataPatch struct {
	Name        *string
	Description *string
	ImageURL    *string
	Value       *decimal.Decimal
	Attributes  []Attribute
	Royalties   *int
}

// UpdateMetadata merges the patch into the asset's metadata. Only the
// creator or an admin may update; ownership and transfer history are
// untouched.
func (r *Registry) UpdateMetadata(ctx context.Context, nftID string, patch MetadataPatch, caller identity.Caller) (Asset, error) {
	for attempt := 0; attempt < transferAttempts; attempt++ {
		a, etag, err := r.get(ctx, nftID)
		if err != nil {
			return Asset{}, err
		}
		if !caller.CanAct(a.CreatorID) {
			return Asset{}, apierror.Forbidden("not authorized to update this NFT")
		}

		if patch.Name != nil {
			a.Metadata.Name = *patch.Name
		}
		if patch.Description != nil {
			a.Metadata.Description = *patch.Description
		}
		if patch.ImageURL != nil {
			a.Metadata.ImageURL = *patch.ImageURL
		}
		if patch.Value != nil {
			a.Metadata.Value = *patch.Value
		}
		if patch.Attributes != nil {
			a.Metadata.Attributes = patch.Attributes
		}
		if patch.Royalties != nil {
			a.Metadata.Royalties = *patch.Royalties
		}
		a.UpdatedAt = time.Now().UTC()

		if _, err := r.docs.Replace(ctx, DocType, a.ID, a, etag); err != nil {
			if errors.Is(err, store.ErrETagMismatch) {
				continue
			}
			return Asset{}, apierror.Internal("asset update failed", err)
		}
		return a, nil
	}
	return Asset{}, apierror.Conflict("asset is under concurrent modification")
}

// SoftDelete marks an asset deleted without touching its history. Only the
// owner of the holding wallet or an admin may delete.
func (r *Registry) SoftDelete(ctx context.Context, nftID string, caller identity.Caller) (Asset, error) {
	a, etag, err := r.get(ctx, nftID)
	if err != nil {
		return Asset{}, err
	}
	owner, err := r.wallets.FindByID(ctx, a.OwnerWalletID)
	if err != nil {
		return Asset{}, err
	}
	if !caller.CanAct(owner.UserID) {
		return Asset{}, apierror.Forbidden("not authorized to delete this NFT")
	}
	a.Status = StatusDeleted
	a.UpdatedAt = time.Now().UTC()
	if _, err := r.docs.Replace(ctx, DocType, a.ID, a, etag); err != nil {
		return Asset{}, apierror.Internal("asset update failed", err)
	}
	return a, nil
}

func (r *Registry) get(ctx context.Context, id string) (Asset, string, error) {
	doc, err := r.docs.Get(ctx, DocType, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Asset{}, "", apierror.NotFound("NFT not found")
		}
		return Asset{}, "", apierror.Internal("asset lookup failed", err)
	}
	var a Asset
	if err := doc.Decode(&a); err != nil {
		return Asset{}, "", apierror.Internal("asset decode failed", err)
	}
	return a, doc.ETag, nil
}

func (r *Registry) findBy(ctx context.Context, field, value string, page, limit int) ([]Asset, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	docs, err := r.docs.Query(ctx, store.Query{
		Type:        DocType,
		Filters:     []store.Filter{{Field: field, Value: value}},
		NewestFirst: true,
		Offset:      (page - 1) * limit,
		Limit:       limit,
	})
	if err != nil {
		return nil, 0, apierror.Internal("asset query failed", err)
	}
	total, err := r.docs.Count(ctx, store.Query{
		Type:    DocType,
		Filters: []store.Filter{{Field: field, Value: value}},
	})
	if err != nil {
		return nil, 0, apierror.Internal("asset count failed", err)
	}
	assets := make([]Asset, 0, len(docs))
	for _, doc := range docs {
		var a Asset
		if err := doc.Decode(&a); err != nil {
			return nil, 0, apierror.Internal("asset decode failed", err)
		}
		assets = append(assets, a)
	}
	return assets, total, nil
}
