package wallet

import (
	"context"

	"github.com/lamont703/XRWebsites-sub000/internal/store"
)

// DocType is the document partition for wallets.
const DocType = "wallet"

const fieldUserID = "user_id"

// Repository persists wallet documents. Reads return the document ETag so
// callers can issue conditional replaces.
type Repository interface {
	Create(ctx context.Context, w Wallet) error
	Get(ctx context.Context, id string) (Wallet, string, error)
	FindByUser(ctx context.Context, userID string) (Wallet, string, error)
	Replace(ctx context.Context, w Wallet, etag string) (string, error)
}

type storeRepository struct {
	docs store.Store
}

// NewRepository builds a wallet repository over the document store.
func NewRepository(docs store.Store) Repository {
	return &storeRepository{docs: docs}
}

func (r *storeRepository) Create(ctx context.Context, w Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}
	_, err := r.docs.Create(ctx, DocType, w.ID, w)
	return err
}

func (r *storeRepository) Get(ctx context.Context, id string) (Wallet, string, error) {
	doc, err := r.docs.Get(ctx, DocType, id)
	if err != nil {
		return Wallet{}, "", err
	}
	var w Wallet
	if err := doc.Decode(&w); err != nil {
		return Wallet{}, "", err
	}
	return w, doc.ETag, nil
}

func (r *storeRepository) FindByUser(ctx context.Context, userID string) (Wallet, string, error) {
	docs, err := r.docs.Query(ctx, store.Query{
		Type:    DocType,
		Filters: []store.Filter{{Field: fieldUserID, Value: userID}},
		Limit:   1,
	})
	if err != nil {
		return Wallet{}, "", err
	}
	if len(docs) == 0 {
		return Wallet{}, "", store.ErrNotFound
	}
	var w Wallet
	if err := docs[0].Decode(&w); err != nil {
		return Wallet{}, "", err
	}
	return w, docs[0].ETag, nil
}

func (r *storeRepository) Replace(ctx context.Context, w Wallet, etag string) (string, error) {
	if err := w.Validate(); err != nil {
		return "", err
	}
	return r.docs.Replace(ctx, DocType, w.ID, w, etag)
}
