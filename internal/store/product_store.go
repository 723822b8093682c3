package store

import (
	"context"

	"github.com/ali123/ali123/types"
)

// ProductStore is the catalog the mapper materializes imports into.
type ProductStore interface {
	// FindByExternalID returns nil without error when no product carries the id.
	FindByExternalID(ctx context.Context, storeID int64, externalID string) (*types.Product, error)

	Get(ctx context.Context, id int64) (*types.Product, error)

	// Save inserts the product when its ID is zero and updates it otherwise.
	Save(ctx context.Context, product *types.Product) (int64, error)

	SetMeta(ctx context.Context, productID int64, key, value string) error
	GetMeta(ctx context.Context, productID int64, key string) (string, bool, error)
}
