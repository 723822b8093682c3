package store

import (
	"context"

	"github.com/ali123/ali123/types"
)

// OrderStore exposes the orders the fulfillment pipeline works on.
type OrderStore interface {
	// FindFulfillable returns ids of unfulfilled processing/on-hold orders that
	// contain at least one imported product, oldest first.
	FindFulfillable(ctx context.Context, storeID *int64, limit int) ([]int64, error)

	// Get returns the order with its items, or nil when it does not exist.
	Get(ctx context.Context, id int64) (*types.Order, error)

	MarkFulfilled(ctx context.Context, id int64, tracking types.Tracking, note string) error
	RecordTrackingError(ctx context.Context, id int64, message string) error
}
