package mocks

import (
	"context"

	"github.com/ali123/ali123/types"
)

// MockOrderStore is a mock implementation of store.OrderStore for testing.
type MockOrderStore struct {
	FindFulfillableFunc     func(ctx context.Context, storeID *int64, limit int) ([]int64, error)
	GetFunc                 func(ctx context.Context, id int64) (*types.Order, error)
	MarkFulfilledFunc       func(ctx context.Context, id int64, tracking types.Tracking, note string) error
	RecordTrackingErrorFunc func(ctx context.Context, id int64, message string) error
}

func (m *MockOrderStore) FindFulfillable(ctx context.Context, storeID *int64, limit int) ([]int64, error) {
	if m.FindFulfillableFunc != nil {
		return m.FindFulfillableFunc(ctx, storeID, limit)
	}
	return nil, nil
}

func (m *MockOrderStore) Get(ctx context.Context, id int64) (*types.Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderStore) MarkFulfilled(ctx context.Context, id int64, tracking types.Tracking, note string) error {
	if m.MarkFulfilledFunc != nil {
		return m.MarkFulfilledFunc(ctx, id, tracking, note)
	}
	return nil
}

func (m *MockOrderStore) RecordTrackingError(ctx context.Context, id int64, message string) error {
	if m.RecordTrackingErrorFunc != nil {
		return m.RecordTrackingErrorFunc(ctx, id, message)
	}
	return nil
}
