package mocks

import (
	"context"

	"github.com/ali123/ali123/types"
)

// MockProductStore is a mock implementation of store.ProductStore for testing.
type MockProductStore struct {
	FindByExternalIDFunc func(ctx context.Context, storeID int64, externalID string) (*types.Product, error)
	GetFunc              func(ctx context.Context, id int64) (*types.Product, error)
	SaveFunc             func(ctx context.Context, product *types.Product) (int64, error)
	SetMetaFunc          func(ctx context.Context, productID int64, key, value string) error
	GetMetaFunc          func(ctx context.Context, productID int64, key string) (string, bool, error)
}

func (m *MockProductStore) FindByExternalID(ctx context.Context, storeID int64, externalID string) (*types.Product, error) {
	if m.FindByExternalIDFunc != nil {
		return m.FindByExternalIDFunc(ctx, storeID, externalID)
	}
	return nil, nil
}

func (m *MockProductStore) Get(ctx context.Context, id int64) (*types.Product, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockProductStore) Save(ctx context.Context, product *types.Product) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, product)
	}
	if product.ID == 0 {
		return 1, nil
	}
	return product.ID, nil
}

func (m *MockProductStore) SetMeta(ctx context.Context, productID int64, key, value string) error {
	if m.SetMetaFunc != nil {
		return m.SetMetaFunc(ctx, productID, key, value)
	}
	return nil
}

func (m *MockProductStore) GetMeta(ctx context.Context, productID int64, key string) (string, bool, error) {
	if m.GetMetaFunc != nil {
		return m.GetMetaFunc(ctx, productID, key)
	}
	return "", false, nil
}
