package mocks

import (
	"context"

	"github.com/ali123/ali123/types"
)

// MockUserStore is a mock implementation of store.UserStore for testing.
type MockUserStore struct {
	CreateFunc         func(ctx context.Context, username, password string) (int64, error)
	FindFunc           func(ctx context.Context, username, password string) (*types.User, error)
	FindByUsernameFunc func(ctx context.Context, username string) (*types.User, error)
	DeleteFunc         func(ctx context.Context, username string) error
}

func (m *MockUserStore) Create(ctx context.Context, username, password string) (int64, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, username, password)
	}
	return 1, nil
}

func (m *MockUserStore) Find(ctx context.Context, username, password string) (*types.User, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, username, password)
	}
	return nil, nil
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return nil, nil
}

func (m *MockUserStore) Delete(ctx context.Context, username string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, username)
	}
	return nil
}
