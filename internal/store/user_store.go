package store

import (
	"context"

	"github.com/ali123/ali123/types"
)

// UserStore handles API user accounts.
type UserStore interface {
	// Create adds a new user, replacing one with the same name, and returns its ID.
	Create(ctx context.Context, username, password string) (int64, error)

	// Find looks up a user matching the given username and password.
	Find(ctx context.Context, username, password string) (*types.User, error)

	// FindByUsername looks up a user matching the given username.
	FindByUsername(ctx context.Context, username string) (*types.User, error)

	// Delete removes a user by name.
	Delete(ctx context.Context, username string) error
}
