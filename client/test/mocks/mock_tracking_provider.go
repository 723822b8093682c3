package mocks

import (
	"context"

	"github.com/ali123/ali123/types"
)

// MockTrackingProvider is a mock implementation of fulfillment.TrackingProvider for testing.
type MockTrackingProvider struct {
	FetchTrackingFunc func(ctx context.Context, order types.Order) (*types.Tracking, error)
}

func (m *MockTrackingProvider) FetchTracking(ctx context.Context, order types.Order) (*types.Tracking, error) {
	if m.FetchTrackingFunc != nil {
		return m.FetchTrackingFunc(ctx, order)
	}
	return nil, nil
}
