package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/ali123/ali123/client/test/mocks"
	"github.com/ali123/ali123/internal/constants"
	"github.com/ali123/ali123/internal/message_broaker"
	"github.com/ali123/ali123/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTrackingProvider(t *testing.T) {
	tracking, err := NewDefaultTrackingProvider().FetchTracking(context.Background(), types.Order{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, "ALI-42", tracking.Number)
	assert.Equal(t, "AliExpress Standard Shipping", tracking.Carrier)
	assert.Equal(t, "aliexpress-standard", tracking.CarrierCode)
	assert.Equal(t, "in_transit", tracking.Status)
}

func TestTrackingSync_Sync(t *testing.T) {
	var (
		fulfilled []int64
		recorded  = map[int64]string{}
		released  []int
		published []string
	)
	orders := &mocks.MockOrderStore{
		FindFulfillableFunc: func(ctx context.Context, storeID *int64, limit int) ([]int64, error) {
			assert.Equal(t, constants.MaxFulfillmentBatch, limit)
			return []int64{1, 2, 3, 4}, nil
		},
		GetFunc: func(ctx context.Context, id int64) (*types.Order, error) {
			if id == 4 {
				return nil, nil
			}
			return &types.Order{ID: id, StoreID: 1, Status: types.OrderProcessing}, nil
		},
		MarkFulfilledFunc: func(ctx context.Context, id int64, tracking types.Tracking, note string) error {
			fulfilled = append(fulfilled, id)
			return nil
		},
		RecordTrackingErrorFunc: func(ctx context.Context, id int64, message string) error {
			recorded[id] = message
			return nil
		},
	}
	provider := &mocks.MockTrackingProvider{
		FetchTrackingFunc: func(ctx context.Context, order types.Order) (*types.Tracking, error) {
			switch order.ID {
			case 2:
				return nil, errors.New("carrier timeout")
			case 3:
				return nil, nil
			}
			return NewDefaultTrackingProvider().FetchTracking(ctx, order)
		},
	}
	lockMgr := &mocks.MockDistributedLockManager{
		ReleaseFunc: func(ctx context.Context, lockID int) error {
			released = append(released, lockID)
			return nil
		},
	}
	broker := &mocks.MockMessageBroker{
		PublishFunc: func(ctx context.Context, routingKey string, message []byte) error {
			published = append(published, routingKey)
			return nil
		},
	}

	sync := NewTrackingSync(NewService(orders, nil), orders, provider, lockMgr, nil)
	sync.SetEventPublisher(message_broaker.NewEventPublisher(broker, nil))

	stats, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TrackingSyncStats{Synced: 1, Errors: 1, Skipped: 2}, stats)
	assert.Equal(t, []int64{1}, fulfilled)
	assert.Equal(t, map[int64]string{2: "carrier timeout"}, recorded)
	assert.Equal(t, []int{constants.TrackingSyncLock}, released)
	assert.Equal(t, []string{constants.EventOrderFulfilled}, published)
}

func TestTrackingSync_SkipsWhenLockHeld(t *testing.T) {
	detected := false
	orders := &mocks.MockOrderStore{
		FindFulfillableFunc: func(ctx context.Context, storeID *int64, limit int) ([]int64, error) {
			detected = true
			return nil, nil
		},
	}
	lockMgr := &mocks.MockDistributedLockManager{
		TryAcquireFunc: func(ctx context.Context, lockID int) (bool, error) { return false, nil },
	}

	sync := NewTrackingSync(NewService(orders, nil), orders, NewDefaultTrackingProvider(), lockMgr, nil)
	stats, err := sync.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncRunning)
	assert.Equal(t, types.TrackingSyncStats{}, stats)
	assert.False(t, detected)
}

func TestTrackingSync_ScopedToStore(t *testing.T) {
	var gotStore *int64
	orders := &mocks.MockOrderStore{
		FindFulfillableFunc: func(ctx context.Context, storeID *int64, limit int) ([]int64, error) {
			gotStore = storeID
			return nil, nil
		},
	}
	sync := NewTrackingSync(NewService(orders, nil), orders, NewDefaultTrackingProvider(), &mocks.MockDistributedLockManager{}, nil)
	storeID := int64(5)
	sync.ScopeToStore(&storeID)

	_, err := sync.Sync(context.Background())
	require.NoError(t, err)
	require.NotNil(t, gotStore)
	assert.Equal(t, int64(5), *gotStore)
}
