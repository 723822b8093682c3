package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ali123/ali123/custom_errors"
	"github.com/ali123/ali123/internal/constants"
	"github.com/ali123/ali123/internal/lock"
	"github.com/ali123/ali123/internal/message_broaker"
	"github.com/ali123/ali123/internal/observability"
	"github.com/ali123/ali123/internal/store"
	"github.com/ali123/ali123/types"
	"go.uber.org/zap"
)

// ErrSyncRunning is returned by Sync when another instance holds the tracking sync lock.
var ErrSyncRunning = errors.New("tracking sync already running")

// TrackingProvider looks up shipment tracking for an order. A nil tracking
// without error means the supplier has not shipped yet.
type TrackingProvider interface {
	FetchTracking(ctx context.Context, order types.Order) (*types.Tracking, error)
}

// DefaultTrackingProvider derives tracking from the order id until a
// supplier API client is configured.
type DefaultTrackingProvider struct {
	now func() time.Time
}

func NewDefaultTrackingProvider() *DefaultTrackingProvider {
	return &DefaultTrackingProvider{now: time.Now}
}

func (p *DefaultTrackingProvider) FetchTracking(ctx context.Context, order types.Order) (*types.Tracking, error) {
	return &types.Tracking{
		Number:      fmt.Sprintf("ALI-%d", order.ID),
		Carrier:     "AliExpress Standard Shipping",
		CarrierCode: "aliexpress-standard",
		Status:      "in_transit",
		UpdatedAt:   p.now().UTC().Truncate(time.Second),
	}, nil
}

type TrackingSync struct {
	service  *Service
	orders   store.OrderStore
	provider TrackingProvider
	lock     lock.DistributedLockManager
	events   *message_broaker.EventPublisher
	metrics  *observability.Metrics
	storeID  *int64
	logger   *zap.Logger
}

func NewTrackingSync(service *Service, orders store.OrderStore, provider TrackingProvider, distributedLock lock.DistributedLockManager, logger *zap.Logger) *TrackingSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingSync{
		service:  service,
		orders:   orders,
		provider: provider,
		lock:     distributedLock,
		logger:   logger.Named("tracking"),
	}
}

func (t *TrackingSync) SetEventPublisher(events *message_broaker.EventPublisher) {
	t.events = events
}

func (t *TrackingSync) SetMetrics(metrics *observability.Metrics) {
	t.metrics = metrics
}

// ScopeToStore limits Sync to one store; nil syncs every store.
func (t *TrackingSync) ScopeToStore(storeID *int64) {
	t.storeID = storeID
}

// Sync fetches tracking for every detected order and marks the shipped ones
// fulfilled. A provider failure is recorded on the order and counted.
func (t *TrackingSync) Sync(ctx context.Context) (types.TrackingSyncStats, error) {
	var stats types.TrackingSyncStats

	acquired, err := t.lock.TryAcquire(ctx, constants.TrackingSyncLock)
	if err != nil {
		return stats, custom_errors.Wrap(custom_errors.KindSync, err, "could not take tracking sync lock")
	}
	if !acquired {
		return stats, ErrSyncRunning
	}
	defer func() {
		if err := t.lock.Release(context.WithoutCancel(ctx), constants.TrackingSyncLock); err != nil {
			t.logger.Warn("could not release tracking sync lock", zap.Error(err))
		}
	}()

	ids, err := t.service.DetectOrders(ctx, t.storeID, constants.MaxFulfillmentBatch)
	if err != nil {
		return stats, err
	}

	for _, id := range ids {
		log := t.logger.With(zap.Int64("order_id", id))

		order, err := t.orders.Get(ctx, id)
		if err != nil {
			log.Warn("could not load order", zap.Error(err))
			stats.Errors++
			continue
		}
		if order == nil {
			stats.Skipped++
			continue
		}

		tracking, err := t.provider.FetchTracking(ctx, *order)
		if err != nil {
			log.Warn("tracking lookup failed", zap.Error(err))
			if recErr := t.orders.RecordTrackingError(ctx, id, err.Error()); recErr != nil {
				log.Error("could not record tracking error", zap.Error(recErr))
			}
			stats.Errors++
			continue
		}
		if tracking == nil {
			stats.Skipped++
			continue
		}

		if err := t.service.MarkFulfilled(ctx, id, *tracking); err != nil {
			log.Warn("could not mark order fulfilled", zap.Error(err))
			stats.Errors++
			continue
		}
		stats.Synced++
		t.events.Publish(ctx, constants.EventOrderFulfilled, order.StoreID, map[string]any{
			"order_id":        id,
			"tracking_number": tracking.Number,
			"carrier":         tracking.Carrier,
		})
	}

	t.metrics.RecordTrackingSync(ctx, stats)
	t.logger.Info("tracking sync finished",
		zap.Int("synced", stats.Synced),
		zap.Int("errors", stats.Errors),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}
