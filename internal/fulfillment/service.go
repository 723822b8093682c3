// Package fulfillment hands imported-product orders to the supplier and
// brings tracking numbers back.
package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/ali123/ali123/custom_errors"
	"github.com/ali123/ali123/internal/constants"
	"github.com/ali123/ali123/internal/sanitize"
	"github.com/ali123/ali123/internal/store"
	"github.com/ali123/ali123/types"
	"go.uber.org/zap"
)

const unknownCarrier = "Unknown Carrier"

type Service struct {
	orders store.OrderStore
	logger *zap.Logger
}

func NewService(orders store.OrderStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orders: orders, logger: logger.Named("fulfillment")}
}

// DetectOrders returns the ids of orders waiting for supplier fulfillment,
// oldest first. limit is clamped to 1..MaxFulfillmentBatch.
func (s *Service) DetectOrders(ctx context.Context, storeID *int64, limit int) ([]int64, error) {
	limit = max(1, min(limit, constants.MaxFulfillmentBatch))
	ids, err := s.orders.FindFulfillable(ctx, storeID, limit)
	if err != nil {
		return nil, custom_errors.Wrap(custom_errors.KindPersistence, err, "could not detect orders")
	}
	return ids, nil
}

// MapOrder builds the supplier request for an order. Only items whose
// product was imported are included.
func (s *Service) MapOrder(ctx context.Context, orderID int64) (*types.FulfillmentRequest, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items := make([]types.FulfillmentItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID == 0 || item.ExternalID == "" {
			continue
		}
		items = append(items, types.FulfillmentItem{
			ProductID:   item.ProductID,
			ExternalID:  sanitize.Text(item.ExternalID),
			VariationID: max(item.VariationID, 0),
			Quantity:    max(item.Quantity, 1),
			SKU:         sanitize.Text(item.SKU),
			Name:        sanitize.Text(item.Name),
			Total:       item.Total,
		})
	}
	if len(items) == 0 {
		return nil, custom_errors.NewDomainError(custom_errors.KindValidation,
			"order %d contains no items eligible for supplier fulfillment", orderID)
	}

	taxIDs := types.TaxIDs{}
	for scheme, value := range order.TaxIDs {
		if v := sanitize.Text(value); v != "" {
			taxIDs[scheme] = v
		}
	}

	return &types.FulfillmentRequest{
		OrderID:     order.ID,
		Status:      order.Status,
		DateCreated: order.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		Currency:    order.Currency,
		Total:       order.Total,
		CustomerID:  max(order.CustomerID, 0),
		Shipping:    order.Shipping,
		Billing:     order.Billing,
		Items:       items,
		Notes:       sanitize.Text(order.CustomerNote),
		TaxIDs:      taxIDs,
	}, nil
}

// MarkFulfilled completes the order with tracking and adds a note naming
// the tracking number and carrier.
func (s *Service) MarkFulfilled(ctx context.Context, orderID int64, tracking types.Tracking) error {
	if _, err := s.loadOrder(ctx, orderID); err != nil {
		return err
	}
	tracking.Number = strings.TrimSpace(tracking.Number)
	if tracking.Number == "" {
		return custom_errors.MissingRequiredField("tracking_number")
	}

	carrier := tracking.Carrier
	if carrier == "" {
		carrier = unknownCarrier
	}
	note := fmt.Sprintf("Tracking information updated: %s via %s", tracking.Number, carrier)
	if err := s.orders.MarkFulfilled(ctx, orderID, tracking, note); err != nil {
		return custom_errors.Wrap(custom_errors.KindSync, err, "could not mark order fulfilled")
	}
	s.logger.Info("order fulfilled",
		zap.Int64("order_id", orderID),
		zap.String("tracking_number", tracking.Number))
	return nil
}

func (s *Service) loadOrder(ctx context.Context, orderID int64) (*types.Order, error) {
	if orderID < 1 {
		return nil, custom_errors.NewDomainError(custom_errors.KindValidation, "invalid order id %d", orderID)
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, custom_errors.Wrap(custom_errors.KindPersistence, err, "could not load order")
	}
	if order == nil {
		return nil, custom_errors.NotFound("order", orderID)
	}
	return order, nil
}
