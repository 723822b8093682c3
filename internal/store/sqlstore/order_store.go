package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ali123/ali123/types"
)

const orderColumns = `id, store_id, status, currency, total, customer_id, customer_note, shipping, billing, tax_ids, tracking, fulfilled_at, tracking_error, tracking_error_at, created_at`

type OrderStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewOrderStore(db *sql.DB, dialect Dialect) *OrderStore {
	return &OrderStore{db: db, dialect: dialect, now: time.Now}
}

// Create inserts an order with its items and returns the order id.
func (s *OrderStore) Create(ctx context.Context, order *types.Order) (int64, error) {
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return 0, err
	}
	billing, err := json.Marshal(order.Billing)
	if err != nil {
		return 0, err
	}
	taxIDs := order.TaxIDs
	if taxIDs == nil {
		taxIDs = types.TaxIDs{}
	}
	taxJSON, err := json.Marshal(taxIDs)
	if err != nil {
		return 0, err
	}
	currency := order.Currency
	if currency == "" {
		currency = "USD"
	}
	now := types.CanonicalTime(s.now())
	createdAt := now
	if !order.CreatedAt.IsZero() {
		createdAt = types.CanonicalTime(order.CreatedAt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO orders (store_id, status, currency, total, customer_id, customer_note, shipping, billing, tax_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		order.StoreID, order.Status, currency, order.Total, order.CustomerID, order.CustomerNote,
		string(shipping), string(billing), string(taxJSON), createdAt, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	itemQuery := s.dialect.Rebind(`
		INSERT INTO order_items (order_id, product_id, variation_id, quantity, sku, name, total, fulfilled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, item := range order.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		if _, err := tx.ExecContext(ctx, itemQuery, id, item.ProductID, item.VariationID, qty, item.SKU, item.Name, item.Total, item.Fulfilled); err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit order: %w", err)
	}
	order.ID = id
	order.Currency = currency
	order.CreatedAt = createdAt
	return id, nil
}

func (s *OrderStore) FindFulfillable(ctx context.Context, storeID *int64, limit int) ([]int64, error) {
	query := `
		SELECT o.id FROM orders o
		WHERE o.status IN (` + placeholders(len(types.FulfillableStatuses)) + `)
		AND o.fulfilled_at IS NULL`
	var args []any
	for _, st := range types.FulfillableStatuses {
		args = append(args, st)
	}
	if storeID != nil {
		query += ` AND o.store_id = ?`
		args = append(args, *storeID)
	}
	query += `
		AND EXISTS (
			SELECT 1 FROM order_items i
			JOIN product_meta m ON m.product_id = i.product_id AND m.meta_key = ?
			WHERE i.order_id = o.id AND i.fulfilled = ?
		)
		ORDER BY o.created_at ASC, o.id ASC
		LIMIT ?`
	args = append(args, types.MetaExternalID, false, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("find fulfillable orders: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *OrderStore) Get(ctx context.Context, id int64) (*types.Order, error) {
	query := s.dialect.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?`)
	order, err := scanOrder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT i.id, i.product_id, i.variation_id, i.quantity, i.sku, i.name, i.total, i.fulfilled, COALESCE(m.meta_value, '')
		FROM order_items i
		LEFT JOIN product_meta m ON m.product_id = i.product_id AND m.meta_key = ?
		WHERE i.order_id = ?
		ORDER BY i.id ASC`), types.MetaExternalID, id)
	if err != nil {
		return nil, fmt.Errorf("get items of order %d: %w", id, err)
	}
	defer rows.Close()

	order.Items = []types.OrderItem{}
	for rows.Next() {
		var item types.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.VariationID, &item.Quantity, &item.SKU, &item.Name, &item.Total, &item.Fulfilled, &item.ExternalID); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

// MarkFulfilled completes the order with its tracking data, flags the
// imported items as fulfilled and appends the note in one transaction.
func (s *OrderStore) MarkFulfilled(ctx context.Context, id int64, tracking types.Tracking, note string) error {
	now := types.CanonicalTime(s.now())
	if tracking.UpdatedAt.IsZero() {
		tracking.UpdatedAt = now
	}
	body, err := json.Marshal(tracking)
	if err != nil {
		return fmt.Errorf("encode tracking: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fulfillment transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE orders
		SET status = ?, tracking = ?, fulfilled_at = ?, tracking_error = NULL, tracking_error_at = NULL, updated_at = ?
		WHERE id = ?`), types.OrderCompleted, string(body), now, now, id)
	if err != nil {
		return fmt.Errorf("mark order %d fulfilled: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("no order found with id %d", id)
	}

	_, err = tx.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE order_items SET fulfilled = ?
		WHERE order_id = ? AND product_id IN (SELECT product_id FROM product_meta WHERE meta_key = ?)`),
		true, id, types.MetaExternalID)
	if err != nil {
		return fmt.Errorf("mark items of order %d fulfilled: %w", id, err)
	}

	if note != "" {
		_, err = tx.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO order_notes (order_id, note, created_at) VALUES (?, ?, ?)`), id, note, now)
		if err != nil {
			return fmt.Errorf("add note to order %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fulfillment of order %d: %w", id, err)
	}
	return nil
}

func (s *OrderStore) RecordTrackingError(ctx context.Context, id int64, message string) error {
	now := types.CanonicalTime(s.now())
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE orders SET tracking_error = ?, tracking_error_at = ?, updated_at = ? WHERE id = ?`),
		message, now, now, id)
	if err != nil {
		return fmt.Errorf("record tracking error for order %d: %w", id, err)
	}
	return nil
}

// Notes returns the notes of an order, oldest first.
func (s *OrderStore) Notes(ctx context.Context, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT note FROM order_notes WHERE order_id = ? ORDER BY id ASC`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var note string
		if err := rows.Scan(&note); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func scanOrder(row rowScanner) (*types.Order, error) {
	var (
		o               types.Order
		status          string
		shipping        []byte
		billing         []byte
		taxIDs          []byte
		tracking        sql.NullString
		fulfilledAt     sql.NullTime
		trackingError   sql.NullString
		trackingErrorAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.StoreID, &status, &o.Currency, &o.Total, &o.CustomerID, &o.CustomerNote,
		&shipping, &billing, &taxIDs, &tracking, &fulfilledAt, &trackingError, &trackingErrorAt, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = types.OrderStatus(status)
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
			return nil, fmt.Errorf("decode shipping of order %d: %w", o.ID, err)
		}
	}
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &o.Billing); err != nil {
			return nil, fmt.Errorf("decode billing of order %d: %w", o.ID, err)
		}
	}
	if len(taxIDs) > 0 {
		if err := json.Unmarshal(taxIDs, &o.TaxIDs); err != nil {
			return nil, fmt.Errorf("decode tax ids of order %d: %w", o.ID, err)
		}
	}
	if tracking.Valid && tracking.String != "" {
		var t types.Tracking
		if err := json.Unmarshal([]byte(tracking.String), &t); err != nil {
			return nil, fmt.Errorf("decode tracking of order %d: %w", o.ID, err)
		}
		o.Tracking = &t
	}
	if fulfilledAt.Valid {
		t := fulfilledAt.Time.UTC()
		o.FulfilledAt = &t
	}
	if trackingError.Valid {
		msg := trackingError.String
		o.TrackingError = &msg
	}
	if trackingErrorAt.Valid {
		t := trackingErrorAt.Time.UTC()
		o.TrackingErrorAt = &t
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}
