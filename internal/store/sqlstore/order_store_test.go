package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/ali123/ali123/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedImportedProduct(t *testing.T, products *ProductStore, storeID int64, externalID string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := products.Save(ctx, &types.Product{StoreID: storeID, Name: externalID, Status: types.ProductPublish, Visibility: types.VisibilityVisible})
	require.NoError(t, err)
	require.NoError(t, products.SetMeta(ctx, id, types.MetaExternalID, externalID))
	return id
}

func TestOrderStore_SQLite_FulfillmentFlow(t *testing.T) {
	ctx := context.Background()
	conn := newSQLiteDB(t)
	products := NewProductStore(conn, SQLite)
	orders := NewOrderStore(conn, SQLite)

	imported := seedImportedProduct(t, products, 1, "A1")
	local, err := products.Save(ctx, &types.Product{StoreID: 1, Name: "Local", Status: types.ProductPublish, Visibility: types.VisibilityVisible})
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mixed := &types.Order{
		StoreID:   1,
		Status:    types.OrderProcessing,
		Total:     42,
		Shipping:  types.Address{FirstName: "Ada", City: "Berlin", Country: "DE"},
		TaxIDs:    types.TaxIDs{"cpf": "123.456.789-09"},
		CreatedAt: base,
		Items: []types.OrderItem{
			{ProductID: imported, Quantity: 2, Name: "A1", Total: 30},
			{ProductID: local, Quantity: 1, Name: "Local", Total: 12},
		},
	}
	_, err = orders.Create(ctx, mixed)
	require.NoError(t, err)

	onHold := &types.Order{StoreID: 1, Status: types.OrderOnHold, CreatedAt: base.Add(time.Hour),
		Items: []types.OrderItem{{ProductID: imported, Quantity: 1}}}
	_, err = orders.Create(ctx, onHold)
	require.NoError(t, err)

	localOnly := &types.Order{StoreID: 1, Status: types.OrderProcessing, CreatedAt: base.Add(-time.Hour),
		Items: []types.OrderItem{{ProductID: local, Quantity: 1}}}
	_, err = orders.Create(ctx, localOnly)
	require.NoError(t, err)

	completed := &types.Order{StoreID: 1, Status: types.OrderCompleted, CreatedAt: base.Add(-2 * time.Hour),
		Items: []types.OrderItem{{ProductID: imported, Quantity: 1}}}
	_, err = orders.Create(ctx, completed)
	require.NoError(t, err)

	ids, err := orders.FindFulfillable(ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{mixed.ID, onHold.ID}, ids)

	ids, err = orders.FindFulfillable(ctx, ptr(int64(2)), 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	got, err := orders.Get(ctx, mixed.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "A1", got.Items[0].ExternalID)
	assert.Equal(t, "", got.Items[1].ExternalID)
	assert.Equal(t, "Berlin", got.Shipping.City)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "123.456.789-09", got.TaxIDs["cpf"])
	assert.Nil(t, got.Tracking)

	require.NoError(t, orders.RecordTrackingError(ctx, onHold.ID, "carrier timeout"))
	got, err = orders.Get(ctx, onHold.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TrackingError)
	assert.Equal(t, "carrier timeout", *got.TrackingError)

	tracking := types.Tracking{Number: "ALI-1", Carrier: "Cainiao", CarrierCode: "cainiao", Status: "in_transit"}
	require.NoError(t, orders.MarkFulfilled(ctx, mixed.ID, tracking, "Tracking number ALI-1"))

	got, err = orders.Get(ctx, mixed.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Tracking)
	assert.Equal(t, "ALI-1", got.Tracking.Number)
	assert.Equal(t, types.OrderCompleted, got.Status)
	assert.NotNil(t, got.FulfilledAt)
	assert.True(t, got.Items[0].Fulfilled)
	assert.False(t, got.Items[1].Fulfilled)

	notes, err := orders.Notes(ctx, mixed.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tracking number ALI-1"}, notes)

	ids, err = orders.FindFulfillable(ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{onHold.ID}, ids)

	assert.Error(t, orders.MarkFulfilled(ctx, 9999, tracking, ""))

	missing, err := orders.Get(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
