package sqlstore

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ali123/ali123/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductStore_FindByExternalID_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.store_id = $1 AND m.meta_key = $2 AND m.meta_value = $3`)).
		WithArgs(int64(1), types.MetaExternalID, "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	product, err := NewProductStore(db, Postgres).FindByExternalID(context.Background(), 1, "missing")
	require.NoError(t, err)
	assert.Nil(t, product)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductStore_SQLite_SaveAndMeta(t *testing.T) {
	ctx := context.Background()
	store := NewProductStore(newSQLiteDB(t), SQLite)

	product := &types.Product{
		StoreID:      1,
		Name:         "Desk Lamp",
		Status:       types.ProductDraft,
		Visibility:   types.VisibilityVisible,
		RegularPrice: ptr(19.99),
		ImageURLs:    []string{"https://cdn.example.com/lamp.jpg"},
	}
	id, err := store.Save(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, id, product.ID)

	require.NoError(t, store.SetMeta(ctx, id, types.MetaExternalID, "A100"))
	require.NoError(t, store.SetMeta(ctx, id, types.MetaSyncedAt, "first"))
	require.NoError(t, store.SetMeta(ctx, id, types.MetaSyncedAt, "second"))

	value, ok, err := store.GetMeta(ctx, id, types.MetaSyncedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)

	_, ok, err = store.GetMeta(ctx, id, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := store.FindByExternalID(ctx, 1, "A100")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, []string{"https://cdn.example.com/lamp.jpg"}, found.ImageURLs)
	require.NotNil(t, found.RegularPrice)
	assert.InDelta(t, 19.99, *found.RegularPrice, 0.0001)
	assert.Nil(t, found.SalePrice)

	notInStore, err := store.FindByExternalID(ctx, 2, "A100")
	require.NoError(t, err)
	assert.Nil(t, notInStore)

	found.Name = "Desk Lamp XL"
	found.SalePrice = ptr(15.0)
	_, err = store.Save(ctx, found)
	require.NoError(t, err)

	reloaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp XL", reloaded.Name)
	require.NotNil(t, reloaded.SalePrice)
	assert.InDelta(t, 15.0, *reloaded.SalePrice, 0.0001)

	_, err = store.Save(ctx, &types.Product{ID: 999, Name: "ghost"})
	assert.Error(t, err)
}
