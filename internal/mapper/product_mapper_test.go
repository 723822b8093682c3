package mapper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ali123/ali123/client/test/mocks"
	"github.com/ali123/ali123/custom_errors"
	"github.com/ali123/ali123/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMapper(products *mocks.MockProductStore) *ProductMapper {
	m := NewProductMapper(products, nil)
	m.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestProductMapper_Map(t *testing.T) {
	m := newTestMapper(&mocks.MockProductStore{})

	rec, err := m.Map(3, types.ImportPayload{
		ExternalID:  "1005001",
		Title:       " <b>Desk Lamp</b> ",
		Description: "<p>Bright</p><script>x()</script>",
		Status:      "publish",
		Visibility:  "nowhere",
		Price:       types.Price{Regular: 25},
		Images:      []string{"https://img.example/1.jpg", "ftp://img.example/2.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), rec.StoreID)
	assert.Equal(t, "1005001", rec.ExternalID)
	assert.Equal(t, "Desk Lamp", rec.Title)
	assert.Equal(t, "<p>Bright</p>", rec.Description)
	assert.Equal(t, types.ProductPublish, rec.Status)
	assert.Equal(t, types.VisibilityVisible, rec.Visibility)
	assert.Equal(t, []string{"https://img.example/1.jpg"}, rec.Images)
	assert.NotNil(t, rec.Meta)
	assert.NotNil(t, rec.PriceRules)
}

func TestProductMapper_Map_Defaults(t *testing.T) {
	m := newTestMapper(&mocks.MockProductStore{})

	rec, err := m.Map(1, types.ImportPayload{ExternalID: "P1", Title: "Lamp", Status: "archived", Visibility: "Hidden"})
	require.NoError(t, err)
	assert.Equal(t, types.ProductDraft, rec.Status)
	assert.Equal(t, types.VisibilityHidden, rec.Visibility)
}

func TestProductMapper_Map_MissingFields(t *testing.T) {
	m := newTestMapper(&mocks.MockProductStore{})

	_, err := m.Map(1, types.ImportPayload{Title: "Lamp"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, custom_errors.ErrValidation))
	assert.Contains(t, err.Error(), "external_id")

	_, err = m.Map(1, types.ImportPayload{ExternalID: "P1", Title: "<br>"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestProductMapper_SyncToStore_Creates(t *testing.T) {
	var saved *types.Product
	metas := map[string]string{}
	products := &mocks.MockProductStore{
		FindByExternalIDFunc: func(ctx context.Context, storeID int64, externalID string) (*types.Product, error) {
			assert.Equal(t, int64(2), storeID)
			assert.Equal(t, "P1", externalID)
			return nil, nil
		},
		SaveFunc: func(ctx context.Context, product *types.Product) (int64, error) {
			saved = product
			return 77, nil
		},
		SetMetaFunc: func(ctx context.Context, productID int64, key, value string) error {
			assert.Equal(t, int64(77), productID)
			metas[key] = value
			return nil
		},
	}
	m := newTestMapper(products)

	sale := 80.0
	res, err := m.SyncToStore(context.Background(), types.ProductRecord{
		StoreID:    2,
		ExternalID: "P1",
		Title:      "Lamp",
		Status:     types.ProductDraft,
		Visibility: types.VisibilityVisible,
		Price:      types.Price{Regular: 90, Sale: &sale},
		Meta:       map[string]any{"source": "ali"},
	})
	require.NoError(t, err)

	assert.Equal(t, types.SyncResult{ProductID: 77, ExternalID: "P1", Status: types.SyncCreated}, res)
	require.NotNil(t, saved)
	assert.Equal(t, int64(2), saved.StoreID)
	assert.Equal(t, "Lamp", saved.Name)
	require.NotNil(t, saved.RegularPrice)
	assert.Equal(t, 90.0, *saved.RegularPrice)
	require.NotNil(t, saved.SalePrice)
	assert.Equal(t, 80.0, *saved.SalePrice)

	assert.Equal(t, "P1", metas[types.MetaExternalID])
	assert.JSONEq(t, `{"source":"ali"}`, metas[types.MetaImport])
	assert.Equal(t, "2025-05-01T12:00:00Z", metas[types.MetaSyncedAt])
}

func TestProductMapper_SyncToStore_UpdatesExisting(t *testing.T) {
	oldSale := 5.0
	existing := &types.Product{ID: 12, StoreID: 1, Name: "Old", SalePrice: &oldSale}
	products := &mocks.MockProductStore{
		FindByExternalIDFunc: func(ctx context.Context, storeID int64, externalID string) (*types.Product, error) {
			return existing, nil
		},
	}
	m := newTestMapper(products)

	res, err := m.SyncToStore(context.Background(), types.ProductRecord{
		StoreID: 1, ExternalID: "P1", Title: "New", Price: types.Price{Regular: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, types.SyncUpdated, res.Status)
	assert.Equal(t, int64(12), res.ProductID)
	assert.Equal(t, "New", existing.Name)
	assert.Nil(t, existing.RegularPrice)
	assert.Nil(t, existing.SalePrice)
}

func TestProductMapper_SyncToStore_Errors(t *testing.T) {
	m := newTestMapper(&mocks.MockProductStore{})
	_, err := m.SyncToStore(context.Background(), types.ProductRecord{Title: "x"})
	assert.ErrorIs(t, err, custom_errors.ErrValidation)

	failing := newTestMapper(&mocks.MockProductStore{
		SaveFunc: func(ctx context.Context, product *types.Product) (int64, error) {
			return 0, errors.New("disk full")
		},
	})
	_, err = failing.SyncToStore(context.Background(), types.ProductRecord{ExternalID: "P1", Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, custom_errors.ErrSync)
	assert.Contains(t, err.Error(), "disk full")

	lookup := newTestMapper(&mocks.MockProductStore{
		FindByExternalIDFunc: func(ctx context.Context, storeID int64, externalID string) (*types.Product, error) {
			return nil, errors.New("timeout")
		},
	})
	_, err = lookup.SyncToStore(context.Background(), types.ProductRecord{ExternalID: "P1", Title: "x"})
	assert.ErrorIs(t, err, custom_errors.ErrSync)
}
