// Package mapper turns queued import payloads into catalog products.
package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ali123/ali123/custom_errors"
	"github.com/ali123/ali123/internal/sanitize"
	"github.com/ali123/ali123/internal/store"
	"github.com/ali123/ali123/types"
	"go.uber.org/zap"
)

type ProductMapper struct {
	products store.ProductStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewProductMapper(products store.ProductStore, logger *zap.Logger) *ProductMapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductMapper{products: products, logger: logger, now: time.Now}
}

// Map validates payload and normalizes it into a product record for storeID.
func (m *ProductMapper) Map(storeID int64, payload types.ImportPayload) (types.ProductRecord, error) {
	externalID := sanitize.Text(payload.ExternalID)
	if externalID == "" {
		return types.ProductRecord{}, custom_errors.MissingRequiredField("external_id")
	}
	title := sanitize.Text(payload.Title)
	if title == "" {
		return types.ProductRecord{}, custom_errors.MissingRequiredField("title")
	}

	images := make([]string, 0, len(payload.Images))
	for _, raw := range payload.Images {
		if u := sanitize.URL(raw); u != "" {
			images = append(images, u)
		}
	}

	payload.EnsureCollections()
	return types.ProductRecord{
		StoreID:     storeID,
		ExternalID:  externalID,
		Title:       title,
		Description: sanitize.HTML(payload.Description),
		Status:      normalizeStatus(payload.Status),
		Visibility:  normalizeVisibility(payload.Visibility),
		Price:       payload.Price,
		PriceRules:  payload.PriceRules,
		Images:      images,
		Attributes:  payload.Attributes,
		Variations:  payload.Variations,
		Meta:        payload.Meta,
	}, nil
}

// SyncToStore creates or updates the product identified by the record's external id.
//
// TODO: sync record.Variations and record.Attributes once ProductStore exposes variant rows.
func (m *ProductMapper) SyncToStore(ctx context.Context, record types.ProductRecord) (types.SyncResult, error) {
	if record.ExternalID == "" {
		return types.SyncResult{}, custom_errors.MissingRequiredField("external_id")
	}

	existing, err := m.products.FindByExternalID(ctx, record.StoreID, record.ExternalID)
	if err != nil {
		return types.SyncResult{}, custom_errors.Wrap(custom_errors.KindSync, err, "product lookup failed")
	}

	product := existing
	status := types.SyncUpdated
	if product == nil {
		product = &types.Product{StoreID: record.StoreID}
		status = types.SyncCreated
	}

	product.Name = record.Title
	product.Status = record.Status
	product.Description = record.Description
	product.Visibility = record.Visibility
	if len(record.Images) > 0 {
		product.ImageURLs = record.Images
	}
	if record.Price.Regular != 0 {
		regular := record.Price.Regular
		product.RegularPrice = &regular
	}
	if record.Price.Sale != nil && *record.Price.Sale != 0 {
		sale := *record.Price.Sale
		product.SalePrice = &sale
	} else if status == types.SyncUpdated {
		product.SalePrice = nil
	}

	productID, err := m.products.Save(ctx, product)
	if err != nil {
		return types.SyncResult{}, custom_errors.Wrap(custom_errors.KindSync, err, "product save failed")
	}

	meta, err := json.Marshal(record.Meta)
	if err != nil {
		return types.SyncResult{}, custom_errors.Wrap(custom_errors.KindSync, err, "encode product meta")
	}
	metas := [][2]string{
		{types.MetaExternalID, record.ExternalID},
		{types.MetaImport, string(meta)},
		{types.MetaSyncedAt, m.now().UTC().Format(time.RFC3339)},
	}
	for _, kv := range metas {
		if err := m.products.SetMeta(ctx, productID, kv[0], kv[1]); err != nil {
			return types.SyncResult{}, custom_errors.Wrap(custom_errors.KindSync, err, fmt.Sprintf("set product meta %s", kv[0]))
		}
	}

	if len(record.Variations) > 0 || len(record.Attributes) > 0 {
		m.logger.Debug("variations and attributes are not synced",
			zap.String("external_id", record.ExternalID),
			zap.Int("variations", len(record.Variations)),
			zap.Int("attributes", len(record.Attributes)))
	}

	return types.SyncResult{ProductID: productID, ExternalID: record.ExternalID, Status: status}, nil
}

func normalizeStatus(raw string) types.ProductStatus {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, s := range types.ProductStatuses {
		if string(s) == raw {
			return s
		}
	}
	return types.ProductDraft
}

func normalizeVisibility(raw string) types.Visibility {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, v := range types.Visibilities {
		if string(v) == raw {
			return v
		}
	}
	return types.VisibilityVisible
}
