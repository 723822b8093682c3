package types

import "time"

// Product meta keys written by the importer.
const (
	MetaExternalID = "_ali123_external_id"
	MetaImport     = "_ali123_meta"
	MetaSyncedAt   = "_ali123_synced_at"
)

type ProductStatus string

const (
	ProductPublish ProductStatus = "publish"
	ProductDraft   ProductStatus = "draft"
	ProductPending ProductStatus = "pending"
)

var ProductStatuses = []ProductStatus{ProductPublish, ProductDraft, ProductPending}

type Visibility string

const (
	VisibilityVisible Visibility = "visible"
	VisibilityCatalog Visibility = "catalog"
	VisibilitySearch  Visibility = "search"
	VisibilityHidden  Visibility = "hidden"
)

var Visibilities = []Visibility{VisibilityVisible, VisibilityCatalog, VisibilitySearch, VisibilityHidden}

// ProductRecord is an import payload normalized for the product store.
type ProductRecord struct {
	StoreID     int64            `json:"store_id"`
	ExternalID  string           `json:"external_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      ProductStatus    `json:"status"`
	Visibility  Visibility       `json:"visibility"`
	Price       Price            `json:"price"`
	PriceRules  []PricingRule    `json:"price_rules"`
	Images      []string         `json:"images"`
	Attributes  map[string]any   `json:"attributes"`
	Variations  []map[string]any `json:"variations"`
	Meta        map[string]any   `json:"meta"`
}

// Product is a catalog row owned by the product store.
type Product struct {
	ID           int64         `json:"id"`
	StoreID      int64         `json:"store_id"`
	Name         string        `json:"name"`
	Status       ProductStatus `json:"status"`
	Description  string        `json:"description"`
	Visibility   Visibility    `json:"visibility"`
	RegularPrice *float64      `json:"regular_price"`
	SalePrice    *float64      `json:"sale_price"`
	ImageURLs    []string      `json:"image_urls"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type SyncStatus string

const (
	SyncCreated SyncStatus = "created"
	SyncUpdated SyncStatus = "updated"
)

type SyncResult struct {
	ProductID  int64      `json:"product_id"`
	ExternalID string     `json:"external_id"`
	Status     SyncStatus `json:"status"`
}
