package types

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderOnHold     OrderStatus = "on-hold"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// FulfillableStatuses are the order statuses eligible for supplier fulfillment.
var FulfillableStatuses = []OrderStatus{OrderProcessing, OrderOnHold}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

type OrderItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	VariationID int64   `json:"variation_id"`
	ExternalID  string  `json:"external_id"`
	Quantity    int     `json:"quantity"`
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Total       float64 `json:"total"`
	Fulfilled   bool    `json:"fulfilled"`
}

// TaxIDs holds the customs identifiers some destinations require, keyed by
// scheme (cpf, rut, rfc, curp).
type TaxIDs map[string]string

type Tracking struct {
	Number      string    `json:"tracking_number"`
	Carrier     string    `json:"carrier"`
	CarrierCode string    `json:"carrier_code"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Order struct {
	ID              int64       `json:"id"`
	StoreID         int64       `json:"store_id"`
	Status          OrderStatus `json:"status"`
	Currency        string      `json:"currency"`
	Total           float64     `json:"total"`
	CustomerID      int64       `json:"customer_id"`
	CustomerNote    string      `json:"customer_note"`
	Shipping        Address     `json:"shipping"`
	Billing         Address     `json:"billing"`
	TaxIDs          TaxIDs      `json:"tax_ids"`
	Tracking        *Tracking   `json:"tracking,omitempty"`
	FulfilledAt     *time.Time  `json:"fulfilled_at,omitempty"`
	TrackingError   *string     `json:"tracking_error,omitempty"`
	TrackingErrorAt *time.Time  `json:"tracking_error_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	Items           []OrderItem `json:"items"`
}

// FulfillmentItem is an order line the supplier has to ship.
type FulfillmentItem struct {
	ProductID   int64   `json:"product_id"`
	ExternalID  string  `json:"external_id"`
	VariationID int64   `json:"variation_id"`
	Quantity    int     `json:"quantity"`
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Total       float64 `json:"total"`
}

// FulfillmentRequest is the supplier-facing view of an order.
type FulfillmentRequest struct {
	OrderID     int64             `json:"order_id"`
	Status      OrderStatus       `json:"status"`
	DateCreated string            `json:"date_created"`
	Currency    string            `json:"currency"`
	Total       float64           `json:"total"`
	CustomerID  int64             `json:"customer_id"`
	Shipping    Address           `json:"shipping"`
	Billing     Address           `json:"billing"`
	Items       []FulfillmentItem `json:"items"`
	Notes       string            `json:"notes"`
	TaxIDs      TaxIDs            `json:"tax_ids"`
}

type TrackingSyncStats struct {
	Synced  int `json:"synced"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}
