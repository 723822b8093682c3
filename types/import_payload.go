package types

import (
	"encoding/json"
	"strings"
)

type RuleType string

const (
	RuleFixed      RuleType = "fixed"
	RulePercentage RuleType = "percentage"
	RuleMultiplier RuleType = "multiplier"
)

// Price holds the regular price and an optional, strictly cheaper sale price.
type Price struct {
	Regular float64  `json:"regular"`
	Sale    *float64 `json:"sale,omitempty"`
}

// PricingRule is one step of an ordered price transformation.
// A zero SaleAdjustment or an empty Pretty means the step is not requested.
type PricingRule struct {
	Type           RuleType `json:"type"`
	Value          float64  `json:"value"`
	SaleAdjustment float64  `json:"sale_adjustment,omitempty"`
	Pretty         string   `json:"pretty,omitempty"`
}

// ImportPayload is the validated import request stored on a queue entry.
type ImportPayload struct {
	ID            int64            `json:"id,omitempty"`
	ExternalID    string           `json:"external_id"`
	Title         string           `json:"title,omitempty"`
	Description   string           `json:"description,omitempty"`
	Status        string           `json:"status,omitempty"`
	Visibility    string           `json:"visibility,omitempty"`
	Price         Price            `json:"price"`
	PriceRules    []PricingRule    `json:"price_rules"`
	Images        []string         `json:"images"`
	Attributes    map[string]any   `json:"attributes"`
	Variations    []map[string]any `json:"variations"`
	Meta          map[string]any   `json:"meta"`
	ScheduledTime *ScheduleTime    `json:"scheduled_time,omitempty"`
}

// UnmarshalJSON accepts the legacy "ali_id" key as the external id.
func (p *ImportPayload) UnmarshalJSON(data []byte) error {
	type plain ImportPayload
	aux := struct {
		*plain
		AliID json.RawMessage `json:"ali_id"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ExternalID == "" && len(aux.AliID) > 0 {
		p.ExternalID = strings.Trim(string(aux.AliID), `"`)
		if p.ExternalID == "null" {
			p.ExternalID = ""
		}
	}
	return nil
}

// EnsureCollections replaces nil collections with empty ones.
func (p *ImportPayload) EnsureCollections() {
	if p.PriceRules == nil {
		p.PriceRules = []PricingRule{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Attributes == nil {
		p.Attributes = map[string]any{}
	}
	if p.Variations == nil {
		p.Variations = []map[string]any{}
	}
	if p.Meta == nil {
		p.Meta = map[string]any{}
	}
}

// MetaStoreID reads meta.store_id when the caller put one there.
func (p *ImportPayload) MetaStoreID() (int64, bool) {
	if p.Meta == nil {
		return 0, false
	}
	switch v := p.Meta["store_id"].(type) {
	case float64:
		return int64(v), v > 0
	case int64:
		return v, v > 0
	case int:
		return int64(v), v > 0
	case json.Number:
		n, err := v.Int64()
		return n, err == nil && n > 0
	}
	return 0, false
}

// PreviewResult is the non-mutating outcome of a pricing preview.
type PreviewResult struct {
	Original Price         `json:"original"`
	Preview  Price         `json:"preview"`
	Rules    []PricingRule `json:"rules"`
}
