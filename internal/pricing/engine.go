// Package pricing turns a base price and an ordered list of pricing rules
// into the price a product is published with.
package pricing

import (
	"strings"

	"github.com/ali123/ali123/custom_errors"
	"github.com/ali123/ali123/types"
	"github.com/shopspring/decimal"
)

// MinPrice is the lowest regular or sale price the engine will emit.
var MinPrice = decimal.RequireFromString("0.01")

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Engine applies pricing rules. It holds no state between calls.
type Engine struct {
	minPrice decimal.Decimal
}

func NewEngine() *Engine {
	return &Engine{minPrice: MinPrice}
}

// Apply returns a copy of payload with its price replaced by the rule-transformed price.
func (e *Engine) Apply(payload types.ImportPayload) (types.ImportPayload, error) {
	price, err := e.ApplyRules(payload.PriceRules, payload.Price)
	if err != nil {
		return payload, err
	}
	payload.Price = price
	return payload, nil
}

// Preview computes the transformed price without touching the payload.
func (e *Engine) Preview(payload types.ImportPayload) (types.PreviewResult, error) {
	rules := payload.PriceRules
	if rules == nil {
		rules = []types.PricingRule{}
	}
	preview, err := e.ApplyRules(rules, payload.Price)
	if err != nil {
		return types.PreviewResult{}, err
	}
	return types.PreviewResult{
		Original: copyPrice(payload.Price),
		Preview:  preview,
		Rules:    rules,
	}, nil
}

// Validate reports the error ApplyRules would return for rules. Rule errors
// never depend on the base price.
func (e *Engine) Validate(rules []types.PricingRule) error {
	_, err := e.ApplyRules(rules, types.Price{Regular: 1})
	return err
}

// ApplyRules runs rules in order, each rule reading the previous rule's output.
// The first invalid rule aborts the whole run.
func (e *Engine) ApplyRules(rules []types.PricingRule, base types.Price) (types.Price, error) {
	regular := decimal.NewFromFloat(base.Regular)
	var sale *decimal.Decimal
	if base.Sale != nil {
		s := decimal.NewFromFloat(*base.Sale)
		sale = &s
	}

	for i, rule := range rules {
		ruleType := rule.Type
		if ruleType == "" {
			ruleType = types.RuleFixed
		}
		value := decimal.NewFromFloat(rule.Value)

		switch ruleType {
		case types.RuleFixed:
			regular = value
		case types.RulePercentage:
			if value.LessThan(hundred.Neg()) {
				return types.Price{}, custom_errors.NewDomainError(custom_errors.KindInvalidRuleValue,
					"rule %d: percentage %s would produce a negative price", i, value)
			}
			regular = regular.Mul(one.Add(value.Div(hundred)))
		case types.RuleMultiplier:
			if value.IsNegative() {
				return types.Price{}, custom_errors.NewDomainError(custom_errors.KindInvalidRuleValue,
					"rule %d: multiplier %s must not be negative", i, value)
			}
			regular = regular.Mul(value)
		default:
			return types.Price{}, custom_errors.NewDomainError(custom_errors.KindUnsupportedRuleType,
				"rule %d: unsupported pricing rule type %q", i, rule.Type)
		}

		if rule.SaleAdjustment != 0 {
			s := decimal.Max(e.minPrice, regular.Sub(decimal.NewFromFloat(rule.SaleAdjustment)))
			sale = &s
		}

		if ending, ok := prettyEnding(rule.Pretty); ok {
			regular = regular.Floor().Add(ending)
		}
	}

	regular = decimal.Max(e.minPrice, regular).Round(2)
	out := types.Price{Regular: regular.InexactFloat64()}

	if sale != nil {
		s := decimal.Max(e.minPrice, *sale).Round(2)
		if s.LessThan(regular) {
			f := s.InexactFloat64()
			out.Sale = &f
		}
	}
	return out, nil
}

// prettyEnding parses a fractional ending such as "0.99". Values outside [0,1) are ignored.
func prettyEnding(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	ending, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	if ending.IsNegative() || ending.GreaterThanOrEqual(one) {
		return decimal.Zero, false
	}
	return ending, true
}

func copyPrice(p types.Price) types.Price {
	out := types.Price{Regular: p.Regular}
	if p.Sale != nil {
		s := *p.Sale
		out.Sale = &s
	}
	return out
}
