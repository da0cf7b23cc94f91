package domain

import (
	"context"
	"errors"
)

// ErrPricingNotFound is returned for models the catalog carries no prices for.
var ErrPricingNotFound = errors.New("pricing not found")

// PricingConfig holds a model's per-million-token prices in both currencies
// Venice quotes.
type PricingConfig struct {
	InputUSDPerMillion   float64 `json:"input_usd_per_million"`
	OutputUSDPerMillion  float64 `json:"output_usd_per_million"`
	InputDiemPerMillion  float64 `json:"input_diem_per_million,omitempty"`
	OutputDiemPerMillion float64 `json:"output_diem_per_million,omitempty"`
}

// PricingFromModel converts catalog pricing into a PricingConfig. Models with
// no USD quote are unpriced.
func PricingFromModel(pricing *ModelPricing) (PricingConfig, bool) {
	if pricing == nil || (pricing.Input.USD == 0 && pricing.Output.USD == 0) {
		return PricingConfig{}, false
	}
	return PricingConfig{
		InputUSDPerMillion:   pricing.Input.USD,
		OutputUSDPerMillion:  pricing.Output.USD,
		InputDiemPerMillion:  pricing.Input.Diem,
		OutputDiemPerMillion: pricing.Output.Diem,
	}, true
}

// CostCalculator calculates cost based on token usage.
type CostCalculator interface {
	// Calculate returns the USD cost for a given model and usage.
	Calculate(ctx context.Context, model string, usage Usage) (float64, error)
}

// PricingRegistry maintains pricing information for models.
type PricingRegistry interface {
	// GetPricing returns pricing config for a model, or ErrPricingNotFound.
	GetPricing(ctx context.Context, model string) (PricingConfig, error)

	// RegisterPricing adds or overwrites pricing for one model.
	RegisterPricing(ctx context.Context, model string, config PricingConfig) error

	// ReplacePricing swaps in the prices of a freshly loaded catalog. Models
	// missing from prices lose their pricing.
	ReplacePricing(ctx context.Context, prices map[string]PricingConfig) error
}
