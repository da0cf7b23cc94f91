package domain

import (
	"context"
	"errors"
)

const tokensPerMillion = 1_000_000.0

// StandardCostCalculator implements standard token-based cost calculation.
type StandardCostCalculator struct {
	pricingRegistry PricingRegistry
}

// NewStandardCostCalculator creates a new cost calculator.
func NewStandardCostCalculator(registry PricingRegistry) *StandardCostCalculator {
	return &StandardCostCalculator{
		pricingRegistry: registry,
	}
}

// Calculate computes the total cost based on token usage and model pricing.
func (c *StandardCostCalculator) Calculate(
	ctx context.Context,
	model string,
	usage Usage,
) (float64, error) {
	if model == "" {
		return 0, errors.New("model cannot be empty")
	}

	pricing, err := c.pricingRegistry.GetPricing(ctx, model)
	if errors.Is(err, ErrPricingNotFound) {
		// Unpriced models cost nothing.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	inputCost := float64(usage.PromptTokens) / tokensPerMillion * pricing.InputUSDPerMillion
	outputCost := float64(usage.CompletionTokens) / tokensPerMillion * pricing.OutputUSDPerMillion
	totalCost := inputCost + outputCost

	return totalCost, nil
}
