package domain

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// InMemoryPricingRegistry is the price table built from the model catalog.
type InMemoryPricingRegistry struct {
	mu     sync.RWMutex
	prices map[string]PricingConfig
}

// NewInMemoryPricingRegistry creates an empty registry (DI constructor).
func NewInMemoryPricingRegistry() *InMemoryPricingRegistry {
	return &InMemoryPricingRegistry{prices: make(map[string]PricingConfig)}
}

// GetPricing returns the prices for model.
func (r *InMemoryPricingRegistry) GetPricing(_ context.Context, model string) (PricingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.prices[strings.TrimSpace(model)]
	if !ok {
		return PricingConfig{}, fmt.Errorf("%w for model %q", ErrPricingNotFound, model)
	}
	return config, nil
}

// RegisterPricing adds or overwrites the prices for one model.
func (r *InMemoryPricingRegistry) RegisterPricing(_ context.Context, model string, config PricingConfig) error {
	model = strings.TrimSpace(model)
	if err := validatePricing(model, config); err != nil {
		return err
	}

	r.mu.Lock()
	r.prices[model] = config
	r.mu.Unlock()
	return nil
}

// ReplacePricing swaps the whole table. Nothing changes if any entry is invalid.
func (r *InMemoryPricingRegistry) ReplacePricing(_ context.Context, prices map[string]PricingConfig) error {
	next := make(map[string]PricingConfig, len(prices))
	for model, config := range prices {
		model = strings.TrimSpace(model)
		if err := validatePricing(model, config); err != nil {
			return err
		}
		next[model] = config
	}

	r.mu.Lock()
	r.prices = next
	r.mu.Unlock()
	return nil
}

func validatePricing(model string, config PricingConfig) error {
	if model == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidRequest)
	}
	if config.InputUSDPerMillion < 0 || config.OutputUSDPerMillion < 0 ||
		config.InputDiemPerMillion < 0 || config.OutputDiemPerMillion < 0 {
		return fmt.Errorf("%w: negative price for model %q", ErrInvalidRequest, model)
	}
	return nil
}
