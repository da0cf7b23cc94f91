package venice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/davidbz/venicedesk/internal/domain"
)

const (
	rateLimitsPath   = "/api_keys/rate_limits"
	billingUsagePath = "/billing/usage"
)

// RateLimits returns the account tier, its limits and balances.
func (c *Client) RateLimits(ctx context.Context, cred domain.Credential) (*domain.RateLimits, domain.ResponseMetadata, error) {
	raw, meta, err := c.Execute(ctx, cred, http.MethodGet, rateLimitsPath, nil)
	if err != nil {
		return nil, meta, err
	}

	var limits domain.RateLimits
	if err := decode(unwrap(raw, "data"), &limits); err != nil {
		return nil, meta, fmt.Errorf("failed to decode rate limits: %w", err)
	}

	return &limits, meta, nil
}

// BillingUsage returns the billing report untouched.
func (c *Client) BillingUsage(ctx context.Context, cred domain.Credential) (json.RawMessage, domain.ResponseMetadata, error) {
	return c.Execute(ctx, cred, http.MethodGet, billingUsagePath, nil)
}
