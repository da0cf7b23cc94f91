// Package catalog caches the upstream model list, feeds model pricing to the
// cost calculator and groups models by kind.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

const defaultRefreshTimeout = 30 * time.Second

// Config contains catalog settings.
type Config struct {
	TTL            time.Duration `env:"CATALOG_TTL"             envDefault:"10m"`
	RefreshTimeout time.Duration `env:"CATALOG_REFRESH_TIMEOUT" envDefault:"30s"`
}

// Catalog is a read-through cache of the model list. The cached list belongs to
// the credential that fetched it. Concurrent refreshes for one credential
// collapse into a single upstream call.
type Catalog struct {
	provider       domain.CatalogProvider
	pricing        domain.PricingRegistry
	ttl            time.Duration
	refreshTimeout time.Duration
	now            func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	owner     string
	models    []domain.Model
	fetchedAt time.Time
}

// New creates a catalog (DI constructor).
func New(provider domain.CatalogProvider, pricing domain.PricingRegistry, cfg Config) *Catalog {
	refreshTimeout := cfg.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = defaultRefreshTimeout
	}

	return &Catalog{
		provider:       provider,
		pricing:        pricing,
		ttl:            cfg.TTL,
		refreshTimeout: refreshTimeout,
		now:            time.Now,
	}
}

// Models returns the cached list, refreshing it when stale or fetched with a
// different credential. The refresh is shared by every waiting caller and is
// not tied to any one caller's context; a caller whose ctx ends stops waiting.
func (c *Catalog) Models(ctx context.Context, cred domain.Credential) ([]domain.Model, error) {
	owner := fingerprint(cred)
	if models, ok := c.cached(owner); ok {
		return models, nil
	}

	ch := c.group.DoChan(owner, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return c.refresh(refreshCtx, cred, owner)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		observability.FromContext(ctx).Debug("model catalog refreshed", observability.Bool("shared", res.Shared))
		return slices.Clone(res.Val.([]domain.Model)), nil
	}
}

// ModelsByKind returns the models of one kind, in catalog order.
func (c *Catalog) ModelsByKind(ctx context.Context, cred domain.Credential, kind domain.ModelKind) ([]domain.Model, error) {
	models, err := c.Models(ctx, cred)
	if err != nil {
		return nil, err
	}
	return Filter(models, kind), nil
}

// Invalidate drops the cached list.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.owner = ""
	c.models = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Catalog) cached(owner string) ([]domain.Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.models == nil || c.owner != owner || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return slices.Clone(c.models), true
}

func (c *Catalog) refresh(ctx context.Context, cred domain.Credential, owner string) ([]domain.Model, error) {
	logger := observability.FromContext(ctx)

	models, _, err := c.provider.ListModels(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	prices := make(map[string]domain.PricingConfig)
	for _, model := range models {
		if pricing, ok := domain.PricingFromModel(model.Pricing()); ok {
			prices[model.ID] = pricing
		}
	}
	if replaceErr := c.pricing.ReplacePricing(ctx, prices); replaceErr != nil {
		logger.Warn("failed to load model pricing", observability.Error(replaceErr))
	}

	c.mu.Lock()
	c.owner = owner
	c.models = models
	c.fetchedAt = c.now()
	c.mu.Unlock()

	logger.Info("loaded model catalog",
		observability.Int("models", len(models)),
		observability.Int("priced", len(prices)))

	return models, nil
}

// fingerprint identifies a credential without keeping the key itself.
func fingerprint(cred domain.Credential) string {
	sum := sha256.Sum256([]byte(cred))
	return hex.EncodeToString(sum[:])
}
