// Package advisory tracks model deprecation notices and low rate-limit signals
// carried by response headers.
package advisory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

// Advisory event types.
const (
	EventModelDeprecation = "model.deprecation"
	EventRateLimitLow     = "ratelimit.low"
)

// Config contains advisory settings.
type Config struct {
	// RateLimitThreshold raises ratelimit.low when remaining requests or tokens
	// drop to this value or below. Negative disables the check.
	RateLimitThreshold int64 `env:"ADVISORY_RATE_LIMIT_THRESHOLD" envDefault:"5"`
}

// Registry holds at most one live deprecation notice per model.
type Registry struct {
	mu        sync.Mutex
	notices   map[string]domain.DeprecationNotice
	order     []string
	publisher domain.EventPublisher
	threshold int64
	now       func() time.Time
}

// NewRegistry creates a registry publishing through publisher, which may be nil.
func NewRegistry(publisher domain.EventPublisher, cfg Config) *Registry {
	return &Registry{
		notices:   make(map[string]domain.DeprecationNotice),
		publisher: publisher,
		threshold: cfg.RateLimitThreshold,
		now:       time.Now,
	}
}

// Observe inspects meta from a call made with modelID. It returns the notice it
// registered, or nil when there is no warning or one is already live.
func (r *Registry) Observe(ctx context.Context, meta domain.ResponseMetadata, modelID string) *domain.DeprecationNotice {
	r.checkRateLimit(ctx, meta, modelID)

	if meta.DeprecationWarning == nil || *meta.DeprecationWarning == "" || modelID == "" {
		return nil
	}

	r.mu.Lock()
	if _, live := r.notices[modelID]; live {
		r.mu.Unlock()
		return nil
	}

	notice := domain.DeprecationNotice{
		ModelID:     modelID,
		WarningText: *meta.DeprecationWarning,
		ObservedAt:  r.now(),
	}
	if meta.DeprecationDate != nil {
		notice.EffectiveDate = *meta.DeprecationDate
	}
	r.notices[modelID] = notice
	r.order = append(r.order, modelID)
	r.mu.Unlock()

	observability.FromContext(ctx).Warn("model deprecation notice",
		observability.String("model_id", modelID),
		observability.String("warning", notice.WarningText),
		observability.String("effective_date", notice.EffectiveDate),
	)

	r.publish(ctx, EventModelDeprecation, map[string]interface{}{
		"model_id":       modelID,
		"warning":        notice.WarningText,
		"effective_date": notice.EffectiveDate,
	})

	return &notice
}

// Dismiss removes the live notice for modelID. Unknown ids are ignored.
func (r *Registry) Dismiss(modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.notices[modelID]; !live {
		return
	}

	delete(r.notices, modelID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == modelID })
}

// Notices returns live notices in registration order.
func (r *Registry) Notices() []domain.DeprecationNotice {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.DeprecationNotice, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.notices[id])
	}
	return out
}

func (r *Registry) checkRateLimit(ctx context.Context, meta domain.ResponseMetadata, modelID string) {
	if r.threshold < 0 {
		return
	}

	lowRequests := meta.RateLimitRemainingRequests != nil && *meta.RateLimitRemainingRequests <= r.threshold
	lowTokens := meta.RateLimitRemainingTokens != nil && *meta.RateLimitRemainingTokens <= r.threshold
	if !lowRequests && !lowTokens {
		return
	}

	data := map[string]interface{}{"model_id": modelID}
	if meta.RateLimitRemainingRequests != nil {
		data["remaining_requests"] = *meta.RateLimitRemainingRequests
	}
	if meta.RateLimitRemainingTokens != nil {
		data["remaining_tokens"] = *meta.RateLimitRemainingTokens
	}
	if meta.RateLimitResetRequests != nil {
		data["reset_requests"] = *meta.RateLimitResetRequests
	}

	r.publish(ctx, EventRateLimitLow, data)
}

func (r *Registry) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(ctx, eventType, data)
}

var _ domain.Advisor = (*Registry)(nil)
