// Package stats keeps the rolling window of per-call usage records and the
// cumulative session counters.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 50

const persistTimeout = 5 * time.Second

// Sink mirrors the window to durable storage.
type Sink interface {
	// Append stores one record, trimming storage to the window capacity.
	Append(ctx context.Context, record domain.StatsRecord) error

	// Load returns stored records oldest first.
	Load(ctx context.Context) ([]domain.StatsRecord, error)

	// Clear removes every stored record.
	Clear(ctx context.Context) error
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithSink mirrors every record to sink.
func WithSink(sink Sink) Option {
	return func(a *Accumulator) {
		a.sink = sink
	}
}

// Accumulator is a fixed-capacity FIFO window plus cumulative counters.
// Safe for concurrent use.
type Accumulator struct {
	// persistMu orders sink writes the same way as the window.
	persistMu sync.Mutex

	mu       sync.Mutex
	ring     []domain.StatsRecord
	head     int // index of the oldest record
	size     int
	totals   domain.UsageTotals
	sink     Sink
	capacity int
}

// NewAccumulator creates an accumulator holding at most capacity records.
func NewAccumulator(capacity int, opts ...Option) *Accumulator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	a := &Accumulator{
		ring:     make([]domain.StatsRecord, capacity),
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Record appends record, evicting the oldest entry when full. Records flagged
// Cumulative also feed the counters; every record refreshes the rate-limit and
// balance figures it carries.
func (a *Accumulator) Record(ctx context.Context, record domain.StatsRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.TimestampMillis == 0 {
		record.TimestampMillis = time.Now().UnixMilli()
	}

	if a.sink != nil {
		a.persistMu.Lock()
		defer a.persistMu.Unlock()
	}

	a.mu.Lock()
	a.push(record)
	if record.Cumulative {
		a.accumulate(record)
	}
	a.snapshot(record.Metadata)
	a.mu.Unlock()

	if a.sink != nil {
		a.persist(ctx, record)
	}
}

// persist outlives ctx; streams record after their request has ended.
func (a *Accumulator) persist(ctx context.Context, record domain.StatsRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := a.sink.Append(ctx, record); err != nil {
		observability.FromContext(ctx).Warn("failed to persist stats record",
			observability.String("record_id", record.ID),
			observability.Error(err),
		)
	}
}

// Latest returns the newest record.
func (a *Accumulator) Latest() (domain.StatsRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.size == 0 {
		return domain.StatsRecord{}, false
	}
	return a.ring[(a.head+a.size-1)%a.capacity], true
}

// History returns a copy of the window, oldest first.
func (a *Accumulator) History() []domain.StatsRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.StatsRecord, a.size)
	for i := range a.size {
		out[i] = a.ring[(a.head+i)%a.capacity]
	}
	return out
}

// Totals returns the cumulative counters.
func (a *Accumulator) Totals() domain.UsageTotals {
	a.mu.Lock()
	defer a.mu.Unlock()

	totals := a.totals
	totals.RateLimitRemainingRequests = clonePtr(totals.RateLimitRemainingRequests)
	totals.RateLimitRemainingTokens = clonePtr(totals.RateLimitRemainingTokens)
	totals.BalanceUSD = clonePtr(totals.BalanceUSD)
	totals.BalanceDiem = clonePtr(totals.BalanceDiem)
	return totals
}

// Reset zeroes the cumulative counters and forgets the last rate-limit and
// balance figures; the window is kept.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.totals = domain.UsageTotals{}
	a.mu.Unlock()
}

// ClearHistory empties the window; the counters are kept.
func (a *Accumulator) ClearHistory() {
	if a.sink != nil {
		a.persistMu.Lock()
		defer a.persistMu.Unlock()
	}

	a.mu.Lock()
	clear(a.ring)
	a.head = 0
	a.size = 0
	a.mu.Unlock()

	if a.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := a.sink.Clear(ctx); err != nil {
			observability.FromContext(ctx).Warn("failed to clear persisted stats", observability.Error(err))
		}
	}
}

// Restore loads persisted records into the window. Counters are not rebuilt.
func (a *Accumulator) Restore(ctx context.Context) (int, error) {
	if a.sink == nil {
		return 0, nil
	}

	records, err := a.sink.Load(ctx)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	for _, record := range records {
		a.push(record)
	}
	a.mu.Unlock()

	return len(records), nil
}

// Capacity returns the window size.
func (a *Accumulator) Capacity() int {
	return a.capacity
}

func (a *Accumulator) push(record domain.StatsRecord) {
	if a.size < a.capacity {
		a.ring[(a.head+a.size)%a.capacity] = record
		a.size++
		return
	}

	a.ring[a.head] = record
	a.head = (a.head + 1) % a.capacity
}

func (a *Accumulator) accumulate(record domain.StatsRecord) {
	a.totals.Calls++
	a.totals.CostUSD += record.CostUSD

	if record.Usage == nil {
		return
	}
	a.totals.PromptTokens += int64(record.Usage.PromptTokens)
	a.totals.CompletionTokens += int64(record.Usage.CompletionTokens)
	a.totals.TotalTokens += int64(record.Usage.TotalTokens)
}

func (a *Accumulator) snapshot(meta domain.ResponseMetadata) {
	if meta.RateLimitRemainingRequests != nil {
		a.totals.RateLimitRemainingRequests = clonePtr(meta.RateLimitRemainingRequests)
	}
	if meta.RateLimitRemainingTokens != nil {
		a.totals.RateLimitRemainingTokens = clonePtr(meta.RateLimitRemainingTokens)
	}
	if meta.BalanceUSD != nil {
		a.totals.BalanceUSD = clonePtr(meta.BalanceUSD)
	}
	if meta.BalanceDiem != nil {
		a.totals.BalanceDiem = clonePtr(meta.BalanceDiem)
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ domain.StatsRecorder = (*Accumulator)(nil)
