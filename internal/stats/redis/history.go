// Package redis persists the stats window in a Redis list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/venicedesk/internal/domain"
	"github.com/davidbz/venicedesk/internal/observability"
)

// HistorySink stores stats records as JSON entries of a capped list.
type HistorySink struct {
	client   *redis.Client
	key      string
	capacity int
}

// NewHistorySink creates a sink writing to key, keeping at most capacity entries.
func NewHistorySink(client *redis.Client, key string, capacity int) *HistorySink {
	return &HistorySink{
		client:   client,
		key:      key,
		capacity: capacity,
	}
}

// Append pushes record and trims the list to capacity in one round trip.
func (s *HistorySink) Append(ctx context.Context, record domain.StatsRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode stats record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, -int64(s.capacity), -1)

	if _, execErr := pipe.Exec(ctx); execErr != nil {
		return fmt.Errorf("failed to append stats record: %w", execErr)
	}

	return nil
}

// Load returns the stored records oldest first. Entries that fail to decode are skipped.
func (s *HistorySink) Load(ctx context.Context) ([]domain.StatsRecord, error) {
	logger := observability.FromContext(ctx)

	entries, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load stats records: %w", err)
	}

	records := make([]domain.StatsRecord, 0, len(entries))
	for _, entry := range entries {
		var record domain.StatsRecord
		if unmarshalErr := json.Unmarshal([]byte(entry), &record); unmarshalErr != nil {
			logger.Warn("skipping undecodable stats record",
				observability.String("key", s.key),
				observability.Error(unmarshalErr))
			continue
		}
		records = append(records, record)
	}

	logger.Debug("loaded stats records",
		observability.String("key", s.key),
		observability.Int("count", len(records)))

	return records, nil
}

// Clear deletes the list.
func (s *HistorySink) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear stats records: %w", err)
	}
	return nil
}

// Ping verifies connectivity.
func (s *HistorySink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
