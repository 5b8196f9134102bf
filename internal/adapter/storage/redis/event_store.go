package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EventStore implements ports.ProcessedEventStore. A claimed webhook event id
// is held briefly while in flight, then for the full ttl once processed, so
// redeliveries inside that window are acknowledged without touching the ledger.
type EventStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewEventStore creates a Redis-backed processed-event store.
func NewEventStore(client goredis.UniversalClient) *EventStore {
	return &EventStore{
		client: client,
		prefix: "webhook:event:",
	}
}

// Claim marks eventID as being processed. It returns false when another
// delivery already claimed it.
func (s *EventStore) Claim(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetArgs(ctx, s.prefix+eventID, time.Now().Unix(), goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis claim event: %w", err)
	}
	return result == "OK", nil
}

// Complete marks eventID as processed for ttl, replacing the shorter claim.
func (s *EventStore) Complete(ctx context.Context, eventID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+eventID, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis complete event: %w", err)
	}
	return nil
}

// Release drops a claim so the processor's next redelivery is handled again.
func (s *EventStore) Release(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.prefix+eventID).Err(); err != nil {
		return fmt.Errorf("redis release event: %w", err)
	}
	return nil
}
