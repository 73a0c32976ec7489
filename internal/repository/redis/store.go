package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes for session-scoped documents.
const (
	cartPrefix     = "cart:"
	checkoutPrefix = "checkout:"
	receiptPrefix  = "receipt:"
)

// jsonStore reads and writes JSON documents under a key prefix with a TTL.
type jsonStore struct {
	client redis.UniversalClient
	prefix string
	kind   string
	ttl    time.Duration
}

// get decodes the document for id into dst and reports whether it existed.
func (s jsonStore) get(ctx context.Context, id string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", s.kind, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", s.kind, err)
	}
	return true, nil
}

func (s jsonStore) set(ctx context.Context, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.kind, err)
	}
	if err := s.client.Set(ctx, s.prefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.kind, err)
	}
	return nil
}

func (s jsonStore) del(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.kind, err)
	}
	return nil
}
