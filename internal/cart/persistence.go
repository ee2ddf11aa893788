package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/ardenoak/storefront/pkg/redis"
)

// cartKV is the slice of the redis client the guest store needs.
type cartKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(token string) string
}

// RedisGuestStore persists guest carts as a JSON array of lines under the
// cart token, mirroring the storefront's local-storage contract.
type RedisGuestStore struct {
	kv  cartKV
	ttl time.Duration
}

// NewRedisGuestStore builds a guest store over the shared redis client.
func NewRedisGuestStore(kv cartKV, ttl time.Duration) (*RedisGuestStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisGuestStore{kv: kv, ttl: ttl}, nil
}

// Load reads the snapshot for the token. A missing key is an empty cart, and
// a corrupt snapshot degrades to empty rather than wedging the session.
func (s *RedisGuestStore) Load(ctx context.Context, token string) (Lines, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(token))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return Lines{}, nil
		}
		return nil, fmt.Errorf("load guest cart: %w", err)
	}

	var lines Lines
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return Lines{}, nil
	}
	return lines, nil
}

// Save writes the snapshot with the configured TTL.
func (s *RedisGuestStore) Save(ctx context.Context, token string, lines Lines) error {
	if lines == nil {
		lines = Lines{}
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(token), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save guest cart: %w", err)
	}
	return nil
}

// Clear removes the snapshot.
func (s *RedisGuestStore) Clear(ctx context.Context, token string) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(token)); err != nil {
		return fmt.Errorf("clear guest cart: %w", err)
	}
	return nil
}
