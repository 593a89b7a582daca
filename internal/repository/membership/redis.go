package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oshokin/geo-guardian/internal/domain/track"
)

// keyPrefix namespaces membership keys in the shared Redis instance.
const keyPrefix = "membership:"

// RedisRepository keeps membership in Redis so it survives process restarts.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository connects to Redis and verifies the connection.
func NewRedisRepository(ctx context.Context, addr, password string, db int) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

// Get returns the device's current membership.
func (r *RedisRepository) Get(ctx context.Context, deviceID string) (track.ZoneSet, error) {
	raw, err := r.client.Get(ctx, keyPrefix+deviceID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get membership: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("decode membership: %w", err)
	}

	return track.NewZoneSet(names...), nil
}

// Set replaces the device's membership.
func (r *RedisRepository) Set(ctx context.Context, deviceID string, zones track.ZoneSet) error {
	data, err := json.Marshal(zones.Names())
	if err != nil {
		return fmt.Errorf("encode membership: %w", err)
	}

	// No TTL: membership is state, not cache.
	if err := r.client.Set(ctx, keyPrefix+deviceID, data, 0).Err(); err != nil {
		return fmt.Errorf("set membership: %w", err)
	}

	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
