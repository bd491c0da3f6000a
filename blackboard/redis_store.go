package blackboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ContextStore persists shared-context entries across restarts. The board
// treats persistence as best-effort: a failing store never blocks or fails
// an in-memory write.
type ContextStore interface {
	Save(ctx context.Context, key string, value any) error
	Load(ctx context.Context) (map[string]any, error)
	Close() error
}

// RedisContextStore keeps the shared context in a single Redis hash with
// JSON-encoded values.
type RedisContextStore struct {
	client *redis.Client
	key    string
}

// RedisOptions configures the Redis connection for a context store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces the hash key; defaults to "studyflow".
	KeyPrefix string
}

// NewRedisContextStore connects to Redis and verifies the connection.
func NewRedisContextStore(ctx context.Context, opts RedisOptions) (*RedisContextStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "studyflow"
	}

	return &RedisContextStore{
		client: client,
		key:    prefix + ":shared_context",
	}, nil
}

// Save writes one shared-context entry. Values that cannot be JSON-encoded
// are rejected rather than stored partially.
func (s *RedisContextStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal shared value %q: %w", key, err)
	}
	if err := s.client.HSet(ctx, s.key, key, data).Err(); err != nil {
		return fmt.Errorf("persist shared value %q: %w", key, err)
	}
	return nil
}

// Load reads every persisted entry. Values come back as the generic JSON
// shapes (maps, slices, float64, string); timestamps round-trip as RFC3339
// strings, which Snapshot.SharedTime knows how to read.
func (s *RedisContextStore) Load(ctx context.Context) (map[string]any, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load shared context: %w", err)
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var value any
		if err := json.Unmarshal([]byte(v), &value); err != nil {
			// Keep the raw string rather than dropping the key.
			value = v
		}
		out[k] = value
	}
	return out, nil
}

// Close releases the Redis connection.
func (s *RedisContextStore) Close() error {
	return s.client.Close()
}
