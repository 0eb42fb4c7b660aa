package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shopassist/shopchat/internal/core/ports"
)

const defaultPrefix = "shopchat:credential:"

// CredentialStore keeps credential entries as plain Redis strings.
// Key format: <prefix><key>
type CredentialStore struct {
	client *redis.Client
	prefix string
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore wraps client. An empty prefix falls back to defaultPrefix.
func NewCredentialStore(client *redis.Client, prefix string) *CredentialStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &CredentialStore{client: client, prefix: prefix}
}

func (s *CredentialStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credential get: %w", err)
	}
	return v, nil
}

// SetMany writes every value inside a MULTI/EXEC block.
func (s *CredentialStore) SetMany(ctx context.Context, values map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("credential set: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("credential delete: %w", err)
	}
	return nil
}

func (s *CredentialStore) key(k string) string {
	return s.prefix + k
}
