package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a PersistenceStore backed by Redis. Keys are namespaced
// `eventflux:checkpoint:{appID}:{revision}`; the last-revision pointer is a
// separate string key per appID so GetLastRevision is O(1) instead of a
// KEYS scan.
//
// Exercises github.com/go-redis/redis/v8, a dependency the teacher declared
// in go.mod but never wired to any code path (DESIGN.md).
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an already-configured redis.Client. ttl of zero means
// checkpoints never expire.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) revisionKey(appID, revision string) string {
	return fmt.Sprintf("eventflux:checkpoint:%s:%s", appID, revision)
}

func (s *RedisStore) lastRevisionKey(appID string) string {
	return fmt.Sprintf("eventflux:checkpoint:%s:last", appID)
}

func (s *RedisStore) Save(appID, revision string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.revisionKey(appID, revision), data, s.ttl)
	pipe.Set(ctx, s.lastRevisionKey(appID), revision, s.ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis save revision %s: %w", revision, err)
	}
	return nil
}

func (s *RedisStore) Load(appID, revision string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	raw, err := s.client.Get(ctx, s.revisionKey(appID, revision)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis load revision %s: %w", revision, err)
	}
	return raw, true, nil
}

func (s *RedisStore) GetLastRevision(appID string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rev, err := s.client.Get(ctx, s.lastRevisionKey(appID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get last revision: %w", err)
	}
	return rev, true, nil
}

func (s *RedisStore) ClearAllRevisions(appID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := s.client.Scan(ctx, 0, fmt.Sprintf("eventflux:checkpoint:%s:*", appID), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan revisions: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear revisions: %w", err)
	}
	return nil
}
