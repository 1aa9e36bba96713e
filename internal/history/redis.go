package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newslens/newslens/pkg/models"
)

// redisKeyPrefix namespaces history entries in a shared Redis.
const redisKeyPrefix = "newslens:history:"

// RedisStore keeps history in Redis, one JSON value per analyzed URL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
// ttl <= 0 stores entries without expiry.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(url string) string { return redisKeyPrefix + url }

// Get returns the entry for url, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, url string) (*models.HistoryItem, error) {
	data, err := s.client.Get(ctx, redisKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var item models.HistoryItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode history entry: %w", err)
	}
	return &item, nil
}

// Put stores or replaces the entry for item.URL.
func (s *RedisStore) Put(ctx context.Context, item *models.HistoryItem) error {
	if item == nil || item.URL == "" {
		return fmt.Errorf("history: item needs a URL")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(item.URL), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]models.HistoryItem, error) {
	var items []models.HistoryItem
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		var item models.HistoryItem
		if err := json.Unmarshal(data, &item); err != nil {
			continue // skip corrupt entries
		}
		items = append(items, item)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Delete removes the entry for url.
func (s *RedisStore) Delete(ctx context.Context, url string) error {
	if err := s.client.Del(ctx, redisKey(url)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes all history entries, leaving other keys in the DB alone.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
