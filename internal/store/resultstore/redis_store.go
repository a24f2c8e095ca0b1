package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"cryptoscan/pkg/models"
)

// RedisConfig configures Redis access for scan-result persistence.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
	RecentMax int64
}

// RedisStore keeps finished scan results for later retrieval.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	recentMax int64
}

// NewRedisStore constructs a Redis-backed scan-result store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "cryptoscan"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.RecentMax <= 0 {
		cfg.RecentMax = 100
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis result store: %w", err)
	}

	return &RedisStore{
		client:    client,
		prefix:    strings.TrimSpace(cfg.KeyPrefix),
		ttl:       cfg.TTL,
		recentMax: cfg.RecentMax,
	}, nil
}

// Save persists one scan result and records its ID in the recent list.
func (s *RedisStore) Save(ctx context.Context, result *models.ScanResult) error {
	if result == nil || strings.TrimSpace(result.ScanID) == "" {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal scan result: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.resultKey(result.ScanID), payload, s.ttl)
	pipe.LPush(ctx, s.recentKey(), result.ScanID)
	pipe.LTrim(ctx, s.recentKey(), 0, s.recentMax-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist scan result: %w", err)
	}
	return nil
}

// Get loads one scan result by ID. A missing ID yields a nil result.
func (s *RedisStore) Get(ctx context.Context, scanID string) (*models.ScanResult, error) {
	payload, err := s.client.Get(ctx, s.resultKey(scanID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scan result: %w", err)
	}

	var result models.ScanResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal scan result: %w", err)
	}
	return &result, nil
}

// Recent returns the IDs of the most recently saved results, newest first.
func (s *RedisStore) Recent(ctx context.Context, limit int64) ([]string, error) {
	if limit <= 0 || limit > s.recentMax {
		limit = s.recentMax
	}
	ids, err := s.client.LRange(ctx, s.recentKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent scan IDs: %w", err)
	}
	return ids, nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) resultKey(scanID string) string {
	return s.prefix + ":result:" + scanID
}

func (s *RedisStore) recentKey() string {
	return s.prefix + ":recent"
}
