package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// DefaultRedisKey is the list holding the history when no key is configured.
const DefaultRedisKey = "p3:metrics:history"

// RedisHistoryStore keeps the history in a Redis list, oldest first, one
// JSON sample per element. The schema version lives under "<key>:schema".
type RedisHistoryStore struct {
	client *redis.Client
	key    string
	max    int
	logger *slog.Logger
}

// NewRedisHistoryStore connects to Redis and verifies the connection.
func NewRedisHistoryStore(ctx context.Context, cfg models.RedisConfig, max int, logger *slog.Logger) (*RedisHistoryStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return newRedisHistoryStore(client, cfg.Key, max, logger), nil
}

func newRedisHistoryStore(client *redis.Client, key string, max int, logger *slog.Logger) *RedisHistoryStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if max <= 0 {
		max = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisHistoryStore{client: client, key: key, max: max, logger: logger}
}

// Location names the Redis list for messages.
func (s *RedisHistoryStore) Location() string { return "redis key " + s.key }

func (s *RedisHistoryStore) schemaKey() string { return s.key + ":schema" }

// Load reads the list. Undecodable elements are skipped; an unknown schema
// version yields an empty history.
func (s *RedisHistoryStore) Load(ctx context.Context) ([]models.MetricSample, error) {
	version, err := s.client.Get(ctx, s.schemaKey()).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return nil, fmt.Errorf("reading history schema: %w", err)
	case version != strconv.Itoa(models.SnapshotSchemaVersion):
		s.logger.Warn("history schema version unsupported, starting empty", "key", s.key, "schema_version", version)
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history list: %w", err)
	}

	samples := make([]models.MetricSample, 0, len(raw))
	for i, item := range raw {
		var sample models.MetricSample
		if err := json.Unmarshal([]byte(item), &sample); err != nil {
			s.logger.Warn("skipping invalid history entry", "key", s.key, "index", i, "error", err)
			continue
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// Save replaces the list with the newest max samples in one transaction.
func (s *RedisHistoryStore) Save(ctx context.Context, samples []models.MetricSample) error {
	if len(samples) > s.max {
		samples = samples[len(samples)-s.max:]
	}
	values := make([]interface{}, len(samples))
	for i, sample := range samples {
		data, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("marshaling sample %d: %w", i, err)
		}
		values[i] = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.RPush(ctx, s.key, values...)
		}
		pipe.Set(ctx, s.schemaKey(), models.SnapshotSchemaVersion, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing history list: %w", err)
	}
	return nil
}

// Append pushes one sample and trims the list to the newest max entries.
func (s *RedisHistoryStore) Append(ctx context.Context, sample models.MetricSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshaling sample: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, int64(-s.max), -1)
		pipe.Set(ctx, s.schemaKey(), models.SnapshotSchemaVersion, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending history sample: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisHistoryStore) Close() error {
	return s.client.Close()
}
