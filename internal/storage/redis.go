package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"Story-Atlas/server/internal/config"
	"Story-Atlas/server/internal/models"
)

const defaultKeyPrefix = "story-atlas"

// RedisStore keeps records as JSON in a hash, with a sorted set holding the
// first-insertion order so GetAll is stable.
type RedisStore struct {
	client *redis.Client
	keys   redisKeys
	now    func() time.Time
}

type redisKeys struct {
	records string
	order   string
}

func newRedisKeys(prefix string) redisKeys {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return redisKeys{
		records: prefix + ":stories",
		order:   prefix + ":stories:order",
	}
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		client: client,
		keys:   newRedisKeys(keyPrefix),
		now:    time.Now,
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Put(ctx context.Context, story *models.Story) error {
	rec := *story
	rec.CachedAt = s.now()

	data, err := encodeStory(&rec)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.keys.records, rec.ID, data)
		// NX keeps the original position when a record is replaced
		pipe.ZAddNX(ctx, s.keys.order, &redis.Z{
			Score:  float64(rec.CachedAt.UnixNano()),
			Member: rec.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store story %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Story, error) {
	data, err := s.client.HGet(ctx, s.keys.records, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return decodeStory(data)
}

func (s *RedisStore) GetAll(ctx context.Context) ([]models.Story, error) {
	ids, err := s.client.ZRange(ctx, s.keys.order, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list story order: %w", err)
	}
	if len(ids) == 0 {
		return []models.Story{}, nil
	}

	values, err := s.client.HMGet(ctx, s.keys.records, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get stories: %w", err)
	}

	stories := make([]models.Story, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue // order entry without a record
		}
		story, err := decodeStory(data)
		if err != nil {
			continue // Skip invalid entries
		}
		stories = append(stories, *story)
	}
	return stories, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.keys.records, id)
		pipe.ZRem(ctx, s.keys.order, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.keys.records).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count stories: %w", err)
	}
	return int(n), nil
}

// redisRecord adds the cache timestamp, which is not part of the story JSON
type redisRecord struct {
	models.Story
	CachedAt time.Time `json:"cachedAt"`
}

func encodeStory(story *models.Story) (string, error) {
	data, err := json.Marshal(redisRecord{Story: *story, CachedAt: story.CachedAt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal story: %w", err)
	}
	return string(data), nil
}

func decodeStory(data string) (*models.Story, error) {
	var rec redisRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	story := rec.Story
	story.CachedAt = rec.CachedAt
	return &story, nil
}
