package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danmuck/llrpd/internal/reading"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisChannel = "llrpd:readings"
	DefaultRedisHistory = 1000
)

// redisClient is the subset of *redis.Client the sink uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Close() error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	// History is how many readings are kept per receiver list. Zero
	// disables the list.
	History int64
}

// Redis publishes readings on a channel and keeps a bounded history list
// per receiver.
type Redis struct {
	client  redisClient
	channel string
	history int64
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sink: redis ping %s: %w", cfg.Addr, err)
	}
	return newRedis(client, cfg), nil
}

func newRedis(client redisClient, cfg RedisConfig) *Redis {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &Redis{client: client, channel: channel, history: cfg.History}
}

func (s *Redis) Name() string {
	return "redis"
}

// HistoryKey is the list a reading is pushed to. Readings without a
// receiver identity are keyed by origin.
func HistoryKey(r reading.Reading) string {
	owner := r.ReceiverID
	if owner == "" {
		owner = r.Origin
	}
	if owner == "" {
		owner = "unknown"
	}
	return "llrpd:" + owner + ":readings"
}

func (s *Redis) Emit(ctx context.Context, r reading.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if s.history <= 0 {
		return nil
	}
	key := HistoryKey(r)
	if err := s.client.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	if err := s.client.LTrim(ctx, key, 0, s.history-1).Err(); err != nil {
		return fmt.Errorf("ltrim %s: %w", key, err)
	}
	return nil
}

// Recent returns up to n readings from key, newest first.
func (s *Redis) Recent(ctx context.Context, key string, n int64) ([]reading.Reading, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]reading.Reading, 0, len(raw))
	for _, item := range raw {
		var r reading.Reading
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
