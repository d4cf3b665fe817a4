package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventLog remembers webhook event ids so redeliveries can be skipped early.
type EventLog interface {
	// Seen records eventID and reports whether it had been recorded before.
	Seen(ctx context.Context, eventID string) (bool, error)
}

type NoopEventLog struct{}

func (NoopEventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	return false, nil
}

const eventKeyPrefix = "bookstore:webhook:event:"

type RedisEventLog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisEventLog(redisURL string, ttl time.Duration) (*RedisEventLog, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisEventLogFromClient(client, ttl), nil
}

func NewRedisEventLogFromClient(client *redis.Client, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{client: client, ttl: ttl}
}

func (l *RedisEventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	fresh, err := l.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

func (l *RedisEventLog) Close() error {
	return l.client.Close()
}
