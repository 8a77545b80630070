package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/compresr/sherlock/internal/config"
	"github.com/compresr/sherlock/internal/monitoring"
)

// RedisSink appends each request to a capped redis stream so other
// processes can follow traffic with XREAD.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink connects and pings the server once.
func NewRedisSink(cfg config.RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr, err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = config.DefaultRedisStream
	}
	return &RedisSink{client: client, stream: stream, maxLen: cfg.MaxLen}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, ev *monitoring.RequestEvent) error {
	values, err := streamValues(ev)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}

func (s *RedisSink) Close() error { return s.client.Close() }

// streamValues flattens an event into stream entry fields.
func streamValues(ev *monitoring.RequestEvent) (map[string]interface{}, error) {
	messages, err := json.Marshal(ev.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode messages: %w", err)
	}
	return map[string]interface{}{
		"request_id": ev.RequestID,
		"timestamp":  ev.Timestamp.UTC().Format(time.RFC3339Nano),
		"provider":   ev.Provider,
		"model":      ev.Model,
		"tokens":     strconv.Itoa(ev.Tokens),
		"path":       ev.Path,
		"messages":   string(messages),
	}, nil
}
