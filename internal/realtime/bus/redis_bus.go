package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/realtime"
)

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	// Prefix namespaces the per-analysis pub/sub channels.
	Prefix string `env:"REDIS_CHANNEL" envDefault:"paperlens:sse"`
}

// redisBus publishes each SSE channel (an analysis or user id) on its own
// Redis channel under prefix and forwards them all with one pattern
// subscription.
type redisBus struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewRedisBusFromEnv returns (nil, nil) when REDIS_ADDR is unset.
func NewRedisBusFromEnv(log *logger.Logger) (Bus, error) {
	cfg, err := env.ParseAs[RedisConfig]()
	if err != nil {
		return nil, fmt.Errorf("redis bus config: %w", err)
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        strings.TrimSpace(cfg.Addr),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return NewRedisBus(log, rdb, cfg.Prefix), nil
}

func NewRedisBus(log *logger.Logger, rdb *goredis.Client, prefix string) Bus {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "paperlens:sse"
	}
	return &redisBus{
		log:    log.With("service", "RedisSSEBus", "prefix", prefix),
		rdb:    rdb,
		prefix: prefix,
	}
}

func topicFor(prefix, channel string) string { return prefix + ":" + channel }

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if msg.Channel == "" {
		return fmt.Errorf("sse message has no channel")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, topicFor(b.prefix, msg.Channel), raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := b.rdb.PSubscribe(ctx, topicFor(b.prefix, "*"))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				msg, err := decodeMessage(b.prefix, m.Channel, m.Payload)
				if err != nil {
					b.log.Warn("bad redis SSE payload", "channel", m.Channel, "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

// decodeMessage fills a missing Channel from the Redis topic name.
func decodeMessage(prefix, topic, payload string) (realtime.SSEMessage, error) {
	var msg realtime.SSEMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	if msg.Channel == "" {
		msg.Channel = strings.TrimPrefix(topic, prefix+":")
	}
	if msg.Event == "" {
		return msg, fmt.Errorf("missing event")
	}
	return msg, nil
}

func (b *redisBus) Close() error {
	return b.rdb.Close()
}
