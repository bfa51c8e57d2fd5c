package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"orderbook-aggregator/internal/config"
	"orderbook-aggregator/internal/depth"
	"orderbook-aggregator/internal/metrics"
)

// redisClient is the subset of *redis.Client the publisher needs.
type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher mirrors the latest view into Redis: the JSON is stored under
// key (with a TTL so a dead aggregator does not leave a frozen book behind) and
// published on channel for live subscribers.
//
// Offer never blocks the caller; when Redis is slow, intermediate views are
// dropped and only the newest one is written.
type RedisPublisher struct {
	client  redisClient
	key     string
	channel string
	ttl     time.Duration
	log     *slog.Logger

	latest chan depth.View
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisPublisher(client redisClient, cfg config.RedisConfig, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		key:     cfg.Key,
		channel: cfg.Channel,
		ttl:     time.Duration(cfg.TTLSeconds) * time.Second,
		log:     logger.With(slog.String("sink", "redis")),
		latest:  make(chan depth.View, 1),
	}
}

// Offer hands v to the publisher, replacing any view not yet written.
func (p *RedisPublisher) Offer(v depth.View) {
	for {
		select {
		case p.latest <- v:
			return
		default:
		}
		select {
		case <-p.latest:
		default:
		}
	}
}

// Run writes offered views until ctx is cancelled.
func (p *RedisPublisher) Run(ctx context.Context) {
	for {
		select {
		case v := <-p.latest:
			if err := p.write(ctx, v); err != nil {
				metrics.PublishErrorsTotal.WithLabelValues("redis").Inc()
				p.log.Warn("publish view", slog.String("err", err.Error()))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *RedisPublisher) write(ctx context.Context, v depth.View) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}
	if err := p.client.Set(ctx, p.key, b, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest view: %w", err)
	}
	if p.channel == "" {
		return nil
	}
	if err := p.client.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("failed to publish view: %w", err)
	}
	return nil
}
