package cache

import (
	"context"
	"encoding/json"
	"time"

	"main/internal/bus"
	"main/internal/channel"
	"main/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	defaultQueueSize = 1024
	keyPrefix        = "latest:"
)

// PriceCache keeps the most recent tick per symbol in Redis so REST reads
// do not have to wait for the next push.
type PriceCache struct {
	client *redis.Client
	ttl    time.Duration
	queue  *bus.Queue
}

// NewPriceCache connects to Redis and verifies it with a ping.
func NewPriceCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*PriceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "connect to redis")
	}
	return &PriceCache{
		client: client,
		ttl:    ttl,
		queue:  bus.NewQueue(defaultQueueSize),
	}, nil
}

// Attach subscribes the cache to price updates and returns the remover.
func (c *PriceCache) Attach(ch *channel.Channel) (unsubscribe func()) {
	return ch.Subscribe(model.EventPriceUpdate, func(ev model.Envelope) {
		if err := c.queue.TryPublish(ev); err != nil {
			logs.Warnf("price cache dropping tick: %v", err)
		}
	})
}

// Run drains queued ticks into Redis until ctx is done.
func (c *PriceCache) Run(ctx context.Context) {
	c.queue.Run(ctx, func(ev model.Envelope) {
		c.store(ctx, ev)
	})
}

// Latest returns the cached tick for symbol, or nil when absent.
func (c *PriceCache) Latest(ctx context.Context, symbol string) (*model.PriceTick, error) {
	data, err := c.client.Get(ctx, keyPrefix+symbol).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get latest price")
	}
	var tick model.PriceTick
	if err := json.Unmarshal(data, &tick); err != nil {
		return nil, errors.Wrap(err, "decode cached price")
	}
	return &tick, nil
}

// Close stops the queue and releases the Redis client.
func (c *PriceCache) Close() error {
	c.queue.Close()
	return c.client.Close()
}

func (c *PriceCache) store(ctx context.Context, ev model.Envelope) {
	var tick model.PriceTick
	if err := ev.Decode(&tick); err != nil || tick.Symbol == "" {
		return
	}
	data, err := json.Marshal(tick)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+tick.Symbol, data, c.ttl).Err(); err != nil {
		logs.Warnf("cache %s tick: %v", tick.Symbol, err)
	}
}
