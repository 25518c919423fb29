package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Fludizz/WeatherDuino/internal/probes"
	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

const redisShadowTTL = 24 * time.Hour

// HashStore replaces a hash with fields and sets its expiry. Fields absent
// from the new set must not survive from an earlier write.
type HashStore interface {
	ReplaceTTL(ctx context.Context, key string, fields map[string]any, ttl time.Duration) error
	Close() error
}

type redisStore struct {
	client *redis.Client
}

func (r redisStore) ReplaceTTL(ctx context.Context, key string, fields map[string]any, ttl time.Duration) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (r redisStore) Close() error { return r.client.Close() }

// Redis keeps the latest reading of every probe in a hash at
// weather:<device hex>:<probe>, a device shadow other services can read.
type Redis struct {
	store HashStore
	names *probes.Names
	now   func() time.Time
}

// DialRedis connects to addr (host:port) and pings it. Failing here is a
// setup error.
func DialRedis(ctx context.Context, addr string, names *probes.Names) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(redisStore{client: client}, names), nil
}

func NewRedis(store HashStore, names *probes.Names) *Redis {
	return &Redis{store: store, names: names, now: time.Now}
}

func (s *Redis) Name() string { return "redis" }

func (s *Redis) Key(m protocol.Measurement) string {
	return fmt.Sprintf("weather:%s:%s", m.Device.Hex(), metricName(s.names, m))
}

func (s *Redis) Accept(ctx context.Context, m protocol.Measurement) error {
	if !m.AnyValid() {
		return nil
	}
	fields := map[string]any{
		"ts": s.now().UTC().Format(time.RFC3339),
	}
	if m.Temperature.Valid() {
		fields["temperature_c"] = m.Temperature.Celsius()
	}
	if m.HumidityValid() {
		fields["humidity_pct"] = int(m.Humidity)
	}
	return wrap(s.Name(), s.store.ReplaceTTL(ctx, s.Key(m), fields, redisShadowTTL))
}

func (s *Redis) Close() error {
	return s.store.Close()
}
