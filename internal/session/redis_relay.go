package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisRelay mirrors hub events across storefront instances through a Redis
// pub/sub channel.
type RedisRelay struct {
	rdb     *goredis.Client
	channel string
	hub     *Hub
	origin  string
}

func NewRedisRelay(ctx context.Context, addr, channel string, hub *Hub) (*RedisRelay, error) {
	if addr == "" {
		return nil, fmt.Errorf("session: redis addr required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("session: redis ping: %w", err)
	}

	origin, err := uuid.NewV4()
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("session: generate relay origin: %w", err)
	}

	return &RedisRelay{rdb: rdb, channel: channel, hub: hub, origin: origin.String()}, nil
}

// Run forwards local events out and remote events in until ctx ends.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("session: redis subscribe: %w", err)
	}
	defer sub.Close()

	local, cancel := r.hub.Subscribe(ctx)
	defer cancel()

	remote := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-local:
			if !ok {
				return nil
			}
			if ev.Origin != "" {
				continue
			}
			ev.Origin = r.origin
			raw, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Msg("session: encode relay event")
				continue
			}
			if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
				log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("session: redis publish failed")
			}
		case m, ok := <-remote:
			if !ok || m == nil {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				log.Warn().Err(err).Msg("session: bad relay payload")
				continue
			}
			if ev.Origin == r.origin || ev.Origin == "" {
				continue
			}
			r.hub.Publish(ev)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.rdb.Close()
}
