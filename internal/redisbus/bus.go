// Package redisbus carries domain channels over Redis pub/sub.
package redisbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/event"
)

// Options configures the connection.
type Options struct {
	Addr          string
	ChannelPrefix string
	DialTimeout   time.Duration
}

// Bus implements event.Publisher and event.Subscriber on Redis pub/sub.
// Delivery is at-most-once and ordered per channel per subscriber.
type Bus struct {
	log    *zap.Logger
	rdb    *goredis.Client
	prefix string
}

// New connects and pings Redis.
func New(ctx context.Context, opts Options, log *zap.Logger) (*Bus, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: opts.DialTimeout,
	})
	pctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{
		log:    log.With(zap.String("component", "redisbus")),
		rdb:    rdb,
		prefix: opts.ChannelPrefix,
	}, nil
}

func (b *Bus) topic(channel string) string { return b.prefix + channel }

// Publish implements event.Publisher.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if b == nil || b.rdb == nil {
		return errors.New("redis bus not initialized")
	}
	return b.rdb.Publish(ctx, b.topic(channel), payload).Err()
}

// Subscribe implements event.Subscriber. Messages are handled one at a time
// in a dedicated goroutine until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, channel string, h event.MessageHandler) error {
	if b == nil || b.rdb == nil {
		return errors.New("redis bus not initialized")
	}
	if h == nil {
		return errors.New("nil handler")
	}
	sub := b.rdb.Subscribe(ctx, b.topic(channel))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
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
				if err := h(ctx, []byte(m.Payload)); err != nil {
					b.log.Warn("event_handler_failed", zap.String("channel", channel), zap.Error(err))
				}
			}
		}
	}()
	return nil
}

// Ping reports whether Redis answers.
func (b *Bus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (b *Bus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

var (
	_ event.Publisher  = (*Bus)(nil)
	_ event.Subscriber = (*Bus)(nil)
)
