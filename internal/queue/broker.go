// Package queue implements an in-memory channel broker: one buffered queue
// and one consumption loop per channel, so messages on a channel are handled
// in publication order.
package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/event"
)

var (
	// ErrClosed is returned by Publish after CloseIntake.
	ErrClosed = errors.New("queue: intake closed")
	// ErrUnknownChannel is returned for channels the broker was not built with.
	ErrUnknownChannel = errors.New("queue: unknown channel")
)

// Config sizes the per-channel queues.
type Config struct {
	OutBuffer     int
	HighWatermark int
}

type subscription struct {
	id uint64
	h  event.MessageHandler
}

// Broker routes published payloads to the handlers subscribed on a channel.
type Broker struct {
	cfg    Config
	log    *zap.Logger
	seq    Sequencer
	queues map[string]*Queue
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	nextSub  uint64
	handlers map[string][]subscription
}

// NewBroker constructs a Broker serving the given channels.
func NewBroker(cfg Config, log *zap.Logger, channels ...string) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Broker{
		cfg:      cfg,
		log:      log,
		queues:   make(map[string]*Queue, len(channels)),
		handlers: make(map[string][]subscription, len(channels)),
	}
	for _, ch := range channels {
		b.queues[ch] = New(ch, cfg.OutBuffer, log)
	}
	return b
}

// Start begins the broker and consumption loops in the background.
func (b *Broker) Start(parent context.Context) {
	b.ctx, b.cancel = context.WithCancel(parent)
	for name, q := range b.queues {
		q.Start(b.ctx, b.cfg.HighWatermark)
		b.wg.Add(1)
		go b.consume(name, q)
	}
	b.log.Info("broker_started", zap.Int("channel_count", len(b.queues)))
}

// Stop cancels the background loops and waits for them to exit.
func (b *Broker) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// Publish implements event.Publisher. The payload is copied; the call never
// waits for consumers.
func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	q, ok := b.queues[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := Message{Channel: channel, Payload: bytes.Clone(payload), Sequence: b.seq.Next()}
	if !q.Enqueue(m) {
		return ErrClosed
	}
	return nil
}

// Subscribe implements event.Subscriber. The handler stays registered until
// ctx is done.
func (b *Broker) Subscribe(ctx context.Context, channel string, h event.MessageHandler) error {
	if _, ok := b.queues[channel]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	if h == nil {
		return errors.New("queue: nil handler")
	}
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.handlers[channel] = append(b.handlers[channel], subscription{id: id, h: h})
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.unsubscribe(channel, id)
	}()
	return nil
}

func (b *Broker) unsubscribe(channel string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[channel]
	for i, s := range subs {
		if s.id == id {
			b.handlers[channel] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// consume delivers a channel's messages one at a time.
func (b *Broker) consume(name string, q *Queue) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case m := <-q.Out():
			b.deliver(m)
			q.MarkProcessed()
		}
	}
}

func (b *Broker) deliver(m Message) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[m.Channel]...)
	b.mu.RUnlock()
	for _, s := range subs {
		if err := b.invoke(s.h, m); err != nil {
			b.log.Warn("event_handler_failed",
				zap.String("channel", m.Channel),
				zap.Uint64("sequence", m.Sequence),
				zap.Error(err),
			)
		}
	}
}

func (b *Broker) invoke(h event.MessageHandler, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(b.ctx, m.Payload)
}

// CloseIntake disallows future publishes on every channel.
func (b *Broker) CloseIntake() {
	for _, q := range b.queues {
		q.CloseIntake()
	}
}

// IsShuttingDown reports whether publishes are rejected.
func (b *Broker) IsShuttingDown() bool {
	for _, q := range b.queues {
		if q.IsShuttingDown() {
			return true
		}
	}
	return false
}

// BacklogSize returns pending messages across channels.
func (b *Broker) BacklogSize() int {
	n := 0
	for _, q := range b.queues {
		n += q.BacklogSize()
	}
	return n
}

// QueueMetrics sums the per-channel queue metrics.
func (b *Broker) QueueMetrics() (enq, proc uint64, backlog, depth int) {
	for _, q := range b.queues {
		e, p, bl, d := q.Metrics()
		enq += e
		proc += p
		backlog += bl
		depth += d
	}
	return enq, proc, backlog, depth
}

// ChannelMetrics returns the metrics of one channel.
func (b *Broker) ChannelMetrics(channel string) (enq, proc uint64, backlog, depth int, ok bool) {
	q, ok := b.queues[channel]
	if !ok {
		return 0, 0, 0, 0, false
	}
	enq, proc, backlog, depth = q.Metrics()
	return enq, proc, backlog, depth, true
}

// LastSequence returns the sequence number of the latest publish.
func (b *Broker) LastSequence() uint64 { return b.seq.Last() }

// DrainUntil blocks until every channel is fully drained or ctx is done.
func (b *Broker) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, backlog, depth := b.QueueMetrics()
		if backlog == 0 && depth == 0 && enq == proc {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
