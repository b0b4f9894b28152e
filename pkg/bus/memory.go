package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Option configures a Memory bus.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger of the bus.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Memory is an in-process Bus.
type Memory[V any] struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*subscription[V]
	closed bool
	logger *slog.Logger
}

// NewMemory creates an empty in-process bus.
func NewMemory[V any](opts ...Option) *Memory[V] {
	o := &options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}

	return &Memory[V]{
		subs:   make(map[uuid.UUID]*subscription[V]),
		logger: o.logger,
	}
}

// Subscribe implements Bus.
func (m *Memory[V]) Subscribe() (<-chan Update[V], func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		out := make(chan Update[V])
		close(out)

		return out, func() {}
	}

	sub := newSubscription[V](uuid.New())
	m.subs[sub.id] = sub

	go sub.pump()

	m.logger.Debug("subscribed", slog.String("subscription", sub.id.String()), slog.Int("subscribers", len(m.subs)))

	return sub.out, func() {
		m.unsubscribe(sub.id)
	}
}

func (m *Memory[V]) unsubscribe(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[id]
	if !ok {
		return
	}

	delete(m.subs, id)
	sub.stop()

	m.logger.Debug("unsubscribed", slog.String("subscription", id.String()), slog.Int("subscribers", len(m.subs)))
}

// Publish implements Bus. Updates are enqueued to every subscriber before Publish returns, so
// two publications are seen in the same order by every subscriber.
func (m *Memory[V]) Publish(ctx context.Context, update Update[V]) error {
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), "unable to publish")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for _, sub := range m.subs {
		sub.enqueue(update)
	}

	m.logger.Debug("published", slog.String("cell", update.ID), slog.Int("subscribers", len(m.subs)))

	return nil
}

// Subscribers returns the number of active subscriptions.
func (m *Memory[V]) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.subs)
}

// Close ends every subscription. Pending updates are dropped.
func (m *Memory[V]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true

	for id, sub := range m.subs {
		sub.stop()
		delete(m.subs, id)
	}
}

var _ Bus[int] = (*Memory[int])(nil)
