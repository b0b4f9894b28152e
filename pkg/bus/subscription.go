package bus

import (
	"sync"

	"github.com/google/uuid"
)

// subscription queues the updates of one subscriber and delivers them in order.
type subscription[V any] struct {
	id     uuid.UUID
	mu     sync.Mutex
	queue  []Update[V]
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
	out    chan Update[V]
}

func newSubscription[V any](id uuid.UUID) *subscription[V] {
	return &subscription[V]{
		id:     id,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan Update[V]),
	}
}

func (s *subscription[V]) enqueue(update Update[V]) {
	s.mu.Lock()
	s.queue = append(s.queue, update)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription[V]) next() (Update[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return Update[V]{}, false
	}

	update := s.queue[0]
	s.queue[0] = Update[V]{}
	s.queue = s.queue[1:]

	return update, true
}

func (s *subscription[V]) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *subscription[V]) pump() {
	defer close(s.out)

	for {
		update, ok := s.next()
		if !ok {
			select {
			case <-s.done:
				return
			case <-s.notify:
				continue
			}
		}

		select {
		case <-s.done:
			return
		case s.out <- update:
		}
	}
}
