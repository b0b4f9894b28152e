package clock

import (
	"sync"
	"time"
)

// Mock is a manually advanced Clock.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*mockTimer
	created int
}

// NewMock returns a Mock starting at an arbitrary fixed instant.
func NewMock() *Mock {
	return &Mock{now: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the mock current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// NewTimer creates a timer that fires once the mock time reaches now+d.
func (m *Mock) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt := &mockTimer{
		mock:     m,
		deadline: m.now.Add(d),
		c:        make(chan time.Time, 1),
	}
	m.created++

	if d <= 0 {
		mt.fired = true
		mt.c <- m.now

		return mt
	}

	m.timers = append(m.timers, mt)

	return mt
}

// Advance moves the mock time forward and fires every timer whose deadline is reached.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now

	var due []*mockTimer

	pending := m.timers[:0]

	for _, mt := range m.timers {
		if !mt.deadline.After(now) {
			mt.fired = true
			due = append(due, mt)

			continue
		}

		pending = append(pending, mt)
	}

	m.timers = pending
	m.mu.Unlock()

	for _, mt := range due {
		mt.c <- now
	}
}

// Created returns how many timers have been created so far.
func (m *Mock) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.created
}

// Pending returns how many timers are armed.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.timers)
}

type mockTimer struct {
	mock     *Mock
	deadline time.Time
	c        chan time.Time
	fired    bool
	stopped  bool
}

func (mt *mockTimer) C() <-chan time.Time {
	return mt.c
}

func (mt *mockTimer) Stop() bool {
	mt.mock.mu.Lock()
	defer mt.mock.mu.Unlock()

	if mt.fired || mt.stopped {
		return false
	}

	mt.stopped = true

	for i, other := range mt.mock.timers {
		if other == mt {
			mt.mock.timers = append(mt.mock.timers[:i], mt.mock.timers[i+1:]...)

			break
		}
	}

	return true
}

var _ Clock = (*Mock)(nil)
