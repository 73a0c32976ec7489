package scheduler

import (
	"sync"
	"time"
)

// Scheduler runs functions after a delay.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Real schedules on the runtime timer.
type Real struct{}

// After runs fn in its own goroutine once d has elapsed.
func (Real) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

type task struct {
	delay time.Duration
	fn    func()
}

// Manual queues scheduled functions until a test runs them.
type Manual struct {
	mu    sync.Mutex
	tasks []task
}

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// After queues fn.
func (m *Manual) After(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task{delay: d, fn: fn})
}

// Pending reports how many functions are queued.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Delays returns the delays of the queued functions in scheduling order.
func (m *Manual) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.tasks))
	for i, t := range m.tasks {
		out[i] = t.delay
	}
	return out
}

// RunNext runs the oldest queued function on the calling goroutine and
// reports whether there was one.
func (m *Manual) RunNext() bool {
	m.mu.Lock()
	if len(m.tasks) == 0 {
		m.mu.Unlock()
		return false
	}
	t := m.tasks[0]
	m.tasks = m.tasks[1:]
	m.mu.Unlock()

	t.fn()
	return true
}

// RunAll runs queued functions, including ones they schedule, until the
// queue is empty. It returns how many ran.
func (m *Manual) RunAll() int {
	n := 0
	for m.RunNext() {
		n++
	}
	return n
}
