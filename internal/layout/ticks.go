package layout

import (
	"sync"
	"time"
)

// TickSource schedules the next frame. The returned cancel func drops the callback if
// it has not run yet; calling it after the callback ran is harmless.
type TickSource interface {
	Schedule(fn func()) (cancel func())
}

// ManualTicks holds scheduled callbacks until Fire is called. Tests use it to drive an
// engine one frame at a time.
type ManualTicks struct {
	mu      sync.Mutex
	pending []*manualTick
}

type manualTick struct {
	fn        func()
	cancelled bool
}

// Schedule queues fn.
func (m *ManualTicks) Schedule(fn func()) func() {
	t := &manualTick{fn: fn}
	m.mu.Lock()
	m.pending = append(m.pending, t)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

// Fire runs the oldest live callback. It returns false when nothing was pending.
func (m *ManualTicks) Fire() bool {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return false
		}
		t := m.pending[0]
		m.pending = m.pending[1:]
		cancelled := t.cancelled
		m.mu.Unlock()
		if cancelled {
			continue
		}
		t.fn()
		return true
	}
}

// Pending counts callbacks that are queued and not cancelled.
func (m *ManualTicks) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// TimerTicks runs each callback once after a fixed interval.
type TimerTicks struct {
	Interval time.Duration
}

// NewTimerTicks returns a timer source; a non-positive interval means 16ms.
func NewTimerTicks(interval time.Duration) *TimerTicks {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TimerTicks{Interval: interval}
}

// Schedule arms a timer for fn.
func (t *TimerTicks) Schedule(fn func()) func() {
	timer := time.AfterFunc(t.Interval, fn)
	return func() { timer.Stop() }
}
