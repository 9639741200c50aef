package session

import (
	"time"
)

// Task is a running periodic job.
type Task interface {
	Stop()
}

// Scheduler runs fn every d until the returned Task is stopped. The session
// expects fn to run on its own goroutine, never concurrently with other
// session calls.
type Scheduler interface {
	Every(d time.Duration, fn func()) Task
}

// ManualScheduler is a Scheduler driven by Advance instead of wall time.
// Tasks fire synchronously inside Advance, in due order.
type ManualScheduler struct {
	start   time.Time
	elapsed time.Duration
	tasks   []*manualTask
}

type manualTask struct {
	every   time.Duration
	next    time.Duration
	fn      func()
	stopped bool
}

func (t *manualTask) Stop() { t.stopped = true }

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *ManualScheduler) Every(d time.Duration, fn func()) Task {
	if d <= 0 {
		d = time.Millisecond
	}
	t := &manualTask{every: d, next: m.elapsed + d, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, firing every task that comes due.
func (m *ManualScheduler) Advance(d time.Duration) {
	target := m.elapsed + d
	for {
		var due *manualTask
		for _, t := range m.tasks {
			if t.stopped || t.next > target {
				continue
			}
			if due == nil || t.next < due.next {
				due = t
			}
		}
		if due == nil {
			break
		}
		m.elapsed = due.next
		due.next += due.every
		due.fn()
	}
	m.elapsed = target
	m.prune()
}

// Now is the scheduler's current time, usable as a session clock.
func (m *ManualScheduler) Now() time.Time {
	return m.start.Add(m.elapsed)
}

// Active counts tasks that have not been stopped.
func (m *ManualScheduler) Active() int {
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *ManualScheduler) prune() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.tasks = live
}
