// Package scheduler implements the periodic task scheduler driving
// lease renewal, keepalive, and query timeouts: an ordered list of
// tasks keyed by next-due time, a cooperative or goroutine-driven
// process loop, and missed-tick coalescing so a task is never re-fired
// in the past.
package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/zenoh-pico-go/zpico/internal/collections"
	"github.com/zenoh-pico-go/zpico/internal/metrics"
)

// InvalidID is never returned as a valid task id.
const InvalidID uint32 = 0

// DefaultMaxTasks bounds the scheduler the way ZP_PERIODIC_SCHEDULER_MAX_TASKS
// does in the reference implementation.
const DefaultMaxTasks = 64

var (
	ErrInvalid      = errors.New("scheduler: invalid argument")
	ErrCapacity     = errors.New("scheduler: task limit reached")
	ErrUnknownTask  = errors.New("scheduler: unknown task id")
)

// TimeSource returns milliseconds since some fixed epoch. Tests inject a
// fake clock; production uses NowMS.
type TimeSource func() uint64

// NowMS is the default time source, backed by the monotonic clock.
func NowMS() uint64 {
	return uint64(time.Since(processStart).Milliseconds())
}

var processStart = time.Now()

type task struct {
	id        uint32
	periodMs  uint64
	nextDueMs uint64
	call      func()
	drop      func()
	cancelled bool
}

func taskLess(a, b *task) bool {
	if a.nextDueMs != b.nextDueMs {
		return a.nextDueMs < b.nextDueMs
	}
	return a.id < b.id
}

// Scheduler runs periodic tasks ordered by next-due time. It is safe
// for concurrent use. The zero value is not usable; use New.
type Scheduler struct {
	mu        sync.Mutex
	wake      chan struct{}
	tasks     collections.List[*task]
	taskCount int
	maxTasks  int
	nextID    uint32
	now       TimeSource
	inflight  *task
	running   bool
	stop      chan struct{}
	done      chan struct{}
}

// New creates a Scheduler with DefaultMaxTasks capacity and the
// monotonic clock as its time source.
func New() *Scheduler {
	return NewWithLimits(DefaultMaxTasks, NowMS)
}

// NewWithLimits creates a Scheduler with an explicit capacity and time
// source, letting tests substitute a fake clock for deterministic
// timing.
func NewWithLimits(maxTasks int, now TimeSource) *Scheduler {
	return &Scheduler{
		wake:     make(chan struct{}, 1),
		maxTasks: maxTasks,
		nextID:   1,
		now:      now,
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Add registers a closure to run every periodMs, starting one period
// from now. call runs outside the scheduler's lock; drop, if non-nil,
// runs once when the task is cleared (removed or cancelled in flight).
func (s *Scheduler) Add(periodMs uint64, call func(), drop func()) (uint32, error) {
	if periodMs == 0 || call == nil {
		return InvalidID, ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.taskCount >= s.maxTasks {
		return InvalidID, ErrCapacity
	}

	id := s.nextID
	s.nextID++
	if s.nextID == InvalidID {
		s.nextID++
	}

	t := &task{
		id:        id,
		periodMs:  periodMs,
		nextDueMs: s.now() + periodMs,
		call:      call,
		drop:      drop,
	}
	s.tasks.PushSorted(t, taskLess)
	s.taskCount++

	if head, ok := s.tasks.Find(func(*task) bool { return true }); ok && head == t {
		s.signal()
	}
	return id, nil
}

// Remove cancels a task. A not-yet-run task is dropped from the list
// immediately; a task currently executing is marked cancelled so the
// process loop drops it instead of rescheduling it. Removing an
// unknown id is an error.
func (s *Scheduler) Remove(id uint32) error {
	s.mu.Lock()

	var removedTask *task
	removed := s.tasks.DropFirstFilter(func(t *task) bool {
		if t.id == id {
			removedTask = t
			return true
		}
		return false
	})
	if removed {
		s.taskCount--
		s.signal()
		s.mu.Unlock()
		if removedTask.drop != nil {
			removedTask.drop()
		}
		return nil
	}

	if s.inflight != nil && s.inflight.id == id {
		s.inflight.cancelled = true
		s.signal()
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return ErrUnknownTask
}

// Tick runs every task currently due, in due order, and reschedules
// each with next_due_ms advanced by whole periods until it is ahead of
// now (missed ticks coalesce). Use Tick directly for single-threaded /
// cooperative builds; Run drives Tick automatically.
func (s *Scheduler) Tick() {
	for {
		s.mu.Lock()
		head, ok := s.tasks.Find(func(*task) bool { return true })
		if !ok || head.nextDueMs > s.now() {
			s.mu.Unlock()
			return
		}
		s.tasks.Pop()
		head.cancelled = false
		s.inflight = head
		s.mu.Unlock()

		head.call()

		s.mu.Lock()
		s.inflight = nil
		cancelled := head.cancelled
		s.mu.Unlock()

		if cancelled {
			s.mu.Lock()
			s.taskCount--
			s.mu.Unlock()
			if head.drop != nil {
				head.drop()
			}
			continue
		}

		now := s.now()
		delta := uint64(0)
		if now > head.nextDueMs {
			delta = now - head.nextDueMs
		}
		metrics.ObserveSchedulerTaskLatency(delta)
		periods := delta/head.periodMs + 1
		head.nextDueMs += periods * head.periodMs

		s.mu.Lock()
		s.tasks.PushSorted(head, taskLess)
		s.mu.Unlock()
	}
}

// waitMs returns how long the run loop should sleep before the next
// Tick, capped to a default when no task is scheduled.
func (s *Scheduler) waitMs() time.Duration {
	const defaultWaitMs = 1000
	s.mu.Lock()
	defer s.mu.Unlock()
	head, ok := s.tasks.Find(func(*task) bool { return true })
	if !ok {
		return defaultWaitMs * time.Millisecond
	}
	now := s.now()
	if head.nextDueMs <= now {
		return 0
	}
	return time.Duration(head.nextDueMs-now) * time.Millisecond
}

// Run starts a goroutine that calls Tick whenever a task becomes due,
// waking early on Add/Remove via the internal signal channel. Stop
// halts it.
func (s *Scheduler) Run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		timer := time.NewTimer(s.waitMs())
		defer timer.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-s.wake:
				if !timer.Stop() {
					<-timer.C
				}
			case <-timer.C:
			}
			s.Tick()
			timer.Reset(s.waitMs())
		}
	}()
}

// Stop halts the goroutine started by Run and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()
	close(stop)
	<-done
}

// Len returns the number of tasks currently registered, including a
// task currently in flight that has not been cancelled.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskCount
}
