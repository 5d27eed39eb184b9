// Package refresh drives periodic status checks on an interruptible timer.
package refresh

import (
	"sync"
	"time"
)

// wakeReason says why a sleeping loop was woken early. Stop requests travel
// on their own channel so a wake can never be mistaken for one.
type wakeReason int

const (
	wakeRefresh wakeReason = iota + 1
	wakeForced
)

// task is one run of the loop. A stopped task is never restarted; Start
// creates a fresh one.
type task struct {
	interval time.Duration
	wake     chan wakeReason // buffered, coalesces pending wakes
	stop     chan struct{}   // closed by Stop
	done     chan struct{}   // closed when the loop exits

	mu     sync.Mutex
	forced bool // a pending wake asked for a forced notification
}

// Scheduler calls onTick, sleeps for the interval and repeats until stopped.
// Kick and ForceTick cut a sleep short; after the extra tick the loop sleeps
// a full interval again.
type Scheduler struct {
	onTick func(forced bool)

	mu       sync.Mutex // Guards lifecycle state.
	cur      *task      // Active task, nil when stopped.
	stopping bool       // True while Stop waits for the loop to exit.
}

// New creates a stopped Scheduler.
func New(onTick func(forced bool)) *Scheduler {
	return &Scheduler{onTick: onTick}
}

// Start begins looping with the given interval. It reports false without
// starting when interval is not positive or a loop is already running.
func (s *Scheduler) Start(interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	s.mu.Lock()
	if s.cur != nil || s.stopping {
		s.mu.Unlock()
		return false
	}
	t := &task{
		interval: interval,
		wake:     make(chan wakeReason, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.cur = t
	s.mu.Unlock()

	go s.loop(t)
	return true
}

// Kick wakes the loop for an immediate tick. It reports false when the
// scheduler is not running, in which case the caller should refresh itself.
func (s *Scheduler) Kick(forced bool) bool {
	s.mu.Lock()
	t := s.cur
	stopping := s.stopping
	s.mu.Unlock()
	if t == nil || stopping {
		return false
	}

	reason := wakeRefresh
	if forced {
		t.mu.Lock()
		t.forced = true
		t.mu.Unlock()
		reason = wakeForced
	}
	select {
	case t.wake <- reason:
	default:
		// A wake is already pending; the forced flag above rides along.
	}
	return true
}

// ForceTick wakes the loop for an immediate forced tick.
func (s *Scheduler) ForceTick() bool {
	return s.Kick(true)
}

// Stop ends the loop and waits for it to exit. When Stop returns, onTick is
// not running and will not be called again. Stop must not be called from
// onTick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	t := s.cur
	if t == nil || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	s.mu.Unlock()

	close(t.stop)
	<-t.done

	s.mu.Lock()
	s.cur = nil
	s.stopping = false
	s.mu.Unlock()
}

// Running reports whether a loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil && !s.stopping
}

// Interval returns the interval of the active loop, 0 when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return 0
	}
	return s.cur.interval
}

func (s *Scheduler) loop(t *task) {
	defer close(t.done)

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	forced := false
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		s.onTick(forced)

		timer.Reset(t.interval)
		select {
		case <-t.stop:
			return
		case reason := <-t.wake:
			t.mu.Lock()
			forced = reason == wakeForced || t.forced
			t.forced = false
			t.mu.Unlock()
		case <-timer.C:
			forced = false
		}
	}
}
