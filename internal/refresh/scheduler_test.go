package refresh

import (
	"sync"
	"testing"
	"time"
)

// tickRecorder collects onTick calls.
type tickRecorder struct {
	mu    sync.Mutex
	ticks []bool
}

func (r *tickRecorder) onTick(forced bool) {
	r.mu.Lock()
	r.ticks = append(r.ticks, forced)
	r.mu.Unlock()
}

func (r *tickRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.ticks))
	copy(out, r.ticks)
	return out
}

func (r *tickRecorder) waitFor(t *testing.T, n int) []bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := r.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d ticks, got %d", n, len(r.snapshot()))
	return nil
}

func TestScheduler_NonPositiveIntervalDoesNotRun(t *testing.T) {
	rec := &tickRecorder{}
	s := New(rec.onTick)

	for _, d := range []time.Duration{0, -time.Second} {
		if s.Start(d) {
			t.Fatalf("Start(%v) = true, want false", d)
		}
	}
	if s.Running() {
		t.Fatal("scheduler should not be running")
	}
	time.Sleep(20 * time.Millisecond)
	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("got %d ticks, want 0", n)
	}
	if s.Kick(false) {
		t.Error("Kick on a stopped scheduler should report false")
	}
}

func TestScheduler_TicksPeriodically(t *testing.T) {
	rec := &tickRecorder{}
	s := New(rec.onTick)

	if !s.Start(20 * time.Millisecond) {
		t.Fatal("Start() = false")
	}
	defer s.Stop()

	ticks := rec.waitFor(t, 3)
	for i, forced := range ticks {
		if forced {
			t.Errorf("tick %d forced, want natural", i)
		}
	}
	if s.Interval() != 20*time.Millisecond {
		t.Errorf("Interval() = %v", s.Interval())
	}
}

func TestScheduler_StartTwiceIsRejected(t *testing.T) {
	s := New(func(bool) {})
	if !s.Start(time.Hour) {
		t.Fatal("first Start() = false")
	}
	defer s.Stop()
	if s.Start(time.Hour) {
		t.Error("second Start() = true, want false")
	}
}

func TestScheduler_ForceTickWakesEarly(t *testing.T) {
	rec := &tickRecorder{}
	s := New(rec.onTick)

	s.Start(time.Hour)
	defer s.Stop()
	rec.waitFor(t, 1)

	if !s.ForceTick() {
		t.Fatal("ForceTick() = false on a running scheduler")
	}
	ticks := rec.waitFor(t, 2)
	if ticks[0] {
		t.Error("initial tick should not be forced")
	}
	if !ticks[1] {
		t.Error("tick after ForceTick should be forced")
	}

	if !s.Kick(false) {
		t.Fatal("Kick(false) = false on a running scheduler")
	}
	ticks = rec.waitFor(t, 3)
	if ticks[2] {
		t.Error("tick after Kick(false) should not be forced")
	}
	if !s.Running() {
		t.Error("scheduler should keep running after wakes")
	}
}

func TestScheduler_StopPreventsFurtherTicks(t *testing.T) {
	rec := &tickRecorder{}
	s := New(rec.onTick)

	s.Start(5 * time.Millisecond)
	rec.waitFor(t, 2)
	s.Stop()

	after := len(rec.snapshot())
	time.Sleep(50 * time.Millisecond)
	if n := len(rec.snapshot()); n != after {
		t.Errorf("ticks after Stop: %d, want %d", n, after)
	}
	if s.Running() {
		t.Error("Running() = true after Stop")
	}
	if s.ForceTick() {
		t.Error("ForceTick after Stop should report false")
	}
}

func TestScheduler_StopDuringTickWaitsForIt(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	calls := 0

	s := New(func(bool) {
		mu.Lock()
		calls++
		mu.Unlock()
		once.Do(func() {
			close(entered)
			<-release
		})
	})
	s.Start(time.Millisecond)
	<-entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was in flight")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("onTick calls = %d, want 1", calls)
	}
}

func TestScheduler_Restart(t *testing.T) {
	rec := &tickRecorder{}
	s := New(rec.onTick)

	s.Start(time.Hour)
	rec.waitFor(t, 1)
	s.Stop()
	s.Stop() // second Stop is a no-op

	if !s.Start(time.Hour) {
		t.Fatal("Start after Stop = false")
	}
	defer s.Stop()
	rec.waitFor(t, 2)
}
