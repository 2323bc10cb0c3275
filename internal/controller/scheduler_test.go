package controller

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerStartRunsImmediatelyInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	rec := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	s := NewScheduler(
		Task{Name: "refresh", Interval: time.Hour, Run: rec("refresh")},
		Task{Name: "update", Interval: time.Hour, Run: rec("update")},
	)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "refresh" || order[1] != "update" {
		t.Errorf("immediate runs: got %v, want [refresh update]", order)
	}
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	var n atomic.Int32
	s := NewScheduler(Task{Name: "tick", Interval: 5 * time.Millisecond, Run: func() { n.Add(1) }})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	if n.Load() < 4 {
		t.Errorf("expected at least 4 runs, got %d", n.Load())
	}
}

func TestSchedulerNoOverlap(t *testing.T) {
	var running, maxRunning, runs atomic.Int32
	task := func() {
		cur := running.Add(1)
		for {
			m := maxRunning.Load()
			if cur <= m || maxRunning.CompareAndSwap(m, cur) {
				break
			}
		}
		time.Sleep(3 * time.Millisecond)
		running.Add(-1)
		runs.Add(1)
	}

	s := NewScheduler(Task{Name: "slow", Interval: time.Millisecond, Run: task})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	if maxRunning.Load() != 1 {
		t.Errorf("task overlapped itself: max concurrent runs %d", maxRunning.Load())
	}
}

func TestSchedulerNothingRunsAfterStop(t *testing.T) {
	var n atomic.Int32
	s := NewScheduler(Task{Name: "tick", Interval: time.Millisecond, Run: func() { n.Add(1) }})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	if n.Load() != after {
		t.Errorf("task ran after Stop returned: %d -> %d", after, n.Load())
	}
}

func TestSchedulerStopIdempotentAndBeforeStart(t *testing.T) {
	s := NewScheduler(Task{Name: "x", Interval: time.Hour, Run: func() {}})

	s.Stop()
	s.Stop()
	if s.State() != Stopped {
		t.Errorf("State: got %v, want stopped", s.State())
	}
	if err := s.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop: got %v, want ErrStopped", err)
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	s := NewScheduler(Task{Name: "x", Interval: time.Hour, Run: func() {}})
	if s.State() != Idle {
		t.Errorf("initial State: got %v, want idle", s.State())
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if s.State() != Running {
		t.Errorf("State: got %v, want running", s.State())
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start: got %v, want ErrAlreadyStarted", err)
	}
	s.Stop()
	s.Stop()
	if s.State() != Stopped {
		t.Errorf("State: got %v, want stopped", s.State())
	}
}

func TestSchedulerNonPositiveIntervalRunsOnce(t *testing.T) {
	var n atomic.Int32
	s := NewScheduler(Task{Name: "once", Interval: 0, Run: func() { n.Add(1) }})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	s.Stop()
	if n.Load() != 1 {
		t.Errorf("runs: got %d, want 1", n.Load())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{Idle: "idle", Running: "running", Stopped: "stopped", State(9): "unknown"}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d: got %q, want %q", int(s), s.String(), want)
		}
	}
}

func TestSchedulerFirstPassDoesNotHoldLock(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var updates atomic.Int32

	s := NewScheduler(
		Task{Name: "refresh", Interval: time.Millisecond, Run: func() {
			select {
			case <-entered:
			default:
				close(entered)
				<-release
			}
		}},
		Task{Name: "update", Interval: time.Millisecond, Run: func() { updates.Add(1) }},
	)

	started := make(chan error, 1)
	go func() { started <- s.Start() }()
	<-entered

	stateCh := make(chan State, 1)
	go func() { stateCh <- s.State() }()
	select {
	case st := <-stateCh:
		if st != Running {
			t.Errorf("State during first pass: got %v, want running", st)
		}
	case <-time.After(time.Second):
		t.Fatal("State blocked behind the first pass")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != Stopped && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	select {
	case <-stopped:
		t.Fatal("Stop returned while a task was still running")
	default:
	}
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	if err := <-started; err != nil {
		t.Errorf("Start: %v", err)
	}
	if n := updates.Load(); n != 0 {
		t.Errorf("update ran %d times after Stop during the first pass", n)
	}
}
