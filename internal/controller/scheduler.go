package controller

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrAlreadyStarted is returned by Start on a running scheduler.
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrStopped is returned by Start after Stop. A stopped scheduler
	// cannot be restarted.
	ErrStopped = errors.New("scheduler stopped")
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Task is a recurring activity.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func()
}

// Scheduler runs each task once on Start and then again Interval after the
// previous run completed. A task never overlaps with itself; different
// tasks run independently. Tasks with a non-positive Interval run only once.
type Scheduler struct {
	tasks []Task

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates an idle Scheduler for tasks.
func NewScheduler(tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start runs every task once, in order, on the calling goroutine, then arms
// their periodic schedules. The scheduler is Running while the first pass
// runs; a concurrent Stop skips the remaining tasks and waits for the one in
// flight.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	switch s.state {
	case Running:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case Stopped:
		s.mu.Unlock()
		return ErrStopped
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = Running
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	for _, t := range s.tasks {
		if ctx.Err() != nil {
			return nil
		}
		t.Run()
	}

	for _, t := range s.tasks {
		if t.Interval <= 0 || ctx.Err() != nil {
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	return nil
}

// Stop cancels all pending runs and waits for in-flight runs to finish.
// After Stop returns no task runs again. Safe to call more than once and
// before Start. Must not be called from inside a task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.state = Stopped
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()

	timer := time.NewTimer(t.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		t.Run()
		timer.Reset(t.Interval)
	}
}
