package relay

import "sync"

// FakeSwitch is a test double that records every state it was set to.
// Safe for concurrent use.
type FakeSwitch struct {
	mu     sync.Mutex
	states []bool
	closed bool
	setErr error
}

// NewFakeSwitch creates a FakeSwitch.
func NewFakeSwitch() *FakeSwitch {
	return &FakeSwitch{}
}

// Set records on, or returns the configured error.
func (f *FakeSwitch) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.states = append(f.states, on)
	return nil
}

// SetError makes subsequent Set calls fail with err.
func (f *FakeSwitch) SetError(err error) {
	f.mu.Lock()
	f.setErr = err
	f.mu.Unlock()
}

// States returns every recorded state in order.
func (f *FakeSwitch) States() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.states))
	copy(out, f.states)
	return out
}

// On reports the last recorded state.
func (f *FakeSwitch) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.states) > 0 && f.states[len(f.states)-1]
}

// Close marks the switch as closed and off.
func (f *FakeSwitch) Close() error {
	f.mu.Lock()
	f.closed = true
	f.states = append(f.states, false)
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeSwitch) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
