package mqtt

import "sync"

// Message is a published topic/payload pair.
type Message struct {
	Topic   string
	Payload []byte
}

// FakeClient records published messages for test assertions.
// Safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	messages []Message
	dropped  int

	publishErr error

	connected bool
	closed    bool
	handler   MessageHandler
}

// NewFakeClient creates a connected FakeClient delivering Deliver calls
// to handler.
func NewFakeClient(handler MessageHandler) *FakeClient {
	return &FakeClient{connected: true, handler: handler}
}

// SetHandler replaces the inbound message handler.
func (f *FakeClient) SetHandler(h MessageHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

// Deliver simulates an inbound message.
func (f *FakeClient) Deliver(topic string, payload []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
}

// Publish records the message. While disconnected it is dropped, matching
// RealClient.
func (f *FakeClient) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		f.dropped++
		return nil
	}
	if f.publishErr != nil {
		return f.publishErr
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	f.messages = append(f.messages, Message{Topic: topic, Payload: p})
	return nil
}

// SetPublishError makes subsequent publishes fail with err.
func (f *FakeClient) SetPublishError(err error) {
	f.mu.Lock()
	f.publishErr = err
	f.mu.Unlock()
}

// SetConnected controls the return value of IsConnected.
func (f *FakeClient) SetConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Messages returns a copy of every recorded message in publish order.
func (f *FakeClient) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// MessagesTo returns the recorded messages for a single topic.
func (f *FakeClient) MessagesTo(topic string) []Message {
	var out []Message
	for _, m := range f.Messages() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Dropped returns how many publishes were discarded while disconnected.
func (f *FakeClient) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// Reset clears recorded messages and errors.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	f.messages = nil
	f.dropped = 0
	f.publishErr = nil
	f.closed = false
	f.mu.Unlock()
}
