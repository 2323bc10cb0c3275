package status

import (
	"strings"
	"sync"
	"time"
)

// DefaultHistorySize is the number of snapshots kept by NewHistory.
const DefaultHistorySize = 1000

// historyTimeFormat prefixes every entry of a report.
const historyTimeFormat = "2006-01-02 15:04:05"

// Entry is one recorded snapshot.
type Entry struct {
	Time time.Time
	Text string
}

// ringBuffer is a fixed-capacity FIFO that overwrites its oldest entry when
// full. Not safe for concurrent use; History synchronizes access.
type ringBuffer struct {
	buf      []Entry
	capacity int
	head     int // next write position
	count    int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]Entry, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(e Entry) {
	// When full, head already points at the oldest entry.
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// newestFirst returns a copy of the entries, most recent first.
func (r *ringBuffer) newestFirst() []Entry {
	out := make([]Entry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head-1-i+r.capacity)%r.capacity]
	}
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}

// History is a bounded, newest-first log of formatted control snapshots.
// Safe for concurrent use.
type History struct {
	mu  sync.Mutex
	buf *ringBuffer
	now func() time.Time
}

// NewHistory creates a History holding at most capacity entries.
// A non-positive capacity uses DefaultHistorySize. A nil now uses time.Now.
func NewHistory(capacity int, now func() time.Time) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	if now == nil {
		now = time.Now
	}
	return &History{buf: newRingBuffer(capacity), now: now}
}

// Record stores text stamped with the current time, dropping the oldest
// entry if the history is full.
func (h *History) Record(text string) {
	t := h.now()
	h.mu.Lock()
	h.buf.push(Entry{Time: t, Text: text})
	h.mu.Unlock()
}

// Entries returns a copy of the retained entries, newest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.newestFirst()
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.len()
}

// Report renders every retained entry, newest first, each as its timestamp
// line followed by its text.
func (h *History) Report() string {
	entries := h.Entries()

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Time.Format(historyTimeFormat))
		b.WriteByte('\n')
		b.WriteString(e.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
