// Package chatlog holds the bounded, ordered chat history shared by the
// relay and input loops.
//
// Every mutation and every snapshot takes the log's single mutex for the
// minimum critical section; callers never hold it across network or
// terminal I/O.
package chatlog

import "sync"

const DefaultCapacity = 100

// Log is a concurrent-safe FIFO of rendered chat lines.
type Log struct {
	mu    sync.Mutex
	lines []string
	cap   int
}

// New creates a Log holding at most capacity lines. A non-positive capacity
// selects DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		lines: make([]string, 0, capacity),
		cap:   capacity,
	}
}

// Append pushes msg to the back and evicts the oldest line when the log is
// over capacity. It reports whether an eviction happened.
func (l *Log) Append(msg string) (evicted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
	if len(l.lines) > l.cap {
		// Zero the dropped slot so the string can be collected once the
		// backing array is reused.
		l.lines[0] = ""
		l.lines = l.lines[1:]
		evicted = true
	}
	return evicted
}

// Snapshot returns a point-in-time copy of the log in append order.
func (l *Log) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of lines currently held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

// Cap returns the configured capacity.
func (l *Log) Cap() int { return l.cap }
