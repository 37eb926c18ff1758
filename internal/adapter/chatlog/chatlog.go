// Package chatlog provides the in-memory chat window used by the host.
package chatlog

import (
	"fmt"
	"io"
	"sync"
)

// EventKind names a chat log change.
type EventKind string

const (
	EventPost    EventKind = "post"
	EventRetract EventKind = "retract"
)

// Event is delivered to subscribers on every change. Text is the posted or
// retracted line.
type Event struct {
	Kind EventKind `json:"kind"`
	Text string    `json:"text"`
}

// Log is a bounded, goroutine-safe chat log. Oldest lines are dropped once
// Capacity is reached. When an echo writer is set, every posted line is
// also written to it.
type Log struct {
	mu       sync.Mutex
	lines    []string
	capacity int
	echo     io.Writer
	subs     map[uint64]func(Event)
	nextSub  uint64
}

// New creates a log holding at most capacity lines. echo may be nil.
func New(capacity int, echo io.Writer) *Log {
	if capacity <= 0 {
		capacity = 1
	}
	return &Log{capacity: capacity, echo: echo}
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it. fn runs on the posting goroutine and must not block.
func (l *Log) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs == nil {
		l.subs = make(map[uint64]func(Event))
	}
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Post appends a line.
func (l *Log) Post(message string) {
	l.mu.Lock()
	if len(l.lines) == l.capacity {
		l.lines = append(l.lines[:0], l.lines[1:]...)
	}
	l.lines = append(l.lines, message)
	if l.echo != nil {
		fmt.Fprintln(l.echo, message)
	}
	subs := l.subscribersLocked()
	l.mu.Unlock()

	notify(subs, Event{Kind: EventPost, Text: message})
}

// RetractLast removes the most recent line, if any.
func (l *Log) RetractLast() {
	l.mu.Lock()
	n := len(l.lines)
	if n == 0 {
		l.mu.Unlock()
		return
	}
	last := l.lines[n-1]
	l.lines = l.lines[:n-1]
	subs := l.subscribersLocked()
	l.mu.Unlock()

	notify(subs, Event{Kind: EventRetract, Text: last})
}

func (l *Log) subscribersLocked() []func(Event) {
	if len(l.subs) == 0 {
		return nil
	}
	out := make([]func(Event), 0, len(l.subs))
	for _, fn := range l.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Event), e Event) {
	for _, fn := range subs {
		fn(e)
	}
}

// Messages returns a copy of the current lines, oldest first.
func (l *Log) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Last returns the most recent line and whether there was one.
func (l *Log) Last() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == 0 {
		return "", false
	}
	return l.lines[len(l.lines)-1], true
}
