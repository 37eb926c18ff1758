package usecase

import "sync"

// ShortTermMemory is a bounded FIFO of human-readable event summaries folded
// into the system prompt. It is separate from the protocol transcript.
type ShortTermMemory struct {
	mu       sync.Mutex
	items    []string
	capacity int
}

// NewShortTermMemory creates a memory holding at most capacity entries.
func NewShortTermMemory(capacity int) *ShortTermMemory {
	if capacity <= 0 {
		capacity = 1
	}
	return &ShortTermMemory{capacity: capacity}
}

// Push appends an entry, evicting the oldest once capacity is exceeded.
func (m *ShortTermMemory) Push(entry string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, entry)
	if over := len(m.items) - m.capacity; over > 0 {
		m.items = append(m.items[:0], m.items[over:]...)
	}
}

// Items returns all entries, oldest first.
func (m *ShortTermMemory) Items() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.items...)
}

// Recent returns up to n of the newest entries, oldest first.
func (m *ShortTermMemory) Recent(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 {
		return nil
	}
	start := max(0, len(m.items)-n)
	return append([]string(nil), m.items[start:]...)
}

// Clear removes all entries.
func (m *ShortTermMemory) Clear() {
	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()
}

// Len returns the number of entries.
func (m *ShortTermMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Capacity returns the configured bound.
func (m *ShortTermMemory) Capacity() int { return m.capacity }
