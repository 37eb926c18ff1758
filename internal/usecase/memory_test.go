package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortTermMemoryEvictsOldest(t *testing.T) {
	m := NewShortTermMemory(5)
	for i := 1; i <= 6; i++ {
		m.Push(fmt.Sprintf("event %d", i))
	}
	assert.Equal(t, 5, m.Len())
	assert.Equal(t, []string{"event 2", "event 3", "event 4", "event 5", "event 6"}, m.Items())
}

func TestShortTermMemoryNeverExceedsCapacity(t *testing.T) {
	for capacity := 1; capacity <= 8; capacity++ {
		m := NewShortTermMemory(capacity)
		for i := range 3 * capacity {
			m.Push(fmt.Sprint(i))
			assert.LessOrEqual(t, m.Len(), capacity)
		}
	}
}

func TestShortTermMemoryRecent(t *testing.T) {
	m := NewShortTermMemory(5)
	assert.Empty(t, m.Recent(3))

	m.Push("a")
	m.Push("b")
	assert.Equal(t, []string{"a", "b"}, m.Recent(3))

	m.Push("c")
	m.Push("d")
	assert.Equal(t, []string{"b", "c", "d"}, m.Recent(3))
	assert.Nil(t, m.Recent(0))
}

func TestShortTermMemoryInvalidCapacity(t *testing.T) {
	m := NewShortTermMemory(0)
	m.Push("a")
	m.Push("b")
	assert.Equal(t, 1, m.Capacity())
	assert.Equal(t, []string{"b"}, m.Items())
}

func TestShortTermMemoryClear(t *testing.T) {
	m := NewShortTermMemory(3)
	m.Push("a")
	m.Clear()
	assert.Zero(t, m.Len())

	m.Push("b")
	assert.Equal(t, []string{"b"}, m.Items())
}
