package usecase

import (
	"sync"
	"time"

	"wildrose/internal/domain"
)

// Conversation is the protocol transcript sent to the model: a system
// prompt followed by user and assistant turns. The system message is always
// first and never evicted. Turns are kept in a sliding window of maxTurns
// messages; eviction never leaves an assistant message at the head.
type Conversation struct {
	mu       sync.RWMutex
	system   domain.Message
	turns    []domain.Message
	maxTurns int
}

// NewConversation creates a transcript holding only the system prompt.
// maxTurns <= 0 disables the window.
func NewConversation(systemPrompt string, maxTurns int) *Conversation {
	return &Conversation{
		system:   domain.Message{Role: domain.RoleSystem, Content: systemPrompt},
		maxTurns: maxTurns,
	}
}

// SetSystemPrompt replaces the system message content.
func (c *Conversation) SetSystemPrompt(text string) {
	c.mu.Lock()
	c.system.Content = text
	c.mu.Unlock()
}

// AppendUser appends a user turn.
func (c *Conversation) AppendUser(text string) {
	c.append(domain.Message{Role: domain.RoleUser, Content: text})
}

// AppendAssistant appends an assistant turn.
func (c *Conversation) AppendAssistant(text string) {
	c.append(domain.Message{Role: domain.RoleAssistant, Content: text})
}

func (c *Conversation) append(msgs ...domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		c.turns = append(c.turns, m)
	}
	c.trimLocked()
}

// Snapshot returns a copy of the current transcript, system message first.
func (c *Conversation) Snapshot() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.composeLocked(c.system.Content)
}

// Compose returns the transcript that would result from using systemPrompt
// and appending pending, without changing the conversation.
func (c *Conversation) Compose(systemPrompt string, pending ...domain.Message) []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append(c.composeLocked(systemPrompt), pending...)
}

// Commit installs systemPrompt and appends msgs in one step. Empty
// assistant messages are skipped.
func (c *Conversation) Commit(systemPrompt string, msgs ...domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.system.Content = systemPrompt
	now := time.Now()
	for _, m := range msgs {
		if m.Role == domain.RoleAssistant && m.Content == "" {
			continue
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		c.turns = append(c.turns, m)
	}
	c.trimLocked()
}

// Clear resets the transcript to just the system message.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.turns = nil
	c.mu.Unlock()
}

// Len returns the number of messages including the system message.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns) + 1
}

func (c *Conversation) composeLocked(systemPrompt string) []domain.Message {
	out := make([]domain.Message, 0, len(c.turns)+2)
	sys := c.system
	sys.Content = systemPrompt
	out = append(out, sys)
	return append(out, c.turns...)
}

func (c *Conversation) trimLocked() {
	if c.maxTurns <= 0 || len(c.turns) <= c.maxTurns {
		return
	}
	drop := len(c.turns) - c.maxTurns
	for drop < len(c.turns) && c.turns[drop].Role == domain.RoleAssistant {
		drop++
	}
	c.turns = append([]domain.Message(nil), c.turns[drop:]...)
}
