package domain

import "time"

// Role constants for message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry of the transcript sent to the model.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"-"`
}

// Completion is the normalized result of one model exchange.
// Text has already been stripped of private reasoning.
type Completion struct {
	Model     string
	Text      string
	ToolCalls []ToolCall
}

// HasText reports whether the completion carries user-facing text.
func (c *Completion) HasText() bool {
	return c != nil && c.Text != ""
}
