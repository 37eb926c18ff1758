package domain

import (
	"context"
	"time"
)

// ModelClient is the interface for the remote chat/completion service.
type ModelClient interface {
	// Complete sends the transcript and tool catalog and returns the parsed reply.
	// A non-positive timeout means the caller's context alone bounds the call.
	Complete(ctx context.Context, transcript []Message, catalog []ToolSchema, timeout time.Duration) (*Completion, error)
	// Name returns the client's identifier (e.g., "ollama").
	Name() string
}
