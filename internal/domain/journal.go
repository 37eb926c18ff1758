package domain

import (
	"context"
	"time"
)

// ToolCallRecord summarizes one executed tool call.
type ToolCallRecord struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ConsultationRecord is the persisted summary of one model exchange.
type ConsultationRecord struct {
	ID        string
	Trigger   string
	Prompt    string
	Reply     string
	ToolCalls []ToolCallRecord
	Fallback  *ToolCallRecord // nil unless the fallback tool ran
	ErrorCode ErrorCode       // empty on success
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Journal persists consultation records.
type Journal interface {
	Record(ctx context.Context, rec ConsultationRecord) error
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]ConsultationRecord, error)
}
