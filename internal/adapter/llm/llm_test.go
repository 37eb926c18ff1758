package llm

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"wildrose/internal/domain"
	"wildrose/internal/infra/logger"
)

func newTestLogger() *slog.Logger {
	return logger.Discard()
}

// mockClient is a scripted domain.ModelClient.
type mockClient struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context) (*domain.Completion, error)
}

func (m *mockClient) Name() string { return m.name }

func (m *mockClient) Complete(ctx context.Context, _ []domain.Message, _ []domain.ToolSchema, _ time.Duration) (*domain.Completion, error) {
	m.calls.Add(1)
	if m.fn != nil {
		return m.fn(ctx)
	}
	return &domain.Completion{Text: "ok"}, nil
}
