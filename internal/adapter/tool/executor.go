package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"wildrose/internal/domain"
	"wildrose/internal/infra/tracer"
)

// Executor resolves model-issued tool calls against a catalog and invokes them.
// Failures are recorded per call and never abort the rest of the batch.
type Executor struct {
	tools  domain.ToolCatalog
	logger *slog.Logger
}

// NewExecutor creates an executor over the given catalog.
func NewExecutor(tools domain.ToolCatalog, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{tools: tools, logger: logger}
}

var _ domain.ToolExecutor = (*Executor)(nil)

// Execute runs each call in order and returns one outcome per call.
func (e *Executor) Execute(ctx context.Context, calls []domain.ToolCall) []domain.ToolOutcome {
	outcomes := make([]domain.ToolOutcome, 0, len(calls))
	for _, call := range calls {
		outcomes = append(outcomes, e.ExecuteOne(ctx, call))
	}
	return outcomes
}

// ExecuteOne runs a single call.
func (e *Executor) ExecuteOne(ctx context.Context, call domain.ToolCall) domain.ToolOutcome {
	ctx, span := tracer.StartSpan(ctx, "tool.execute",
		trace.WithAttributes(tracer.StringAttr("tool.name", call.Name)),
	)

	out := domain.ToolOutcome{Call: call}
	out.Result, out.Err = e.run(ctx, call)
	tracer.Finish(span, out.Err)

	if out.Err != nil {
		e.logger.Warn("tool call failed",
			"tool", call.Name,
			"code", domain.ErrorCodeOf(out.Err),
			"error", out.Err,
		)
	}
	return out
}

func (e *Executor) run(ctx context.Context, call domain.ToolCall) (result *domain.ToolResult, err error) {
	t, err := e.tools.Lookup(call.Name)
	if err != nil {
		return nil, domain.NewDomainError("Executor.Execute", domain.ErrUnknownTool, fmt.Sprintf("%q", call.Name))
	}

	args, err := domain.ParseArguments(call.Arguments)
	if err != nil {
		return nil, &domain.DomainError{Op: "Executor.Execute", Err: err, Detail: call.Name}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = domain.NewDomainError("Executor.Execute", domain.ErrToolFailure,
				fmt.Sprintf("%s panicked: %v", call.Name, rec))
		}
	}()

	result, err = t.Execute(ctx, args)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedArguments) {
			return nil, err
		}
		return nil, &domain.DomainError{
			Op:     "Executor.Execute",
			Err:    fmt.Errorf("%w: %w", domain.ErrToolFailure, err),
			Detail: call.Name,
		}
	}
	if result == nil {
		result = TextResult("")
	}
	return result, nil
}
