package tool

import (
	"context"
	"encoding/json"

	"wildrose/internal/domain"
)

// HandlerFunc is the body of a FuncTool.
type HandlerFunc func(ctx context.Context, args domain.Arguments) (*domain.ToolResult, error)

// FuncTool binds a name, description and parameter schema to a closure.
type FuncTool struct {
	name        string
	description string
	parameters  json.RawMessage
	handler     HandlerFunc
}

// NewFuncTool creates a tool backed by handler. parameters may be nil for
// tools without arguments.
func NewFuncTool(name, description string, parameters json.RawMessage, handler HandlerFunc) *FuncTool {
	return &FuncTool{
		name:        name,
		description: description,
		parameters:  parameters,
		handler:     handler,
	}
}

func (f *FuncTool) Name() string        { return f.name }
func (f *FuncTool) Description() string { return f.description }

func (f *FuncTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        f.name,
		Description: f.description,
		Parameters:  f.parameters,
	}
}

func (f *FuncTool) Execute(ctx context.Context, args domain.Arguments) (*domain.ToolResult, error) {
	return f.handler(ctx, args)
}

// TextResult wraps a plain string in a ToolResult.
func TextResult(s string) *domain.ToolResult {
	return &domain.ToolResult{Content: s}
}
