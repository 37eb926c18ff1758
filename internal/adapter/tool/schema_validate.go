package tool

import (
	"context"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"wildrose/internal/domain"
)

// SchemaValidatingTool wraps a Tool with JSON Schema validation.
// Execute rejects arguments that violate the compiled schema before delegating.
type SchemaValidatingTool struct {
	inner  domain.Tool
	schema *jsonschema.Schema
}

// WithSchemaValidation wraps a tool so that Execute validates its arguments
// against the tool's parameter schema. Tools without a schema are returned as-is.
func WithSchemaValidation(t domain.Tool) (domain.Tool, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}

	compiled, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", t.Name(), err)
	}
	return &SchemaValidatingTool{inner: t, schema: compiled}, nil
}

func (s *SchemaValidatingTool) Name() string              { return s.inner.Name() }
func (s *SchemaValidatingTool) Description() string       { return s.inner.Description() }
func (s *SchemaValidatingTool) Schema() domain.ToolSchema { return s.inner.Schema() }

// Unwrap returns the validated tool.
func (s *SchemaValidatingTool) Unwrap() domain.Tool { return s.inner }

func (s *SchemaValidatingTool) Execute(ctx context.Context, args domain.Arguments) (*domain.ToolResult, error) {
	if args == nil {
		args = domain.Arguments{}
	}
	result := s.schema.Validate(map[string]any(args))
	if !result.IsValid() {
		return nil, domain.NewDomainError(s.inner.Name(), domain.ErrMalformedArguments,
			fmt.Sprintf("schema validation failed: %s", result.Error()))
	}
	return s.inner.Execute(ctx, args)
}
