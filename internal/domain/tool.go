package domain

import (
	"bytes"
	"context"
	"encoding/json"
)

// Arguments is the structured form of tool-call arguments.
type Arguments map[string]any

// String returns the named argument as a string, or "" if absent or not a string.
func (a Arguments) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// ParseArguments normalizes raw tool-call arguments into Arguments.
// An object is decoded directly and a JSON string is decoded as the object it
// encodes. Missing, null or empty-string arguments yield an empty map.
// Anything else fails with ErrMalformedArguments.
func ParseArguments(raw json.RawMessage) (Arguments, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Arguments{}, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, NewDomainError("ParseArguments", ErrMalformedArguments, err.Error())
		}
		inner := bytes.TrimSpace([]byte(encoded))
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			return Arguments{}, nil
		}
		raw = inner
	}

	if raw[0] != '{' {
		return nil, NewDomainError("ParseArguments", ErrMalformedArguments, "arguments are not an object")
	}
	args := Arguments{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, NewDomainError("ParseArguments", ErrMalformedArguments, err.Error())
	}
	return args, nil
}

// ToolSchema describes a tool for the function-calling protocol.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is a model-issued request to invoke a tool.
// Arguments holds either a JSON object or a JSON string that encodes one.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of a successful capability invocation.
type ToolResult struct {
	Content string `json:"content"`
}

// Tool is a named, schema-described capability.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, args Arguments) (*ToolResult, error)
}

// ToolCatalog is the read side of a tool registry.
type ToolCatalog interface {
	Lookup(name string) (Tool, error)
	Catalog() []ToolSchema
}

// ToolOutcome is the result of one tool call in a batch.
type ToolOutcome struct {
	Call   ToolCall
	Result *ToolResult
	Err    error
}

// OK reports whether the call succeeded.
func (o ToolOutcome) OK() bool { return o.Err == nil }

// ToolExecutor runs a batch of tool calls. Failures are reported per call
// and never abort the remaining calls.
type ToolExecutor interface {
	Execute(ctx context.Context, calls []ToolCall) []ToolOutcome
}
