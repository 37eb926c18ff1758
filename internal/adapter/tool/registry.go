package tool

import (
	"encoding/json"
	"log/slog"
	"sync"

	"wildrose/internal/domain"
)

// emptyParameters is sent for tools that accept no arguments.
var emptyParameters = json.RawMessage(`{"type":"object","properties":{}}`)

// Registry holds named tools in registration order.
// Every tool is wrapped with schema validation on Register.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]domain.Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
}

// Register adds a tool. It fails with ErrDuplicateTool if the name is taken
// and with ErrInvalidInput if the tool's parameter schema does not compile.
func (r *Registry) Register(t domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if name == "" {
		return domain.NewDomainError("Registry.Register", domain.ErrInvalidInput, "tool name is empty")
	}
	if _, exists := r.tools[name]; exists {
		return domain.NewDomainError("Registry.Register", domain.ErrDuplicateTool, name)
	}

	wrapped, err := WithSchemaValidation(t)
	if err != nil {
		return domain.NewDomainError("Registry.Register", domain.ErrInvalidInput, err.Error())
	}

	r.tools[name] = wrapped
	r.order = append(r.order, name)
	r.logger.Debug("tool registered", "tool", name)
	return nil
}

// MustRegister registers every tool and panics on the first failure.
// Intended for startup wiring where a bad catalog must abort the process.
func (r *Registry) MustRegister(tools ...domain.Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup retrieves a tool by name.
func (r *Registry) Lookup(name string) (domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, domain.NewDomainError("Registry.Lookup", domain.ErrToolNotFound, name)
	}
	return t, nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Catalog returns all tool schemas in registration order for function calling.
func (r *Registry) Catalog() []domain.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]domain.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		s := r.tools[name].Schema()
		if len(s.Parameters) == 0 || string(s.Parameters) == "null" {
			s.Parameters = emptyParameters
		}
		schemas = append(schemas, s)
	}
	return schemas
}
