// Package tool is the assistant tool bridge: a closed set of typed
// operations the language model may invoke against a project.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/p-blackswan/questplan/internal/llm"
)

// Operation is one bridge operation.
type Operation interface {
	// Schema returns the operation's name, description, and JSON Schema for inputs.
	Schema() llm.ToolSchema

	// Execute runs the operation. Failures are reported in the Result, never
	// as a panic or error.
	Execute(ctx context.Context, input json.RawMessage) Result
}

// Registry holds operations in registration order.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]Operation
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds an operation. Panics on duplicate name.
func (r *Registry) Register(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := op.Schema().Name
	if _, exists := r.ops[name]; exists {
		panic(fmt.Sprintf("tool already registered: %s", name))
	}
	r.ops[name] = op
	r.order = append(r.order, name)
}

// Get returns an operation by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Schemas returns all schemas in registration order (for passing to the LLM).
func (r *Registry) Schemas() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]llm.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.ops[name].Schema())
	}
	return schemas
}

// Execute runs an operation by name. Unknown names and panics become
// failure results.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (res Result) {
	op, ok := r.Get(name)
	if !ok {
		return Result{Error: fmt.Sprintf("unknown tool: %s", name), Code: CodeUnknownTool}
	}
	defer func() {
		if p := recover(); p != nil {
			res = Result{Error: fmt.Sprintf("%s failed unexpectedly", name), Code: CodeInternal}
		}
	}()
	return op.Execute(ctx, input)
}

// MustSchema builds a json.RawMessage from a Go value (panics on error).
func MustSchema(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("MustSchema: %v", err))
	}
	return b
}
