package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/crew/internal/config"
	"github.com/nextlevelbuilder/crew/internal/providers"
)

// Tool is one callable capability exposed to the LLM.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Registry holds tools in registration order. The schema list sent to the
// provider is derived from the same entries, so the two never drift.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool; re-registering a name replaces it in place.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Defs builds the provider schema list, one entry per registered tool.
func (r *Registry) Defs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]providers.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		})
	}
	return defs
}

// Execute dispatches one tool call. Unknown names and panics become error
// results; the loop never crashes because of a tool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (result *Result) {
	t, ok := r.Get(name)
	if !ok {
		return ErrorResult(fmt.Sprintf("Unknown tool: %s", name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool panicked", "tool", name, "panic", rec)
			result = ErrorResult(fmt.Sprintf("Error: %v", rec))
		}
	}()

	result = t.Execute(ctx, args)
	if result == nil {
		result = ErrorResult(fmt.Sprintf("Error: tool %s returned no result", name))
	}
	if len(result.ForLLM) > config.OutputCap {
		result.ForLLM = result.ForLLM[:config.OutputCap]
	}
	return result
}
