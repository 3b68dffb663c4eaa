// Package tools provides the tool registry, the executor that turns
// tool invocations into structured results, and the built-in tools the
// agent ships with.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Func is a tool implementation. Arguments arrive as the decoded JSON
// object from the model's tool call.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Tool describes one callable tool: its name, what it does, the
// JSON-schema of its parameters, and the function that runs it.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Fn          Func

	schema *jsonschema.Schema
}

// ValidateArgs checks an argument object against the tool's compiled
// parameter schema. No-op for tools registered without a schema.
func (t *Tool) ValidateArgs(args map[string]any) error {
	if t.schema == nil {
		return nil
	}
	// Round-trip through JSON so numeric types match what the schema
	// library expects.
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	if err := t.schema.Validate(decoded); err != nil {
		return fmt.Errorf("arguments for %s: %w", t.Name, err)
	}
	return nil
}

// NotFoundError reports a lookup for a tool that is not registered.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found, available: %s", e.Name, strings.Join(e.Available, ", "))
}

// RegistrationError reports an invalid or duplicate registration.
type RegistrationError struct {
	Name   string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register tool %q: %s", e.Name, e.Reason)
}

// Registry holds uniquely named tools. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. The name must be unique and the parameter
// schema, when present, must compile as a JSON schema.
func (r *Registry) Register(t Tool) error {
	if strings.TrimSpace(t.Name) == "" {
		return &RegistrationError{Name: t.Name, Reason: "name cannot be empty"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &RegistrationError{Name: t.Name, Reason: "description cannot be empty"}
	}
	if t.Fn == nil {
		return &RegistrationError{Name: t.Name, Reason: "function cannot be nil"}
	}
	if t.Parameters != nil {
		schema, err := compileSchema(t.Name, t.Parameters)
		if err != nil {
			return &RegistrationError{Name: t.Name, Reason: fmt.Sprintf("invalid parameters schema: %v", err)}
		}
		t.schema = schema
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return &RegistrationError{Name: t.Name, Reason: "already registered"}
	}
	r.tools[t.Name] = &t
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Available: r.namesLocked()}
	}
	return t, nil
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.tools))
	for _, name := range r.namesLocked() {
		out = append(out, r.tools[name])
	}
	return out
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return &NotFoundError{Name: name, Available: r.namesLocked()}
	}
	delete(r.tools, name)
	return nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	// Round-trip normalizes Go values into the generic JSON shapes the
	// compiler expects.
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, err
	}
	return c.Compile(resource)
}
